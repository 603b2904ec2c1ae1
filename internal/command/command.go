package command

import (
	"fmt"
	"sort"
	"strings"
)

// Kind is the wire discriminator of a command or data payload.
type Kind string

const (
	// client -> host
	KindHello            Kind = "hello"
	KindLook             Kind = "look"
	KindMove             Kind = "move"
	KindExamine          Kind = "examine"
	KindQuestion         Kind = "question"
	KindJournal          Kind = "journal"
	KindJournalAdd       Kind = "journal.add"
	KindDeduce           Kind = "deduce"
	KindAskWatson        Kind = "ask.watson"
	KindTasks            Kind = "tasks"
	KindStartCase        Kind = "case.start"
	KindRequestStartCase Kind = "case.start.request"
	KindFinalExam        Kind = "exam.start"
	KindRequestFinalExam Kind = "exam.start.request"
	KindSubmitExamAnswer Kind = "exam.answer"
	KindSetName          Kind = "player.setname"
	KindExit             Kind = "session.exit"

	// host -> client
	KindWelcome      Kind = "session.welcome"
	KindNotice       Kind = "notice"
	KindStateChanged Kind = "state.changed"
	KindExamQuestion Kind = "exam.question"
	KindExamResult   Kind = "exam.result"
	KindRejected     Kind = "rejected"

	// client-local, never transmitted
	KindHelp            Kind = "local.help"
	KindHostGame        Kind = "local.host"
	KindListGames       Kind = "local.list"
	KindRefreshGames    Kind = "local.refresh"
	KindJoinPublicGame  Kind = "local.join.public"
	KindJoinPrivateGame Kind = "local.join.private"
)

var clientKinds = []Kind{
	KindHello, KindLook, KindMove, KindExamine, KindQuestion, KindJournal, KindJournalAdd,
	KindDeduce, KindAskWatson, KindTasks, KindStartCase, KindRequestStartCase, KindFinalExam,
	KindRequestFinalExam, KindSubmitExamAnswer, KindSetName, KindExit,
}

var hostKinds = []Kind{
	KindWelcome, KindNotice, KindStateChanged, KindExamQuestion, KindExamResult, KindRejected,
}

var localKinds = []Kind{
	KindHelp, KindHostGame, KindListGames, KindRefreshGames, KindJoinPublicGame, KindJoinPrivateGame,
}

// WireKinds returns every kind permitted on the session transport.
func WireKinds() []Kind {
	out := make([]Kind, 0, len(clientKinds)+len(hostKinds))
	out = append(out, clientKinds...)
	out = append(out, hostKinds...)
	return out
}

// ClientKinds returns the kinds a client may send to the host.
func ClientKinds() []Kind {
	out := make([]Kind, len(clientKinds))
	copy(out, clientKinds)
	return out
}

// IsLocal reports whether k is handled entirely on the client.
func IsLocal(k Kind) bool {
	for _, v := range localKinds {
		if v == k {
			return true
		}
	}
	return false
}

// Command is one serializable intent or notification.
type Command interface {
	Kind() Kind
	// PlayerID is the originating player; empty for host-issued or system commands.
	PlayerID() string
	SetPlayerID(id string)
	Description() string
}

// Origin carries the originating player id embedded in every variant.
type Origin struct {
	Player string `cbor:"player,omitempty"`
}

func (o *Origin) PlayerID() string      { return o.Player }
func (o *Origin) SetPlayerID(id string) { o.Player = id }

type Hello struct {
	Origin
	DisplayName string `cbor:"display_name"`
	JoinCode    string `cbor:"join_code"`
}

func (*Hello) Kind() Kind { return KindHello }
func (c *Hello) Description() string {
	return fmt.Sprintf("%s asks to join", c.DisplayName)
}

type Look struct{ Origin }

func (*Look) Kind() Kind          { return KindLook }
func (*Look) Description() string { return "look around the room" }

type Move struct {
	Origin
	Direction string `cbor:"direction"`
}

func (*Move) Kind() Kind            { return KindMove }
func (c *Move) Description() string { return "move " + c.Direction }

type Examine struct {
	Origin
	Object string `cbor:"object"`
}

func (*Examine) Kind() Kind            { return KindExamine }
func (c *Examine) Description() string { return "examine " + c.Object }

type Question struct {
	Origin
	Suspect string `cbor:"suspect"`
}

func (*Question) Kind() Kind            { return KindQuestion }
func (c *Question) Description() string { return "question " + c.Suspect }

type Journal struct{ Origin }

func (*Journal) Kind() Kind          { return KindJournal }
func (*Journal) Description() string { return "read the journal" }

type JournalAdd struct {
	Origin
	Text string `cbor:"text"`
}

func (*JournalAdd) Kind() Kind            { return KindJournalAdd }
func (c *JournalAdd) Description() string { return "add journal entry: " + c.Text }

type Deduce struct {
	Origin
	Object string `cbor:"object"`
}

func (*Deduce) Kind() Kind            { return KindDeduce }
func (c *Deduce) Description() string { return "deduce from " + c.Object }

type AskWatson struct{ Origin }

func (*AskWatson) Kind() Kind          { return KindAskWatson }
func (*AskWatson) Description() string { return "ask Watson for a hint" }

type Tasks struct{ Origin }

func (*Tasks) Kind() Kind          { return KindTasks }
func (*Tasks) Description() string { return "list case tasks" }

type StartCase struct{ Origin }

func (*StartCase) Kind() Kind          { return KindStartCase }
func (*StartCase) Description() string { return "start the case" }

type RequestStartCase struct{ Origin }

func (*RequestStartCase) Kind() Kind          { return KindRequestStartCase }
func (*RequestStartCase) Description() string { return "ask the host to start the case" }

type FinalExam struct{ Origin }

func (*FinalExam) Kind() Kind          { return KindFinalExam }
func (*FinalExam) Description() string { return "start the final exam" }

type RequestFinalExam struct{ Origin }

func (*RequestFinalExam) Kind() Kind          { return KindRequestFinalExam }
func (*RequestFinalExam) Description() string { return "ask the host to start the final exam" }

// SubmitExamAnswer carries the full slot -> choice binding for one question.
type SubmitExamAnswer struct {
	Origin
	QuestionIndex int               `cbor:"question_index"`
	Answers       map[string]string `cbor:"answers"`
}

func (*SubmitExamAnswer) Kind() Kind { return KindSubmitExamAnswer }
func (c *SubmitExamAnswer) Description() string {
	slots := make([]string, 0, len(c.Answers))
	for slot, choice := range c.Answers {
		slots = append(slots, slot+"="+choice)
	}
	sort.Strings(slots)
	return fmt.Sprintf("answer question %d: %s", c.QuestionIndex+1, strings.Join(slots, ", "))
}

type SetName struct {
	Origin
	Name string `cbor:"name"`
}

func (*SetName) Kind() Kind            { return KindSetName }
func (c *SetName) Description() string { return "rename to " + c.Name }

type Exit struct{ Origin }

func (*Exit) Kind() Kind          { return KindExit }
func (*Exit) Description() string { return "leave the session" }

// Welcome is the host's answer to Hello.
type Welcome struct {
	Origin
	AssignedID string `cbor:"assigned_id"`
	SessionID  string `cbor:"session_id"`
	CaseTitle  string `cbor:"case_title"`
	Role       Role   `cbor:"role"`
	State      State  `cbor:"state"`
}

func (*Welcome) Kind() Kind { return KindWelcome }
func (c *Welcome) Description() string {
	return fmt.Sprintf("joined %q as %s", c.CaseTitle, c.Role)
}

type Notice struct {
	Origin
	Text string `cbor:"text"`
}

func (*Notice) Kind() Kind            { return KindNotice }
func (c *Notice) Description() string { return c.Text }

type StateChanged struct {
	Origin
	State  State  `cbor:"state"`
	Reason string `cbor:"reason,omitempty"`
}

func (*StateChanged) Kind() Kind { return KindStateChanged }
func (c *StateChanged) Description() string {
	if c.Reason == "" {
		return "state is now " + string(c.State)
	}
	return fmt.Sprintf("state is now %s: %s", c.State, c.Reason)
}

type Choice struct {
	ID   string `cbor:"id"`
	Text string `cbor:"text"`
}

// Slot is one blank of an exam question; Choices keep their presentation order.
type Slot struct {
	Label   string   `cbor:"label"`
	Choices []Choice `cbor:"choices"`
}

// ExamQuestion is one final exam prompt. Slots carry no order of their own.
type ExamQuestion struct {
	Origin
	Index  int             `cbor:"index"`
	Total  int             `cbor:"total"`
	Prompt string          `cbor:"prompt"`
	Slots  map[string]Slot `cbor:"slots"`
}

func (*ExamQuestion) Kind() Kind { return KindExamQuestion }
func (c *ExamQuestion) Description() string {
	return fmt.Sprintf("question %d/%d: %s", c.Index+1, c.Total, c.Prompt)
}

type ExamResult struct {
	Origin
	Correct int    `cbor:"correct"`
	Total   int    `cbor:"total"`
	Summary string `cbor:"summary"`
}

func (*ExamResult) Kind() Kind { return KindExamResult }
func (c *ExamResult) Description() string {
	return fmt.Sprintf("exam finished: %d/%d correct. %s", c.Correct, c.Total, c.Summary)
}

type Rejected struct {
	Origin
	Reason string `cbor:"reason"`
}

func (*Rejected) Kind() Kind            { return KindRejected }
func (c *Rejected) Description() string { return "rejected: " + c.Reason }

type Help struct{ Origin }

func (*Help) Kind() Kind          { return KindHelp }
func (*Help) Description() string { return "show help" }

type HostGame struct{ Origin }

func (*HostGame) Kind() Kind          { return KindHostGame }
func (*HostGame) Description() string { return "host a new game" }

type ListGames struct{ Origin }

func (*ListGames) Kind() Kind          { return KindListGames }
func (*ListGames) Description() string { return "list public games" }

type RefreshGames struct{ Origin }

func (*RefreshGames) Kind() Kind          { return KindRefreshGames }
func (*RefreshGames) Description() string { return "refresh the game list" }

// JoinPublicGame selects an advertised game by list number or session id.
type JoinPublicGame struct {
	Origin
	ID string
}

func (*JoinPublicGame) Kind() Kind            { return KindJoinPublicGame }
func (c *JoinPublicGame) Description() string { return "join public game " + c.ID }

type JoinPrivateGame struct {
	Origin
	Code string
}

func (*JoinPrivateGame) Kind() Kind            { return KindJoinPrivateGame }
func (c *JoinPrivateGame) Description() string { return "join private game " + c.Code }

// New returns a zero value of the variant named by k.
func New(k Kind) (Command, bool) {
	switch k {
	case KindHello:
		return &Hello{}, true
	case KindLook:
		return &Look{}, true
	case KindMove:
		return &Move{}, true
	case KindExamine:
		return &Examine{}, true
	case KindQuestion:
		return &Question{}, true
	case KindJournal:
		return &Journal{}, true
	case KindJournalAdd:
		return &JournalAdd{}, true
	case KindDeduce:
		return &Deduce{}, true
	case KindAskWatson:
		return &AskWatson{}, true
	case KindTasks:
		return &Tasks{}, true
	case KindStartCase:
		return &StartCase{}, true
	case KindRequestStartCase:
		return &RequestStartCase{}, true
	case KindFinalExam:
		return &FinalExam{}, true
	case KindRequestFinalExam:
		return &RequestFinalExam{}, true
	case KindSubmitExamAnswer:
		return &SubmitExamAnswer{}, true
	case KindSetName:
		return &SetName{}, true
	case KindExit:
		return &Exit{}, true
	case KindWelcome:
		return &Welcome{}, true
	case KindNotice:
		return &Notice{}, true
	case KindStateChanged:
		return &StateChanged{}, true
	case KindExamQuestion:
		return &ExamQuestion{}, true
	case KindExamResult:
		return &ExamResult{}, true
	case KindRejected:
		return &Rejected{}, true
	case KindHelp:
		return &Help{}, true
	case KindHostGame:
		return &HostGame{}, true
	case KindListGames:
		return &ListGames{}, true
	case KindRefreshGames:
		return &RefreshGames{}, true
	case KindJoinPublicGame:
		return &JoinPublicGame{}, true
	case KindJoinPrivateGame:
		return &JoinPrivateGame{}, true
	default:
		return nil, false
	}
}
