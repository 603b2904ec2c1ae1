package host

import (
	"github.com/danmuck/caseroom/internal/casefile"
	"github.com/danmuck/caseroom/internal/command"
)

// Player is the host's record of one joined participant.
type Player struct {
	ID    string
	Name  string
	Role  command.Role
	State command.State
	Room  string
}

type StateQuery interface {
	IsCaseStarted() bool
	SelectedCase() *casefile.Case
	Detective(playerID string) (Player, bool)
	RoomOf(playerID string) (*casefile.Room, bool)
	IsHost(playerID string) bool
	// PlayerIDs lists joined players in join order.
	PlayerIDs() []string
}

type WorldView interface {
	// DescribeOccupants names the players in roomID other than except.
	DescribeOccupants(roomID, except string) []string
	Suspects(roomID string) []casefile.Suspect
	Tasks() []string
	// Hint returns the player's next unseen hint.
	Hint(playerID string) (string, bool)
}

type PlayerActions interface {
	MovePlayer(playerID, direction string) (from, to *casefile.Room, err error)
	AddJournalEntry(playerID, text string)
	JournalEntries(playerID string) []string
}

type Messaging interface {
	SendTo(playerID string, cmd command.Command)
	// Broadcast sends cmd to every player except the one named; "" excludes nobody.
	Broadcast(except string, cmd command.Command)
	NotifyMove(playerID string, from, to *casefile.Room)
}

// ExamProgress is the outcome of one accepted or ignored exam submission.
type ExamProgress struct {
	Ignored bool
	Next    *command.ExamQuestion
	Result  *command.ExamResult
}

type ExamFlow interface {
	CanStartExam() error
	StartExam() (*command.ExamQuestion, error)
	SubmitExamAnswer(playerID string, questionIndex int, answers map[string]string) (ExamProgress, error)
}

type Bookkeeping interface {
	HostID() string
	SetDisplayName(playerID, name string) (string, error)
	SetPlayerState(playerID string, state command.State, reason string)
	SetAllStates(state command.State, reason string)
	StartCase() error
	RequestStartCase(playerID string) error
	RequestFinalExam(playerID string) error
	// Exit removes a guest, or ends the session when playerID is the host.
	Exit(playerID string)
	IncrementDeductions() int
}

// ActionContext is everything a dispatched command may touch.
type ActionContext interface {
	StateQuery
	WorldView
	PlayerActions
	Messaging
	ExamFlow
	Bookkeeping
}
