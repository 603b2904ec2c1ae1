package host

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/danmuck/caseroom/internal/casefile"
	"github.com/danmuck/caseroom/internal/command"
	"github.com/danmuck/caseroom/internal/observability"
	"github.com/danmuck/caseroom/internal/protocol"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var ErrSessionClosed = errors.New("host: session closed")

const (
	DefaultMaxPlayers = 4
	outboxDepth       = 64
	eventQueueDepth   = 128
)

// FinalExamState is the authoritative exam progress. It lives until the session ends.
type FinalExamState struct {
	CurrentQuestionIndex int
	Answers              map[int]map[string]string
	Submitted            bool
}

type member struct {
	Player
	journal []string
	hints   int
	out     chan command.Command
}

// Session is one running case. Its ActionContext methods run only on the Run goroutine.
type Session struct {
	id         string
	kase       *casefile.Case
	maxPlayers int
	dispatcher Dispatcher

	events  chan func()
	done    chan struct{}
	ended   chan struct{}
	endOnce sync.Once

	members    map[string]*member
	order      []string
	hostID     string
	started    bool
	exam       *FinalExamState
	deductions int
	requests   map[string]bool

	playerCount atomic.Int32
	hostName    atomic.Value
}

func NewSession(c *casefile.Case, maxPlayers int) *Session {
	if maxPlayers <= 0 {
		maxPlayers = DefaultMaxPlayers
	}
	s := &Session{
		id:         uuid.NewString(),
		kase:       c,
		maxPlayers: maxPlayers,
		events:     make(chan func(), eventQueueDepth),
		done:       make(chan struct{}),
		ended:      make(chan struct{}),
		members:    make(map[string]*member),
		requests:   make(map[string]bool),
	}
	s.hostName.Store("")
	return s
}

func (s *Session) ID() string            { return s.id }
func (s *Session) Title() string         { return s.kase.Title }
func (s *Session) MaxPlayers() int       { return s.maxPlayers }
func (s *Session) PlayerCount() int      { return int(s.playerCount.Load()) }
func (s *Session) HostName() string      { return s.hostName.Load().(string) }
func (s *Session) Done() <-chan struct{} { return s.done }

// Run applies queued events until ctx ends or the host exits.
func (s *Session) Run(ctx context.Context) {
	defer close(s.done)
	defer s.closeAll()

	log.Info().Str("session", s.id).Str("case", s.kase.Title).Msg("host.Session.Run started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("session", s.id).Msg("host.Session.Run stopped")
			return
		case <-s.ended:
			log.Info().Str("session", s.id).Msg("host.Session.Run ended by host")
			return
		case fn := <-s.events:
			fn()
		}
	}
}

// Ended reports whether the host has ended the session.
func (s *Session) Ended() bool {
	select {
	case <-s.ended:
		return true
	default:
		return false
	}
}

func (s *Session) end() {
	s.endOnce.Do(func() { close(s.ended) })
}

// do runs fn on the session goroutine and waits for it.
func (s *Session) do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	select {
	case s.events <- func() { fn(); close(finished) }:
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-finished:
		return nil
	case <-s.done:
		return ErrSessionClosed
	}
}

func (s *Session) enqueue(fn func()) {
	select {
	case s.events <- fn:
	case <-s.done:
	}
}

// Join admits a player and returns its welcome plus the queue of commands to deliver.
func (s *Session) Join(ctx context.Context, hello *command.Hello, role command.Role) (*command.Welcome, <-chan command.Command, error) {
	var (
		welcome *command.Welcome
		out     <-chan command.Command
		joinErr error
	)
	err := s.do(ctx, func() {
		welcome, out, joinErr = s.join(hello, role)
	})
	if err != nil {
		return nil, nil, err
	}
	return welcome, out, joinErr
}

// Submit queues cmd from playerID for dispatch. Rejections go back to the player.
func (s *Session) Submit(playerID string, cmd command.Command) {
	s.enqueue(func() {
		if _, ok := s.members[playerID]; !ok {
			return
		}
		if err := s.dispatcher.Execute(s, playerID, cmd); err != nil {
			s.SendTo(playerID, &command.Rejected{Reason: protocol.HintOf(err)})
		}
	})
}

// Leave handles a dropped connection the same way as an exit command.
func (s *Session) Leave(playerID string) {
	s.enqueue(func() {
		if _, ok := s.members[playerID]; !ok {
			return
		}
		if err := s.dispatcher.Execute(s, playerID, &command.Exit{}); err != nil {
			log.Warn().Err(err).Str("player", playerID).Msg("host.Session.Leave")
		}
	})
}

// Snapshot is a read-only view for the status surface.
type Snapshot struct {
	SessionID      string          `json:"session_id"`
	CaseTitle      string          `json:"case_title"`
	Started        bool            `json:"started"`
	ExamInProgress bool            `json:"exam_in_progress"`
	Deductions     int             `json:"deductions"`
	MaxPlayers     int             `json:"max_players"`
	Players        []PlayerSummary `json:"players"`
}

type PlayerSummary struct {
	ID    string        `json:"id"`
	Name  string        `json:"name"`
	Role  command.Role  `json:"role"`
	State command.State `json:"state"`
	Room  string        `json:"room,omitempty"`
}

func (s *Session) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := s.do(ctx, func() {
		snap = Snapshot{
			SessionID:      s.id,
			CaseTitle:      s.kase.Title,
			Started:        s.started,
			ExamInProgress: s.exam != nil && !s.exam.Submitted,
			Deductions:     s.deductions,
			MaxPlayers:     s.maxPlayers,
			Players:        make([]PlayerSummary, 0, len(s.order)),
		}
		for _, id := range s.order {
			m := s.members[id]
			snap.Players = append(snap.Players, PlayerSummary{ID: m.ID, Name: m.Name, Role: m.Role, State: m.State, Room: m.Room})
		}
	})
	return snap, err
}

func (s *Session) join(hello *command.Hello, role command.Role) (*command.Welcome, <-chan command.Command, error) {
	if len(s.members) >= s.maxPlayers {
		return nil, nil, protocol.Reject("join", "the game is full")
	}
	if role == command.RoleHost && s.hostID != "" {
		return nil, nil, protocol.Reject("join", "the session already has a host")
	}
	name := strings.TrimSpace(hello.DisplayName)
	if name == "" {
		name = fmt.Sprintf("detective %d", len(s.order)+1)
	}

	m := &member{
		Player: Player{ID: uuid.NewString(), Name: name, Role: role, Room: s.kase.StartRoom},
		out:    make(chan command.Command, outboxDepth),
	}
	switch {
	case s.exam != nil && !s.exam.Submitted:
		m.State = command.StateExamInProgress
	case s.started:
		m.State = command.StateInGame
	case role == command.RoleHost:
		m.State = command.StateHostingLobby
	default:
		m.State = command.StateInLobby
	}
	if role == command.RoleHost {
		s.hostID = m.ID
		s.hostName.Store(name)
	}
	s.Broadcast("", notice(name+" joined the session"))
	s.members[m.ID] = m
	s.order = append(s.order, m.ID)
	s.countPlayers()

	if m.State == command.StateExamInProgress {
		s.SendTo(m.ID, s.examQuestion(s.exam.CurrentQuestionIndex))
	}
	log.Info().
		Str("session", s.id).
		Str("player", m.ID).
		Str("name", name).
		Str("role", string(role)).
		Msg("host.Session player joined")
	return &command.Welcome{
		AssignedID: m.ID,
		SessionID:  s.id,
		CaseTitle:  s.kase.Title,
		Role:       role,
		State:      m.State,
	}, m.out, nil
}

func (s *Session) remove(playerID string) {
	m, ok := s.members[playerID]
	if !ok {
		return
	}
	delete(s.members, playerID)
	delete(s.requests, playerID)
	for i, id := range s.order {
		if id == playerID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	close(m.out)
	s.countPlayers()
	log.Info().Str("session", s.id).Str("player", playerID).Msg("host.Session player left")
}

func (s *Session) closeAll() {
	for id := range s.members {
		s.remove(id)
	}
}

func (s *Session) countPlayers() {
	s.playerCount.Store(int32(len(s.members)))
	observability.SetPlayersConnected(len(s.members))
}

func (s *Session) examQuestion(i int) *command.ExamQuestion {
	q := s.kase.Exam[i]
	slots := make(map[string]command.Slot, len(q.Slots))
	for id, slot := range q.Slots {
		choices := make([]command.Choice, 0, len(slot.Choices))
		for _, c := range slot.Choices {
			choices = append(choices, command.Choice{ID: c.ID, Text: c.Text})
		}
		slots[id] = command.Slot{Label: slot.Label, Choices: choices}
	}
	return &command.ExamQuestion{Index: i, Total: len(s.kase.Exam), Prompt: q.Prompt, Slots: slots}
}

// StateQuery

func (s *Session) IsCaseStarted() bool          { return s.started }
func (s *Session) SelectedCase() *casefile.Case { return s.kase }

func (s *Session) Detective(playerID string) (Player, bool) {
	m, ok := s.members[playerID]
	if !ok {
		return Player{}, false
	}
	return m.Player, true
}

func (s *Session) RoomOf(playerID string) (*casefile.Room, bool) {
	m, ok := s.members[playerID]
	if !ok {
		return nil, false
	}
	return s.kase.Room(m.Room)
}

func (s *Session) IsHost(playerID string) bool {
	return playerID != "" && playerID == s.hostID
}

func (s *Session) PlayerIDs() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// WorldView

func (s *Session) DescribeOccupants(roomID, except string) []string {
	var names []string
	for _, id := range s.order {
		m := s.members[id]
		if id != except && m.Room == roomID {
			names = append(names, m.Name)
		}
	}
	return names
}

func (s *Session) Suspects(roomID string) []casefile.Suspect { return s.kase.SuspectsIn(roomID) }
func (s *Session) Tasks() []string                           { return s.kase.Tasks }

func (s *Session) Hint(playerID string) (string, bool) {
	m, ok := s.members[playerID]
	if !ok || m.hints >= len(s.kase.Hints) {
		return "", false
	}
	h := s.kase.Hints[m.hints]
	m.hints++
	return h, true
}

// PlayerActions

func (s *Session) MovePlayer(playerID, direction string) (*casefile.Room, *casefile.Room, error) {
	m, ok := s.members[playerID]
	if !ok {
		return nil, nil, protocol.NotFound("player", playerID)
	}
	from, ok := s.kase.Room(m.Room)
	if !ok {
		return nil, nil, protocol.NotFound("room", m.Room)
	}
	toID, ok := from.Exit(direction)
	if !ok {
		return nil, nil, protocol.NotFound("exit", direction)
	}
	to, ok := s.kase.Room(toID)
	if !ok {
		return nil, nil, protocol.NotFound("room", toID)
	}
	m.Room = to.ID
	return from, to, nil
}

func (s *Session) AddJournalEntry(playerID, text string) {
	if m, ok := s.members[playerID]; ok {
		m.journal = append(m.journal, text)
	}
}

func (s *Session) JournalEntries(playerID string) []string {
	m, ok := s.members[playerID]
	if !ok {
		return nil
	}
	out := make([]string, len(m.journal))
	copy(out, m.journal)
	return out
}

// Messaging

// SendTo queues cmd for playerID. A player whose queue is full is dropped.
func (s *Session) SendTo(playerID string, cmd command.Command) {
	m, ok := s.members[playerID]
	if !ok {
		return
	}
	select {
	case m.out <- cmd:
	default:
		log.Warn().Str("player", playerID).Str("kind", string(cmd.Kind())).Msg("host.Session outbox full, dropping player")
		s.drop(playerID)
	}
}

// drop removes a player that can no longer be reached. Losing the host ends the session
// the same way a host exit does.
func (s *Session) drop(playerID string) {
	m, ok := s.members[playerID]
	if !ok {
		return
	}
	name := m.Name
	s.remove(playerID)
	if playerID == s.hostID {
		s.hostID = ""
		s.SetAllStates(command.StateIdle, "the host disconnected")
		log.Info().Str("session", s.id).Msg("host.Session host dropped, ending session")
		s.end()
		return
	}
	s.Broadcast(playerID, notice(name+" left the session"))
}

func (s *Session) Broadcast(except string, cmd command.Command) {
	for _, id := range s.PlayerIDs() {
		if id != except {
			s.SendTo(id, cmd)
		}
	}
}

func (s *Session) NotifyMove(playerID string, from, to *casefile.Room) {
	name := "someone"
	if m, ok := s.members[playerID]; ok {
		name = m.Name
	}
	for _, id := range s.PlayerIDs() {
		if id == playerID {
			continue
		}
		m, ok := s.members[id]
		if !ok {
			continue
		}
		switch m.Room {
		case from.ID:
			s.SendTo(id, notice(fmt.Sprintf("%s leaves for %s", name, to.Name)))
		case to.ID:
			s.SendTo(id, notice(fmt.Sprintf("%s arrives from %s", name, from.Name)))
		}
	}
}

// ExamFlow

func (s *Session) CanStartExam() error {
	switch {
	case !s.started:
		return protocol.Reject("final exam", "the case has not started yet")
	case s.exam != nil && !s.exam.Submitted:
		return protocol.Reject("final exam", "the final exam is already in progress")
	case len(s.kase.Exam) == 0:
		return protocol.Reject("final exam", "this case has no final exam")
	}
	return nil
}

func (s *Session) StartExam() (*command.ExamQuestion, error) {
	if err := s.CanStartExam(); err != nil {
		return nil, err
	}
	s.exam = &FinalExamState{Answers: make(map[int]map[string]string)}
	s.requests = make(map[string]bool)
	return s.examQuestion(0), nil
}

func (s *Session) SubmitExamAnswer(playerID string, questionIndex int, answers map[string]string) (ExamProgress, error) {
	if s.exam == nil || s.exam.Submitted {
		return ExamProgress{}, protocol.Reject("submit exam answer", "no final exam is in progress")
	}
	if questionIndex != s.exam.CurrentQuestionIndex {
		log.Debug().
			Str("player", playerID).
			Int("index", questionIndex).
			Int("current", s.exam.CurrentQuestionIndex).
			Msg("host.Session ignored stale exam answer")
		return ExamProgress{Ignored: true}, nil
	}
	q := s.kase.Exam[questionIndex]
	if err := q.CheckAnswers(answers); err != nil {
		return ExamProgress{}, protocol.Reject("submit exam answer", "%v", err)
	}
	recorded := make(map[string]string, len(answers))
	for k, v := range answers {
		recorded[k] = v
	}
	s.exam.Answers[questionIndex] = recorded
	s.exam.CurrentQuestionIndex++
	if s.exam.CurrentQuestionIndex < len(s.kase.Exam) {
		return ExamProgress{Next: s.examQuestion(s.exam.CurrentQuestionIndex)}, nil
	}

	s.exam.Submitted = true
	correct, total := 0, 0
	for i, q := range s.kase.Exam {
		c, t := q.Score(s.exam.Answers[i])
		correct += c
		total += t
	}
	return ExamProgress{Result: &command.ExamResult{
		Correct: correct,
		Total:   total,
		Summary: examSummary(correct, total),
	}}, nil
}

func examSummary(correct, total int) string {
	switch {
	case total > 0 && correct == total:
		return "Elementary. The case is solved."
	case correct*2 >= total:
		return "Close, but the culprit may yet slip away."
	default:
		return "The facts point elsewhere. Review your journal."
	}
}

// Bookkeeping

func (s *Session) HostID() string { return s.hostID }

func (s *Session) SetDisplayName(playerID, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", protocol.Reject("/setname", "usage: /setname <name>")
	}
	m, ok := s.members[playerID]
	if !ok {
		return "", protocol.NotFound("player", playerID)
	}
	old := m.Name
	m.Name = name
	if playerID == s.hostID {
		s.hostName.Store(name)
	}
	return old, nil
}

func (s *Session) SetPlayerState(playerID string, state command.State, reason string) {
	m, ok := s.members[playerID]
	if !ok {
		return
	}
	m.State = state
	s.SendTo(playerID, &command.StateChanged{State: state, Reason: reason})
}

func (s *Session) SetAllStates(state command.State, reason string) {
	for _, id := range s.PlayerIDs() {
		s.SetPlayerState(id, state, reason)
	}
}

func (s *Session) StartCase() error {
	if s.started {
		return protocol.Reject("start case", "the case has already started")
	}
	s.started = true
	s.requests = make(map[string]bool)
	for _, m := range s.members {
		m.Room = s.kase.StartRoom
	}
	log.Info().Str("session", s.id).Msg("host.Session case started")
	return nil
}

func (s *Session) RequestStartCase(playerID string) error {
	if s.hostID == "" {
		return protocol.Reject("request start case", "the session has no host")
	}
	s.requests[playerID] = true
	return nil
}

func (s *Session) RequestFinalExam(playerID string) error {
	if s.hostID == "" {
		return protocol.Reject("request final exam", "the session has no host")
	}
	if s.exam != nil && !s.exam.Submitted {
		return protocol.Reject("request final exam", "the final exam is already in progress")
	}
	s.requests[playerID] = true
	return nil
}

func (s *Session) Exit(playerID string) {
	if s.IsHost(playerID) {
		log.Info().Str("session", s.id).Msg("host.Session host exited, ending session")
		s.end()
		return
	}
	s.remove(playerID)
}

func (s *Session) IncrementDeductions() int {
	s.deductions++
	return s.deductions
}
