package host

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/danmuck/caseroom/internal/casefile"
	"github.com/danmuck/caseroom/internal/command"
	"github.com/danmuck/caseroom/internal/observability"
	"github.com/danmuck/caseroom/internal/protocol"
	"github.com/rs/zerolog/log"
)

// Dispatcher executes client commands against an ActionContext. It never retries.
type Dispatcher struct{}

// Execute overwrites the command's player id with playerID, then applies it.
func (d *Dispatcher) Execute(actx ActionContext, playerID string, cmd command.Command) error {
	start := time.Now()
	cmd.SetPlayerID(playerID)
	err := d.execute(actx, playerID, cmd)

	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, protocol.ErrValidation), errors.Is(err, protocol.ErrNotFound):
		outcome = "rejected"
	default:
		outcome = "error"
	}
	observability.RecordCommand(string(cmd.Kind()), outcome, time.Since(start))
	if err != nil {
		log.Debug().
			Err(err).
			Str("player", playerID).
			Str("kind", string(cmd.Kind())).
			Msg("host.Dispatcher.Execute rejected")
	}
	return err
}

func (d *Dispatcher) execute(actx ActionContext, pid string, cmd command.Command) error {
	switch v := cmd.(type) {
	case *command.Look:
		room, err := playingRoom(actx, pid)
		if err != nil {
			return err
		}
		actx.SendTo(pid, notice(describeRoom(actx, pid, room)))
		return nil

	case *command.Move:
		if err := requireStarted(actx, v); err != nil {
			return err
		}
		from, to, err := actx.MovePlayer(pid, v.Direction)
		if err != nil {
			return err
		}
		actx.SendTo(pid, notice(describeRoom(actx, pid, to)))
		actx.NotifyMove(pid, from, to)
		return nil

	case *command.Examine:
		room, err := playingRoom(actx, pid)
		if err != nil {
			return err
		}
		obj, ok := room.Object(v.Object)
		if !ok {
			return protocol.NotFound("object", v.Object)
		}
		actx.SendTo(pid, notice(obj.Description))
		return nil

	case *command.Question:
		room, err := playingRoom(actx, pid)
		if err != nil {
			return err
		}
		for _, s := range actx.Suspects(room.ID) {
			if strings.EqualFold(s.ID, v.Suspect) || strings.EqualFold(s.Name, v.Suspect) {
				actx.SendTo(pid, notice(fmt.Sprintf("%s: %q", s.Name, s.Statement)))
				return nil
			}
		}
		return protocol.NotFound("suspect", v.Suspect)

	case *command.Journal:
		if err := requireStarted(actx, v); err != nil {
			return err
		}
		entries := actx.JournalEntries(pid)
		if len(entries) == 0 {
			actx.SendTo(pid, notice("your journal is empty"))
			return nil
		}
		actx.SendTo(pid, notice(numbered("Journal:", entries)))
		return nil

	case *command.JournalAdd:
		if err := requireStarted(actx, v); err != nil {
			return err
		}
		text := strings.TrimSpace(v.Text)
		if text == "" {
			return protocol.Reject("journal add", "nothing to write")
		}
		actx.AddJournalEntry(pid, text)
		actx.SendTo(pid, notice("noted in your journal"))
		return nil

	case *command.Deduce:
		room, err := playingRoom(actx, pid)
		if err != nil {
			return err
		}
		obj, ok := room.Object(v.Object)
		if !ok || obj.Deduction == "" {
			return protocol.NotFound("deduction", v.Object)
		}
		n := actx.IncrementDeductions()
		actx.AddJournalEntry(pid, obj.Deduction)
		actx.SendTo(pid, notice(fmt.Sprintf("You deduce: %s (deduction %d)", obj.Deduction, n)))
		actx.Broadcast(pid, notice(fmt.Sprintf("%s deduces: %s", nameOf(actx, pid), obj.Deduction)))
		return nil

	case *command.AskWatson:
		if err := requireStarted(actx, v); err != nil {
			return err
		}
		hint, ok := actx.Hint(pid)
		if !ok {
			hint = "I have nothing more to suggest, I'm afraid."
		}
		actx.SendTo(pid, notice("Watson: "+hint))
		return nil

	case *command.Tasks:
		if err := requireStarted(actx, v); err != nil {
			return err
		}
		tasks := actx.Tasks()
		if len(tasks) == 0 {
			actx.SendTo(pid, notice("this case lists no tasks"))
			return nil
		}
		actx.SendTo(pid, notice(numbered("Tasks:", tasks)))
		return nil

	case *command.StartCase:
		if !actx.IsHost(pid) {
			return protocol.Reject("start case", "only the host can start the case; use request start case")
		}
		if err := actx.StartCase(); err != nil {
			return err
		}
		c := actx.SelectedCase()
		actx.SetAllStates(command.StateInGame, "the case begins")
		actx.Broadcast("", notice(c.Intro))
		for _, id := range actx.PlayerIDs() {
			if room, ok := actx.RoomOf(id); ok {
				actx.SendTo(id, notice(describeRoom(actx, id, room)))
			}
		}
		return nil

	case *command.RequestStartCase:
		if actx.IsCaseStarted() {
			return protocol.Reject("request start case", "the case has already started")
		}
		if err := actx.RequestStartCase(pid); err != nil {
			return err
		}
		actx.SendTo(actx.HostID(), notice(fmt.Sprintf("%s asks you to start the case; type start case", nameOf(actx, pid))))
		actx.SendTo(pid, notice("asked the host to start the case"))
		return nil

	case *command.FinalExam:
		if !actx.IsHost(pid) {
			return protocol.Reject("final exam", "only the host can start the final exam; use request final exam")
		}
		if err := actx.CanStartExam(); err != nil {
			return err
		}
		q, err := actx.StartExam()
		if err != nil {
			return err
		}
		actx.SetAllStates(command.StateExamInProgress, "the final exam begins")
		actx.Broadcast("", q)
		return nil

	case *command.RequestFinalExam:
		if err := requireStarted(actx, v); err != nil {
			return err
		}
		if err := actx.RequestFinalExam(pid); err != nil {
			return err
		}
		actx.SetPlayerState(actx.HostID(), command.StateShowingInvitation,
			fmt.Sprintf("%s requests the final exam; type final exam to begin", nameOf(actx, pid)))
		actx.SendTo(pid, notice("asked the host to begin the final exam"))
		return nil

	case *command.SubmitExamAnswer:
		progress, err := actx.SubmitExamAnswer(pid, v.QuestionIndex, v.Answers)
		if err != nil {
			return err
		}
		if progress.Ignored {
			return nil
		}
		actx.Broadcast(pid, notice(fmt.Sprintf("%s answered question %d", nameOf(actx, pid), v.QuestionIndex+1)))
		if progress.Next != nil {
			actx.Broadcast("", progress.Next)
			return nil
		}
		if progress.Result != nil {
			actx.Broadcast("", progress.Result)
			actx.SetAllStates(command.StateInGame, "the final exam is over")
		}
		return nil

	case *command.SetName:
		old, err := actx.SetDisplayName(pid, v.Name)
		if err != nil {
			return err
		}
		actx.SendTo(pid, v)
		actx.Broadcast(pid, notice(fmt.Sprintf("%s is now known as %s", old, strings.TrimSpace(v.Name))))
		return nil

	case *command.Exit:
		name := nameOf(actx, pid)
		if actx.IsHost(pid) {
			actx.SetAllStates(command.StateIdle, "the host ended the session")
		} else {
			actx.Broadcast(pid, notice(name+" left the session"))
		}
		actx.Exit(pid)
		return nil

	case *command.Hello:
		return protocol.Reject("hello", "already joined")

	case *command.Welcome, *command.Notice, *command.StateChanged,
		*command.ExamQuestion, *command.ExamResult, *command.Rejected:
		return protocol.Reject(string(cmd.Kind()), "%s is sent by the host, not to it", cmd.Kind())

	case *command.Help, *command.HostGame, *command.ListGames, *command.RefreshGames,
		*command.JoinPublicGame, *command.JoinPrivateGame:
		return protocol.Reject(string(cmd.Kind()), "%s is a local command", cmd.Kind())

	default:
		return protocol.Reject(string(cmd.Kind()), "unsupported command %s", cmd.Kind())
	}
}

func requireStarted(actx ActionContext, cmd command.Command) error {
	if !actx.IsCaseStarted() {
		return protocol.Reject(string(cmd.Kind()), "the case has not started yet")
	}
	return nil
}

func playingRoom(actx ActionContext, pid string) (*casefile.Room, error) {
	if !actx.IsCaseStarted() {
		return nil, protocol.Reject("", "the case has not started yet")
	}
	room, ok := actx.RoomOf(pid)
	if !ok {
		return nil, protocol.NotFound("room for player", pid)
	}
	return room, nil
}

func describeRoom(actx ActionContext, pid string, room *casefile.Room) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%s", room.Name, room.Description)
	if dirs := room.Directions(); len(dirs) > 0 {
		fmt.Fprintf(&b, "\nExits: %s", strings.Join(dirs, ", "))
	}
	if len(room.Objects) > 0 {
		names := make([]string, 0, len(room.Objects))
		for _, o := range room.Objects {
			names = append(names, o.Name)
		}
		fmt.Fprintf(&b, "\nYou notice: %s", strings.Join(names, ", "))
	}
	if suspects := actx.Suspects(room.ID); len(suspects) > 0 {
		names := make([]string, 0, len(suspects))
		for _, s := range suspects {
			names = append(names, s.Name)
		}
		fmt.Fprintf(&b, "\nPresent: %s", strings.Join(names, ", "))
	}
	if others := actx.DescribeOccupants(room.ID, pid); len(others) > 0 {
		fmt.Fprintf(&b, "\nDetectives here: %s", strings.Join(others, ", "))
	}
	return b.String()
}

func numbered(title string, items []string) string {
	var b strings.Builder
	b.WriteString(title)
	for i, it := range items {
		fmt.Fprintf(&b, "\n  %d. %s", i+1, it)
	}
	return b.String()
}

func nameOf(actx ActionContext, pid string) string {
	if p, ok := actx.Detective(pid); ok {
		return p.Name
	}
	return "someone"
}

func notice(text string) *command.Notice {
	return &command.Notice{Text: text}
}
