package client

import (
	"strconv"
	"strings"

	"github.com/danmuck/caseroom/internal/command"
	"github.com/danmuck/caseroom/internal/protocol"
)

var (
	anyState = command.States()
	idleOnly = []command.State{command.StateIdle}
	lobby    = []command.State{command.StateHostingLobby, command.StateInLobby}
	playing  = []command.State{command.StateInGame, command.StateShowingInvitation}
	inExam   = []command.State{command.StateExamInProgress}
)

// gate lists the states in which each role may issue a command. A nil slice means the
// role may never issue it.
type gate struct {
	host  []command.State
	guest []command.State
}

func (g gate) allows(role command.Role, state command.State) bool {
	states := g.guest
	if role == command.RoleHost {
		states = g.host
	}
	for _, s := range states {
		if s == state {
			return true
		}
	}
	return false
}

type entry struct {
	gate  gate
	usage string
	// argument is required and must be non-blank
	needsArg bool
	// build receives the trimmed argument
	build func(arg string) command.Command
	// dual commands pick their variant from the role
	dual *dualEntry
	help string
}

type dualEntry struct {
	host      func() command.Command
	guest     func() command.Command
	hostHint  string
	guestHint string
}

var table = map[string]entry{
	CmdHelp: {
		gate:  gate{host: anyState, guest: anyState},
		build: func(string) command.Command { return &command.Help{} },
		help:  "help                          show commands available right now",
	},
	CmdExit: {
		gate:  gate{host: anyState, guest: anyState},
		build: func(string) command.Command { return &command.Exit{} },
		help:  "exit                          leave the session, or quit when idle",
	},
	CmdSetName: {
		gate:     gate{host: anyState, guest: anyState},
		usage:    "usage: /setname <name>",
		needsArg: true,
		build:    func(a string) command.Command { return &command.SetName{Name: a} },
		help:     "/setname <name>               change your display name",
	},
	CmdHostGame: {
		gate:  gate{host: idleOnly, guest: idleOnly},
		build: func(string) command.Command { return &command.HostGame{} },
		help:  "host game                     host a new game on this machine",
	},
	CmdListPublicGames: {
		gate:  gate{host: idleOnly, guest: idleOnly},
		build: func(string) command.Command { return &command.ListGames{} },
		help:  "list public games             show games advertised on the LAN",
	},
	CmdRefreshGames: {
		gate:  gate{host: idleOnly, guest: idleOnly},
		build: func(string) command.Command { return &command.RefreshGames{} },
		help:  "refresh games                 clear the list and search again",
	},
	CmdJoinPublicGame: {
		gate:     gate{host: idleOnly, guest: idleOnly},
		usage:    "usage: join public game <number or session id>",
		needsArg: true,
		build:    func(a string) command.Command { return &command.JoinPublicGame{ID: a} },
		help:     "join public game <id>         join a listed game",
	},
	CmdJoinPrivateGame: {
		gate:     gate{host: idleOnly, guest: idleOnly},
		usage:    "usage: join private game <code>",
		needsArg: true,
		build:    func(a string) command.Command { return &command.JoinPrivateGame{Code: a} },
		help:     "join private game <code>      join a game by its join code",
	},
	CmdStartCase:        startCaseEntry,
	CmdRequestStartCase: startCaseEntry,
	CmdFinalExam:        finalExamEntry,
	CmdRequestFinalExam: finalExamEntry,
	CmdLook: {
		gate:  gate{host: playing, guest: playing},
		build: func(string) command.Command { return &command.Look{} },
		help:  "look                          describe the room you are in",
	},
	CmdMove: {
		gate:     gate{host: playing, guest: playing},
		usage:    "usage: move <direction>",
		needsArg: true,
		build:    func(a string) command.Command { return &command.Move{Direction: a} },
		help:     "move <direction>              walk through an exit",
	},
	CmdExamine: {
		gate:     gate{host: playing, guest: playing},
		usage:    "usage: examine <object>",
		needsArg: true,
		build:    func(a string) command.Command { return &command.Examine{Object: a} },
		help:     "examine <object>              look closely at something",
	},
	CmdQuestion: {
		gate:     gate{host: playing, guest: playing},
		usage:    "usage: question <suspect>",
		needsArg: true,
		build:    func(a string) command.Command { return &command.Question{Suspect: a} },
		help:     "question <suspect>            hear a suspect's statement",
	},
	CmdJournal: {
		gate:  gate{host: playing, guest: playing},
		build: func(string) command.Command { return &command.Journal{} },
		help:  "journal                       read your journal",
	},
	CmdJournalAdd: {
		gate:     gate{host: playing, guest: playing},
		usage:    "usage: journal add <text>",
		needsArg: true,
		build:    func(a string) command.Command { return &command.JournalAdd{Text: a} },
		help:     "journal add <text>            write a journal entry",
	},
	CmdDeduce: {
		gate:     gate{host: playing, guest: playing},
		usage:    "usage: deduce <object>",
		needsArg: true,
		build:    func(a string) command.Command { return &command.Deduce{Object: a} },
		help:     "deduce <object>               draw a conclusion and share it",
	},
	CmdAskWatson: {
		gate:  gate{host: playing, guest: playing},
		build: func(string) command.Command { return &command.AskWatson{} },
		help:  "ask watson                    ask for a hint",
	},
	CmdTasks: {
		gate:  gate{host: playing, guest: playing},
		build: func(string) command.Command { return &command.Tasks{} },
		help:  "tasks                         list the case tasks",
	},
	CmdSubmitExamAnswer: {
		gate:     gate{host: inExam, guest: inExam},
		usage:    "usage: submit exam answer <question number> <choice> [choice...]",
		needsArg: true,
		help:     "submit exam answer <n> <c..>  answer question n, one choice per slot",
	},
}

var startCaseEntry = entry{
	gate: gate{host: lobby, guest: lobby},
	dual: &dualEntry{
		host:      func() command.Command { return &command.StartCase{} },
		guest:     func() command.Command { return &command.RequestStartCase{} },
		hostHint:  "the case can only be started from the lobby",
		guestHint: "the case is already under way or you are not in a lobby",
	},
	help: "start case / request start case   begin the case (host) or ask the host to",
}

var finalExamEntry = entry{
	gate: gate{host: playing, guest: []command.State{command.StateInGame}},
	dual: &dualEntry{
		host:      func() command.Command { return &command.FinalExam{} },
		guest:     func() command.Command { return &command.RequestFinalExam{} },
		hostHint:  "the final exam can only be started once the case is under way",
		guestHint: "you can request the final exam only while the case is under way",
	},
	help: "final exam / request final exam   start the exam (host) or ask the host to",
}

// Factory builds commands from parsed input for a given role and state.
type Factory struct {
	// Exam binds "submit exam answer" input to the open question. Nil rejects it.
	Exam *Exam
}

// Build returns exactly one command, or a ValidationError whose hint explains the
// rejection. It never returns both.
func (f Factory) Build(p ParsedCommandData, role command.Role, state command.State) (command.Command, error) {
	if p.Name == "" {
		return nil, protocol.Reject("", "type a command, or help for a list")
	}
	s, ok := table[p.Name]
	if !ok {
		return nil, protocol.Reject(p.Name, "unknown command %q; type help for a list", p.Name)
	}
	if s.dual != nil {
		return buildDual(p.Name, s, role, state)
	}
	if !s.gate.allows(role, state) {
		return nil, protocol.Reject(p.Name, "%q is not available while %s", p.Name, state)
	}
	arg := strings.TrimSpace(p.Arg())
	if s.needsArg && arg == "" {
		return nil, protocol.Reject(p.Name, "%s", s.usage)
	}
	if p.Name == CmdSubmitExamAnswer {
		return f.buildAnswer(arg, s.usage)
	}
	return s.build(arg), nil
}

func buildDual(name string, s entry, role command.Role, state command.State) (command.Command, error) {
	if role == command.RoleHost {
		if s.gate.allows(role, state) {
			return s.dual.host(), nil
		}
		return nil, protocol.Reject(name, "%s", s.dual.hostHint)
	}
	if s.gate.allows(role, state) {
		return s.dual.guest(), nil
	}
	return nil, protocol.Reject(name, "%s", s.dual.guestHint)
}

func (f Factory) buildAnswer(arg, usage string) (command.Command, error) {
	numTok, rest := splitFirst(arg)
	n, err := strconv.Atoi(numTok)
	if err != nil || n < 1 {
		return nil, protocol.Reject(CmdSubmitExamAnswer, "question number must be a positive integer; %s", usage)
	}
	if rest == "" {
		return nil, protocol.Reject(CmdSubmitExamAnswer, "%s", usage)
	}
	if f.Exam == nil {
		return nil, protocol.Reject(CmdSubmitExamAnswer, "no exam question is open")
	}
	return f.Exam.Answer(n, rest)
}

// Available returns the help lines of the commands role may issue in state.
func Available(role command.Role, state command.State) []string {
	var out []string
	seen := make(map[string]bool)
	for _, name := range helpOrder {
		s := table[name]
		if seen[s.help] || !s.gate.allows(role, state) {
			continue
		}
		seen[s.help] = true
		out = append(out, s.help)
	}
	return out
}

var helpOrder = []string{
	CmdLook, CmdMove, CmdExamine, CmdQuestion, CmdJournal, CmdJournalAdd, CmdDeduce,
	CmdAskWatson, CmdTasks, CmdStartCase, CmdFinalExam, CmdSubmitExamAnswer,
	CmdHostGame, CmdListPublicGames, CmdRefreshGames, CmdJoinPublicGame, CmdJoinPrivateGame,
	CmdSetName, CmdHelp, CmdExit,
}
