package client

import (
	"strings"
	"unicode"
)

// ParsedCommandData is a canonical command name plus at most one remainder argument.
type ParsedCommandData struct {
	Name string
	Args []string
}

// Arg returns the remainder argument, or "" when there is none.
func (p ParsedCommandData) Arg() string {
	if len(p.Args) == 0 {
		return ""
	}
	return p.Args[0]
}

// Canonical command names produced by Parse.
const (
	CmdLook             = "look"
	CmdMove             = "move"
	CmdExamine          = "examine"
	CmdQuestion         = "question"
	CmdJournal          = "journal"
	CmdJournalAdd       = "journal add"
	CmdDeduce           = "deduce"
	CmdAskWatson        = "ask watson"
	CmdTasks            = "tasks"
	CmdHostGame         = "host game"
	CmdListPublicGames  = "list public games"
	CmdRefreshGames     = "refresh games"
	CmdJoinPublicGame   = "join public game"
	CmdJoinPrivateGame  = "join private game"
	CmdStartCase        = "start case"
	CmdRequestStartCase = "request start case"
	CmdFinalExam        = "final exam"
	CmdRequestFinalExam = "request final exam"
	CmdSubmitExamAnswer = "submit exam answer"
	CmdSetName          = "/setname"
	CmdHelp             = "help"
	CmdExit             = "exit"
)

type prefixRule struct {
	prefix    string
	canonical string
}

// precedence is checked top to bottom; a longer or more specific prefix must come
// before any looser prefix that would also match it.
var precedence = []prefixRule{
	{"submit exam answer", CmdSubmitExamAnswer},
	{"request final exam", CmdRequestFinalExam},
	{"initiate final exam", CmdFinalExam},
	{"final exam", CmdFinalExam},
	{"request start case", CmdRequestStartCase},
	{"start case", CmdStartCase},
	{"join private game", CmdJoinPrivateGame},
	{"join public game", CmdJoinPublicGame},
	{"join game", CmdJoinPublicGame},
	{"list public games", CmdListPublicGames},
	{"list games", CmdListPublicGames},
	{"refresh games", CmdRefreshGames},
	{"journal add", CmdJournalAdd},
	{"ask watson", CmdAskWatson},
	{"host game", CmdHostGame},
	{"/setname", CmdSetName},
}

// Parse trims input and resolves it against the precedence table, falling back to
// "first word is the name, the rest is one argument". Matching ignores case; the
// argument keeps the case it was typed with. Blank input yields an empty Name.
func Parse(input string) ParsedCommandData {
	input = strings.TrimSpace(input)
	if input == "" {
		return ParsedCommandData{}
	}
	for _, rule := range precedence {
		if rest, ok := matchPrefix(input, rule.prefix); ok {
			return parsed(rule.canonical, rest)
		}
	}
	name, rest := splitFirst(input)
	return parsed(strings.ToLower(name), rest)
}

func parsed(name, rest string) ParsedCommandData {
	if rest == "" {
		return ParsedCommandData{Name: name}
	}
	return ParsedCommandData{Name: name, Args: []string{rest}}
}

// matchPrefix matches prefix word by word, so runs of whitespace between words and a
// trailing argument are both allowed, but "journaladd" does not match "journal add".
func matchPrefix(input, prefix string) (string, bool) {
	rest := input
	for _, word := range strings.Fields(prefix) {
		var got string
		got, rest = splitFirst(rest)
		if !strings.EqualFold(got, word) {
			return "", false
		}
	}
	return rest, true
}

// splitFirst splits s at its first run of whitespace.
func splitFirst(s string) (string, string) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	i := strings.IndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i:])
}
