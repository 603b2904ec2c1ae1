package client

import (
	"reflect"
	"testing"

	"github.com/danmuck/caseroom/internal/testutil/testlog"
)

func TestParsePrecedence(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		in   string
		want ParsedCommandData
	}{
		{"join private game ABCD", ParsedCommandData{Name: CmdJoinPrivateGame, Args: []string{"ABCD"}}},
		{"JOIN PRIVATE GAME abCD", ParsedCommandData{Name: CmdJoinPrivateGame, Args: []string{"abCD"}}},
		{"join public game 2", ParsedCommandData{Name: CmdJoinPublicGame, Args: []string{"2"}}},
		{"join game 2", ParsedCommandData{Name: CmdJoinPublicGame, Args: []string{"2"}}},
		{"list games", ParsedCommandData{Name: CmdListPublicGames}},
		{"list public games", ParsedCommandData{Name: CmdListPublicGames}},
		{"initiate final exam", ParsedCommandData{Name: CmdFinalExam}},
		{"final exam", ParsedCommandData{Name: CmdFinalExam}},
		{"request final exam", ParsedCommandData{Name: CmdRequestFinalExam}},
		{"request start case", ParsedCommandData{Name: CmdRequestStartCase}},
		{"start case", ParsedCommandData{Name: CmdStartCase}},
		{"submit exam answer 1 2 1", ParsedCommandData{Name: CmdSubmitExamAnswer, Args: []string{"1 2 1"}}},
		{"journal add The hat is   old", ParsedCommandData{Name: CmdJournalAdd, Args: []string{"The hat is   old"}}},
		{"journal", ParsedCommandData{Name: CmdJournal}},
		{"Ask   Watson", ParsedCommandData{Name: CmdAskWatson}},
		{"/setname Irene Adler", ParsedCommandData{Name: CmdSetName, Args: []string{"Irene Adler"}}},
		{"  move   North ", ParsedCommandData{Name: CmdMove, Args: []string{"North"}}},
		{"LOOK", ParsedCommandData{Name: CmdLook}},
		{"refresh games", ParsedCommandData{Name: CmdRefreshGames}},
		{"host game", ParsedCommandData{Name: CmdHostGame}},
		{"journaladd x", ParsedCommandData{Name: "journaladd", Args: []string{"x"}}},
		{"   ", ParsedCommandData{}},
	}
	for _, tc := range cases {
		got := Parse(tc.in)
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("Parse(%q) = %+v, want %+v", tc.in, got, tc.want)
		}
	}
}

func TestPrecedenceTableOrdersSpecificFirst(t *testing.T) {
	testlog.Start(t)
	for i, later := range precedence {
		for _, earlier := range precedence[:i] {
			if _, ok := matchPrefix(later.prefix, earlier.prefix); ok {
				t.Fatalf("%q is shadowed by earlier rule %q", later.prefix, earlier.prefix)
			}
		}
	}
}
