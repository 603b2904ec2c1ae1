package casefile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/danmuck/caseroom/internal/testutil/testlog"
)

func TestDemoCaseIsValid(t *testing.T) {
	testlog.Start(t)
	c := Demo()
	if c.StartRoom != "study" {
		t.Fatalf("unexpected start room %q", c.StartRoom)
	}
	room, ok := c.Room("study")
	if !ok {
		t.Fatalf("expected study room")
	}
	if to, ok := room.Exit("EAST"); !ok || to != "hotel" {
		t.Fatalf("expected case-insensitive exit to hotel, got %q ok=%v", to, ok)
	}
	if _, ok := room.Object("Battered Hat"); !ok {
		t.Fatalf("expected hat lookup by name")
	}
	if got := room.Directions(); len(got) != 2 || got[0] != "east" || got[1] != "south" {
		t.Fatalf("unexpected directions %v", got)
	}
	if len(c.SuspectsIn("hotel")) != 2 {
		t.Fatalf("expected two suspects in hotel")
	}
	if len(c.Exam) != 2 {
		t.Fatalf("expected two exam questions, got %d", len(c.Exam))
	}
}

func TestDemoReturnsIndependentCopies(t *testing.T) {
	testlog.Start(t)
	a, b := Demo(), Demo()
	a.Rooms[0].Name = "changed"
	if b.Rooms[0].Name == "changed" {
		t.Fatalf("demo copies share state")
	}
}

func TestScoreAndCheckAnswers(t *testing.T) {
	testlog.Start(t)
	q := Demo().Exam[0]
	correct, total := q.Score(map[string]string{"culprit": "ryder", "method": "pocket"})
	if correct != 1 || total != 2 {
		t.Fatalf("unexpected score %d/%d", correct, total)
	}
	if err := q.CheckAnswers(map[string]string{"culprit": "ryder", "method": "goose"}); err != nil {
		t.Fatalf("expected valid answers: %v", err)
	}
	if err := q.CheckAnswers(map[string]string{"culprit": "watson", "method": "goose"}); err == nil {
		t.Fatalf("expected unknown choice error")
	}
	if err := q.CheckAnswers(map[string]string{"culprit": "ryder"}); err == nil {
		t.Fatalf("expected count mismatch error")
	}
}

func TestLoadRejectsInvalidCases(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	cases := map[string]string{
		"missing-start": "title = \"x\"\nstart_room = \"nowhere\"\n[[rooms]]\nid = \"a\"\n",
		"bad-exit":      "title = \"x\"\nstart_room = \"a\"\n[[rooms]]\nid = \"a\"\n[rooms.exits]\nnorth = \"b\"\n",
		"unknown-key":   "title = \"x\"\nstart_room = \"a\"\nsurprise = 1\n[[rooms]]\nid = \"a\"\n",
	}
	for name, body := range cases {
		path := filepath.Join(dir, name+".toml")
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		if _, err := Load(path); !errors.Is(err, ErrInvalidCase) {
			t.Fatalf("%s: expected ErrInvalidCase, got %v", name, err)
		}
	}
}

func TestLoadOrDemo(t *testing.T) {
	testlog.Start(t)
	c, err := LoadOrDemo("")
	if err != nil || c.ID != "blue-carbuncle" {
		t.Fatalf("expected demo case, got %v err=%v", c, err)
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "mini.toml")
	body := "title = \"Mini\"\nstart_room = \"a\"\n[[rooms]]\nid = \"a\"\nname = \"A\"\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err = LoadOrDemo(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Title != "Mini" {
		t.Fatalf("unexpected title %q", c.Title)
	}
	if _, err := Load(filepath.Join(dir, "absent.toml")); err == nil {
		t.Fatalf("expected read error")
	}
}
