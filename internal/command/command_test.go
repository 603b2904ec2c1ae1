package command

import (
	"testing"

	"github.com/danmuck/caseroom/internal/testutil/testlog"
)

func TestNewCoversEveryKind(t *testing.T) {
	testlog.Start(t)
	all := append(WireKinds(), localKinds...)
	seen := make(map[Kind]struct{}, len(all))
	for _, k := range all {
		if _, dup := seen[k]; dup {
			t.Fatalf("duplicate kind %q", k)
		}
		seen[k] = struct{}{}
		cmd, ok := New(k)
		if !ok {
			t.Fatalf("New(%q) not constructible", k)
		}
		if cmd.Kind() != k {
			t.Fatalf("New(%q) returned kind %q", k, cmd.Kind())
		}
	}
	if _, ok := New("os.exec"); ok {
		t.Fatalf("unknown kind must not construct")
	}
}

func TestLocalKindsAreNotWireKinds(t *testing.T) {
	testlog.Start(t)
	for _, k := range WireKinds() {
		if IsLocal(k) {
			t.Fatalf("wire kind %q classified local", k)
		}
	}
	if !IsLocal(KindJoinPrivateGame) {
		t.Fatalf("join private game must be local")
	}
}

func TestOriginOverwrite(t *testing.T) {
	testlog.Start(t)
	var cmd Command = &Move{Origin: Origin{Player: "forged"}, Direction: "north"}
	cmd.SetPlayerID("p-1")
	if cmd.PlayerID() != "p-1" {
		t.Fatalf("unexpected player id: %q", cmd.PlayerID())
	}
}

func TestStateConnected(t *testing.T) {
	testlog.Start(t)
	if StateIdle.Connected() {
		t.Fatalf("idle is not connected")
	}
	if !StateExamInProgress.Connected() {
		t.Fatalf("exam state is connected")
	}
	if State("lost").Valid() {
		t.Fatalf("unknown state must be invalid")
	}
}
