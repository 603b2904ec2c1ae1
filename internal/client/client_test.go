package client

import (
	"bytes"
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/danmuck/caseroom/internal/command"
	"github.com/danmuck/caseroom/internal/discovery"
	"github.com/danmuck/caseroom/internal/protocol"
	"github.com/danmuck/caseroom/internal/protocol/codec"
	"github.com/danmuck/caseroom/internal/protocol/session"
	"github.com/danmuck/caseroom/internal/testutil/testlog"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type fakeDirectory struct {
	games     []discovery.Game
	refreshed int
}

func (d *fakeDirectory) Games() []discovery.Game { return d.games }
func (d *fakeDirectory) Refresh()                { d.refreshed++; d.games = nil }
func (d *fakeDirectory) FindByCode(code string) (discovery.Game, bool) {
	for _, g := range d.games {
		if strings.EqualFold(g.JoinCode, code) {
			return g, true
		}
	}
	return discovery.Game{}, false
}

// fakeHost answers the handshake on the far end of a pipe and hands back the host conn.
func fakeHost(t *testing.T, raw net.Conn, role command.Role, state command.State) <-chan *session.Conn {
	t.Helper()
	c, err := codec.New()
	if err != nil {
		t.Fatalf("codec: %v", err)
	}
	ready := make(chan *session.Conn, 1)
	go func() {
		conn := session.NewConn(raw, c, session.DefaultConfig())
		if _, err := conn.AwaitHello(); err != nil {
			_ = conn.Close()
			close(ready)
			return
		}
		_ = conn.Send(&command.Welcome{AssignedID: "p1", SessionID: "S1", CaseTitle: "Test Case", Role: role, State: state})
		ready <- conn
	}()
	return ready
}

func newTestClient(t *testing.T, dir Directory, out *lockedBuffer) *Client {
	t.Helper()
	c, err := New(Config{DisplayName: "watson", Directory: dir, Out: out})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

func TestClientAppliesHostEvents(t *testing.T) {
	testlog.Start(t)
	out := &lockedBuffer{}
	c := newTestClient(t, nil, out)

	clientEnd, hostEnd := net.Pipe()
	ready := fakeHost(t, hostEnd, command.RoleGuest, command.StateInLobby)
	if err := c.Connect(clientEnd, "ABCD"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	host := <-ready
	defer host.Close()

	if c.State() != command.StateInLobby || c.Role() != command.RoleGuest {
		t.Fatalf("unexpected state %s role %s", c.State(), c.Role())
	}

	// A look in the lobby is rejected locally and nothing is sent.
	if err := c.Handle(context.Background(), "look"); !errors.Is(err, protocol.ErrValidation) {
		t.Fatalf("expected local rejection, got %v", err)
	}

	if err := host.Send(&command.StateChanged{State: command.StateInGame, Reason: "the case begins"}); err != nil {
		t.Fatalf("send state: %v", err)
	}
	eventually(t, func() bool { return c.State() == command.StateInGame })

	go func() { _ = c.Handle(context.Background(), "move north") }()
	got, err := host.Receive()
	if err != nil {
		t.Fatalf("host receive: %v", err)
	}
	if m, ok := got.(*command.Move); !ok || m.Direction != "north" {
		t.Fatalf("unexpected command %#v", got)
	}

	if err := host.Send(&command.StateChanged{State: command.StateExamInProgress}); err != nil {
		t.Fatalf("send state: %v", err)
	}
	if err := host.Send(&command.ExamQuestion{Index: 0, Total: 1, Prompt: "pick", Slots: twoSlotQuestion().Slots}); err != nil {
		t.Fatalf("send question: %v", err)
	}
	eventually(t, func() bool { _, ok := c.exam.Current(); return ok })

	go func() { _ = c.Handle(context.Background(), "submit exam answer 1 2 1") }()
	got, err = host.Receive()
	if err != nil {
		t.Fatalf("host receive: %v", err)
	}
	sub, ok := got.(*command.SubmitExamAnswer)
	if !ok || sub.Answers["slotA"] != "Q" || sub.Answers["slotB"] != "X" {
		t.Fatalf("unexpected submission %#v", got)
	}

	_ = host.Close()
	eventually(t, func() bool { return c.State() == command.StateIdle })
	if _, ok := c.exam.Current(); ok {
		t.Fatalf("exam must be cleared on disconnect")
	}
	if !strings.Contains(out.String(), "disconnected") {
		t.Fatalf("expected disconnect notice, got:\n%s", out.String())
	}
}

func TestClientLocalCommandsWhileIdle(t *testing.T) {
	testlog.Start(t)
	out := &lockedBuffer{}
	dir := &fakeDirectory{games: []discovery.Game{{DisplayName: "Case", HostDisplayName: "holmes", SessionID: "S1", JoinCode: "ABCD", IsPublic: true}}}
	c := newTestClient(t, dir, out)
	ctx := context.Background()

	if err := c.Handle(ctx, "list games"); err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out.String(), "1) Case hosted by holmes") {
		t.Fatalf("expected listing, got:\n%s", out.String())
	}
	if err := c.Handle(ctx, "refresh games"); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if dir.refreshed != 1 {
		t.Fatalf("expected refresh to reach the directory")
	}
	if err := c.Handle(ctx, "join private game ABCD"); !errors.Is(err, protocol.ErrValidation) {
		t.Fatalf("expected missing code rejection after refresh, got %v", err)
	}
	if err := c.Handle(ctx, "/setname Mycroft"); err != nil {
		t.Fatalf("setname: %v", err)
	}
	if c.DisplayName() != "Mycroft" {
		t.Fatalf("expected local rename, got %q", c.DisplayName())
	}
	if err := c.Handle(ctx, "look"); !errors.Is(err, protocol.ErrValidation) {
		t.Fatalf("expected look rejected while idle, got %v", err)
	}
	if err := c.Handle(ctx, "exit"); !errors.Is(err, ErrQuit) {
		t.Fatalf("expected quit, got %v", err)
	}
}

func TestClientJoinsByCodeThroughDial(t *testing.T) {
	testlog.Start(t)
	out := &lockedBuffer{}
	dir := &fakeDirectory{games: []discovery.Game{{DisplayName: "Case", SessionID: "S1", JoinCode: "ABCD", HostAddress: "10.0.0.9", Port: 4000}}}
	clientEnd, hostEnd := net.Pipe()
	ready := fakeHost(t, hostEnd, command.RoleGuest, command.StateInLobby)

	var dialed string
	c, err := New(Config{
		DisplayName: "watson",
		Directory:   dir,
		Out:         out,
		Dial: func(_ context.Context, addr string) (net.Conn, error) {
			dialed = addr
			return clientEnd, nil
		},
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer c.Close()

	if err := c.Handle(context.Background(), "join private game abcd"); err != nil {
		t.Fatalf("join: %v", err)
	}
	host := <-ready
	defer host.Close()
	if dialed != "10.0.0.9:4000" {
		t.Fatalf("unexpected dial target %q", dialed)
	}
	if c.State() != command.StateInLobby {
		t.Fatalf("expected lobby state, got %s", c.State())
	}
}

func TestRunConsolePrintsHints(t *testing.T) {
	testlog.Start(t)
	out := &lockedBuffer{}
	c := newTestClient(t, nil, out)
	in := strings.NewReader("dance\nmove\nexit\nlook\n")
	if err := RunConsole(context.Background(), c, in); err != nil {
		t.Fatalf("console: %v", err)
	}
	text := out.String()
	if !strings.Contains(text, `unknown command "dance"`) {
		t.Fatalf("expected unknown command hint, got:\n%s", text)
	}
	if strings.Contains(text, `"look" is not available`) {
		t.Fatalf("console must stop at exit, got:\n%s", text)
	}
}
