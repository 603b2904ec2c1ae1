package session

import (
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/danmuck/caseroom/internal/command"
	"github.com/danmuck/caseroom/internal/protocol"
	"github.com/danmuck/caseroom/internal/protocol/codec"
	"github.com/danmuck/caseroom/internal/testutil/testlog"
)

func pipePair(t *testing.T) (*Conn, *Conn) {
	t.Helper()
	c, err := codec.New()
	if err != nil {
		t.Fatalf("codec: %v", err)
	}
	a, b := net.Pipe()
	cfg := Config{HandshakeTimeout: 2 * time.Second, WriteTimeout: 2 * time.Second}
	left, right := NewConn(a, c, cfg), NewConn(b, c, cfg)
	t.Cleanup(func() {
		_ = left.Close()
		_ = right.Close()
	})
	return left, right
}

func TestSendReceive(t *testing.T) {
	testlog.Start(t)
	client, host := pipePair(t)

	errc := make(chan error, 1)
	go func() {
		errc <- client.Send(&command.Move{Direction: "north"})
	}()
	cmd, err := host.Receive()
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if err := <-errc; err != nil {
		t.Fatalf("send: %v", err)
	}
	mv, ok := cmd.(*command.Move)
	if !ok || mv.Direction != "north" {
		t.Fatalf("unexpected command: %#v", cmd)
	}
}

func TestHandshakeWelcome(t *testing.T) {
	testlog.Start(t)
	client, host := pipePair(t)

	go func() {
		hello, err := host.AwaitHello()
		if err != nil {
			return
		}
		if hello.DisplayName != "Watson" || hello.JoinCode != "ZZ12" {
			_ = host.Send(&command.Rejected{Reason: "unexpected hello"})
			return
		}
		_ = host.Send(&command.Welcome{AssignedID: "p-2", CaseTitle: "Silver Blaze", Role: command.RoleGuest, State: command.StateInLobby})
	}()

	welcome, err := client.Handshake(&command.Hello{DisplayName: "Watson", JoinCode: "ZZ12"})
	if err != nil {
		t.Fatalf("handshake: %v", err)
	}
	if welcome.AssignedID != "p-2" || welcome.State != command.StateInLobby {
		t.Fatalf("unexpected welcome: %+v", welcome)
	}
}

func TestHandshakeRejected(t *testing.T) {
	testlog.Start(t)
	client, host := pipePair(t)
	go func() {
		if _, err := host.AwaitHello(); err == nil {
			_ = host.Send(&command.Rejected{Reason: "wrong join code"})
		}
	}()
	if _, err := client.Handshake(&command.Hello{DisplayName: "Moriarty", JoinCode: "NOPE"}); !errors.Is(err, ErrJoinRejected) {
		t.Fatalf("expected ErrJoinRejected, got %v", err)
	}
}

func TestAwaitHelloRejectsOtherCommands(t *testing.T) {
	testlog.Start(t)
	client, host := pipePair(t)
	go func() { _ = client.Send(&command.Look{}) }()
	if _, err := host.AwaitHello(); !errors.Is(err, ErrUnexpectedCommand) {
		t.Fatalf("expected ErrUnexpectedCommand, got %v", err)
	}
}

func TestReceiveCleanCloseIsEOF(t *testing.T) {
	testlog.Start(t)
	client, host := pipePair(t)
	_ = client.Close()
	if _, err := host.Receive(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestSendLocalKindFails(t *testing.T) {
	testlog.Start(t)
	client, _ := pipePair(t)
	if err := client.Send(&command.Help{}); !errors.Is(err, protocol.ErrDeserialization) {
		t.Fatalf("expected local kind refusal, got %v", err)
	}
}
