package discovery

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/danmuck/caseroom/internal/testutil/testlog"
)

func startTestListener(t *testing.T) *Listener {
	t.Helper()
	cfg := DefaultConfig()
	cfg.ListenAddr = "127.0.0.1:0"
	cfg.ReceiveTimeout = 50 * time.Millisecond
	l := NewListener(cfg, nil)
	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("start listener: %v", err)
	}
	t.Cleanup(l.Stop)
	return l
}

func sendTo(t *testing.T, addr net.Addr, b []byte) {
	t.Helper()
	conn, err := net.Dial("udp4", addr.String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if _, err := conn.Write(b); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

func TestListenerUpsertsReceivedPresence(t *testing.T) {
	testlog.Start(t)
	l := startTestListener(t)

	first := samplePresence()
	first.PlayerCount = 1
	b, err := EncodePresence(first)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	sendTo(t, l.Addr(), b)
	waitFor(t, func() bool { _, ok := l.Registry().Get("S1"); return ok })

	second := samplePresence()
	second.PlayerCount = 2
	b, _ = EncodePresence(second)
	sendTo(t, l.Addr(), b)
	waitFor(t, func() bool { g, _ := l.Registry().Get("S1"); return g.PlayerCount == 2 })

	if l.Registry().Len() != 1 {
		t.Fatalf("expected exactly one entry, got %d", l.Registry().Len())
	}
	g, ok := l.FindByCode("abcd")
	if !ok || g.HostAddress != "127.0.0.1" {
		t.Fatalf("unexpected lookup result %+v ok=%v", g, ok)
	}
}

func TestListenerSurvivesGarbage(t *testing.T) {
	testlog.Start(t)
	l := startTestListener(t)

	sendTo(t, l.Addr(), []byte("definitely not a presence packet"))
	sendTo(t, l.Addr(), []byte{0xff})
	b, _ := EncodePresence(samplePresence())
	sendTo(t, l.Addr(), b)

	waitFor(t, func() bool { return l.Registry().Len() == 1 })
	if !l.Running() {
		t.Fatalf("expected listener still running")
	}
}

func TestListenerBindFailureIsReturned(t *testing.T) {
	testlog.Start(t)
	l := startTestListener(t)

	port := l.Addr().(*net.UDPAddr).Port
	cfg := DefaultConfig()
	cfg.ListenAddr = net.JoinHostPort("127.0.0.1", strconv.Itoa(port))
	other := NewListener(cfg, nil)
	if err := other.Start(context.Background()); err == nil {
		other.Stop()
		t.Fatalf("expected bind failure on reused port")
	}
	if other.Running() {
		t.Fatalf("failed listener must not report running")
	}
	if !l.Running() {
		t.Fatalf("original listener must keep running")
	}
}

func TestListenerStopIsBounded(t *testing.T) {
	testlog.Start(t)
	l := startTestListener(t)

	start := time.Now()
	l.Stop()
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("stop took %s, expected within one receive timeout", elapsed)
	}
	if l.Running() {
		t.Fatalf("expected listener stopped")
	}
}

func TestListenerStopsOnContext(t *testing.T) {
	testlog.Start(t)
	cfg := DefaultConfig()
	cfg.ListenAddr = "127.0.0.1:0"
	cfg.ReceiveTimeout = 50 * time.Millisecond
	l := NewListener(cfg, nil)
	ctx, cancel := context.WithCancel(context.Background())
	if err := l.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	cancel()
	waitFor(t, func() bool { return !l.Running() })
	l.Stop()
}

func TestBroadcasterReachesListener(t *testing.T) {
	testlog.Start(t)
	l := startTestListener(t)
	port := l.Addr().(*net.UDPAddr).Port

	cfg := DefaultConfig()
	cfg.BroadcastAddr = "127.0.0.1"
	cfg.Port = port
	cfg.BroadcastInterval = 20 * time.Millisecond
	b := NewBroadcaster(cfg, samplePresence)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	waitFor(t, func() bool { _, ok := l.Registry().Get("S1"); return ok })

	// Clear-then-await: the entry returns on a later broadcast.
	l.Refresh()
	waitFor(t, func() bool { return len(l.Games()) == 1 })

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("broadcaster run: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("broadcaster did not stop")
	}
}
