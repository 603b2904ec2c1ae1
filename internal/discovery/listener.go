package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danmuck/caseroom/internal/observability"
	"github.com/rs/zerolog/log"
)

var ErrListenerRunning = errors.New("discovery: listener already running")

// Listener receives presence packets on the discovery port and upserts the registry.
type Listener struct {
	cfg      Config
	registry *Registry
	now      func() time.Time

	running atomic.Bool
	mu      sync.Mutex
	conn    *net.UDPConn
	done    chan struct{}
}

func NewListener(cfg Config, registry *Registry) *Listener {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Listener{
		cfg:      cfg.WithDefaults(),
		registry: registry,
		now:      time.Now,
	}
}

func (l *Listener) Registry() *Registry {
	return l.registry
}

// Start binds the discovery port and runs the receive loop on its own goroutine.
// A bind failure is returned to the caller and leaves the listener stopped.
func (l *Listener) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running.Load() {
		return ErrListenerRunning
	}
	addr := l.cfg.ListenAddr
	if addr == "" {
		addr = net.JoinHostPort("", strconv.Itoa(l.cfg.Port))
	}
	udpAddr, err := net.ResolveUDPAddr("udp4", addr)
	if err != nil {
		return fmt.Errorf("discovery: resolve %q: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp4", udpAddr)
	if err != nil {
		log.Error().Err(err).Str("addr", addr).Msg("discovery.Listener.Start bind failed")
		return fmt.Errorf("discovery: bind %q: %w", addr, err)
	}
	l.conn = conn
	l.done = make(chan struct{})
	l.running.Store(true)
	log.Info().Str("addr", conn.LocalAddr().String()).Msg("discovery.Listener.Start listening")
	go l.loop(ctx, conn, l.done)
	return nil
}

// Stop clears the running flag and waits for the loop to notice it.
// It returns within one ReceiveTimeout.
func (l *Listener) Stop() {
	l.mu.Lock()
	done := l.done
	l.running.Store(false)
	l.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Running reports whether the receive loop is active.
func (l *Listener) Running() bool {
	return l.running.Load()
}

func (l *Listener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn == nil {
		return nil
	}
	return l.conn.LocalAddr()
}

// Refresh clears the registry; entries reappear as hosts keep broadcasting.
func (l *Listener) Refresh() {
	l.registry.Clear()
}

func (l *Listener) FindByCode(code string) (Game, bool) {
	return l.registry.FindByCode(code)
}

func (l *Listener) Games() []Game {
	return l.registry.Public()
}

func (l *Listener) loop(ctx context.Context, conn *net.UDPConn, done chan struct{}) {
	defer close(done)
	defer conn.Close()
	defer l.running.Store(false)

	buf := make([]byte, MaxPacketBytes)
	for l.running.Load() && ctx.Err() == nil {
		_ = conn.SetReadDeadline(time.Now().Add(l.cfg.ReceiveTimeout))
		n, from, err := conn.ReadFromUDP(buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.Warn().Err(err).Msg("discovery.Listener receive failed")
			continue
		}
		l.handlePacket(buf[:n], from)
	}
	log.Debug().Msg("discovery.Listener stopped")
}

func (l *Listener) handlePacket(b []byte, from *net.UDPAddr) {
	p, err := DecodePresence(b)
	if err != nil {
		observability.RecordDiscoveryPacket("rx", "rejected")
		log.Debug().Err(err).Str("from", from.String()).Msg("discovery.Listener dropped packet")
		return
	}
	observability.RecordDiscoveryPacket("rx", "accepted")
	l.registry.Upsert(GameFromPresence(p, from.IP.String(), l.now()))
}
