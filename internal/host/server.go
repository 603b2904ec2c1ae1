package host

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"

	"github.com/danmuck/caseroom/internal/casefile"
	"github.com/danmuck/caseroom/internal/command"
	"github.com/danmuck/caseroom/internal/discovery"
	"github.com/danmuck/caseroom/internal/protocol"
	"github.com/danmuck/caseroom/internal/protocol/codec"
	"github.com/danmuck/caseroom/internal/protocol/session"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var ErrServerStarted = errors.New("host: server already started")

// Server accepts player connections for one Session and advertises it on the LAN.
type Server struct {
	cfg   Config
	sess  *Session
	codec *codec.Codec

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	ln      net.Listener
	wg      sync.WaitGroup
	started bool
}

func NewServer(cfg Config, c *casefile.Case) (*Server, error) {
	if c == nil {
		return nil, fmt.Errorf("host: no case selected")
	}
	cfg = cfg.WithDefaults()
	if strings.TrimSpace(cfg.JoinCode) == "" {
		cfg.JoinCode = NewJoinCode()
	}
	cd, err := codec.New()
	if err != nil {
		return nil, err
	}
	return &Server{
		cfg:   cfg,
		sess:  NewSession(c, cfg.MaxPlayers),
		codec: cd,
	}, nil
}

// NewJoinCode returns a short upper-case code for private joins.
func NewJoinCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
}

func (s *Server) Session() *Session { return s.sess }
func (s *Server) JoinCode() string  { return s.cfg.JoinCode }

func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Start binds the game port and runs the session, accept loop, broadcaster and
// status server until ctx ends or the host leaves.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrServerStarted
	}
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("host: listen %q: %w", s.cfg.ListenAddr, err)
	}
	s.ln = ln
	s.started = true
	s.ctx, s.cancel = context.WithCancel(ctx)
	runCtx := s.ctx

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.sess.Run(runCtx)
	}()
	go func() {
		defer s.wg.Done()
		s.acceptLoop(runCtx, ln)
	}()
	go func() {
		select {
		case <-runCtx.Done():
		case <-s.sess.Done():
			s.cancel()
		}
		_ = ln.Close()
	}()

	if s.cfg.Advertise {
		b := discovery.NewBroadcaster(s.cfg.Discovery, s.Presence)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := b.Run(runCtx); err != nil {
				log.Error().Err(err).Msg("host.Server broadcaster stopped")
			}
		}()
	}
	if s.cfg.StatusAddr != "" {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.serveStatus(runCtx); err != nil {
				log.Error().Err(err).Str("addr", s.cfg.StatusAddr).Msg("host.Server status server stopped")
			}
		}()
	}

	log.Info().
		Str("addr", ln.Addr().String()).
		Str("session", s.sess.ID()).
		Bool("public", s.cfg.Public).
		Msg("host.Server.Start listening")
	return nil
}

// Close stops the server and waits for its goroutines.
func (s *Server) Close() error {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	s.wg.Wait()
	return nil
}

// Done is closed when the session has ended.
func (s *Server) Done() <-chan struct{} {
	return s.sess.Done()
}

// ConnectLocal returns an in-memory connection served as the host player.
func (s *Server) ConnectLocal() (net.Conn, error) {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil {
		return nil, fmt.Errorf("host: server not started")
	}
	clientEnd, hostEnd := net.Pipe()
	go s.ServeConn(ctx, hostEnd, command.RoleHost)
	return clientEnd, nil
}

// Presence is the discovery snapshot of this game.
func (s *Server) Presence() discovery.Presence {
	port := 0
	if addr, ok := s.Addr().(*net.TCPAddr); ok {
		port = addr.Port
	}
	name := s.sess.HostName()
	if name == "" {
		name = s.cfg.HostDisplayName
	}
	return discovery.Presence{
		CaseTitle:       s.sess.Title(),
		HostDisplayName: name,
		IsPublic:        s.cfg.Public,
		JoinCode:        s.cfg.JoinCode,
		TCPPort:         uint16(port),
		SessionID:       s.sess.ID(),
		PlayerCount:     s.sess.PlayerCount(),
		MaxPlayers:      s.sess.MaxPlayers(),
	}
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) {
	for {
		raw, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			log.Warn().Err(err).Msg("host.Server accept failed")
			continue
		}
		go s.ServeConn(ctx, raw, command.RoleGuest)
	}
}

// ServeConn runs the join handshake on raw and relays its commands until it closes.
func (s *Server) ServeConn(ctx context.Context, raw net.Conn, role command.Role) {
	conn := session.NewConn(raw, s.codec, s.cfg.Session)
	defer conn.Close()

	hello, err := conn.AwaitHello()
	if err != nil {
		log.Debug().Err(err).Str("remote", conn.RemoteAddr()).Msg("host.Server handshake failed")
		return
	}
	if role == command.RoleGuest && !strings.EqualFold(strings.TrimSpace(hello.JoinCode), s.cfg.JoinCode) {
		_ = conn.Send(&command.Rejected{Reason: "wrong join code"})
		return
	}
	welcome, out, err := s.sess.Join(ctx, hello, role)
	if err != nil {
		_ = conn.Send(&command.Rejected{Reason: protocol.HintOf(err)})
		return
	}
	if err := conn.Send(welcome); err != nil {
		s.sess.Leave(welcome.AssignedID)
		return
	}

	go func() {
		for cmd := range out {
			if err := conn.Send(cmd); err != nil {
				log.Debug().Err(err).Str("player", welcome.AssignedID).Msg("host.Server send failed")
				break
			}
		}
		// Closing unblocks the read loop below; drain so the session never stalls.
		_ = conn.Close()
		for range out {
		}
	}()

	for {
		cmd, err := conn.Receive()
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				log.Debug().Err(err).Str("player", welcome.AssignedID).Msg("host.Server receive failed")
			}
			s.sess.Leave(welcome.AssignedID)
			return
		}
		s.sess.Submit(welcome.AssignedID, cmd)
	}
}
