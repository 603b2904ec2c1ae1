package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"

	"github.com/danmuck/caseroom/internal/command"
	"github.com/danmuck/caseroom/internal/discovery"
	"github.com/danmuck/caseroom/internal/protocol"
	"github.com/danmuck/caseroom/internal/protocol/codec"
	"github.com/danmuck/caseroom/internal/protocol/session"
	"github.com/rs/zerolog/log"
)

// ErrQuit is returned by Handle when the user exits while not connected.
var ErrQuit = errors.New("client: quit")

// Directory is the view of advertised games the client joins from.
type Directory interface {
	Games() []discovery.Game
	Refresh()
	FindByCode(code string) (discovery.Game, bool)
}

// Hosted is an in-process host the client plays in as the host player.
type Hosted interface {
	ConnectLocal() (net.Conn, error)
	JoinCode() string
	Close() error
}

// HostFunc starts an in-process host on behalf of "host game".
type HostFunc func(ctx context.Context, displayName string) (Hosted, error)

type Config struct {
	DisplayName string
	Session     session.Config
	Directory   Directory
	Host        HostFunc
	Out         io.Writer
	// Dial defaults to a TCP dialer bounded by the handshake timeout.
	Dial func(ctx context.Context, addr string) (net.Conn, error)
}

// Client is the guest-side runtime: it executes local commands and relays wire commands.
type Client struct {
	cfg     Config
	codec   *codec.Codec
	exam    *Exam
	factory Factory
	out     *printer

	mu       sync.Mutex
	role     command.Role
	state    command.State
	name     string
	playerID string
	title    string
	conn     *session.Conn
	hosted   Hosted
}

func New(cfg Config) (*Client, error) {
	c, err := codec.New()
	if err != nil {
		return nil, err
	}
	cfg.Session = cfg.Session.WithDefaults()
	if cfg.Out == nil {
		cfg.Out = io.Discard
	}
	if cfg.Dial == nil {
		d := &net.Dialer{Timeout: cfg.Session.HandshakeTimeout}
		cfg.Dial = func(ctx context.Context, addr string) (net.Conn, error) {
			return d.DialContext(ctx, "tcp", addr)
		}
	}
	name := strings.TrimSpace(cfg.DisplayName)
	if name == "" {
		name = "detective"
	}
	exam := &Exam{}
	return &Client{
		cfg:     cfg,
		codec:   c,
		exam:    exam,
		factory: Factory{Exam: exam},
		out:     &printer{w: cfg.Out},
		role:    command.RoleGuest,
		state:   command.StateIdle,
		name:    name,
	}, nil
}

func (c *Client) State() command.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) Role() command.Role {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.role
}

func (c *Client) DisplayName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.name
}

// Handle parses and executes one line of user input. Rejections come back as
// ValidationErrors and nothing is sent.
func (c *Client) Handle(ctx context.Context, line string) error {
	c.mu.Lock()
	role, state := c.role, c.state
	c.mu.Unlock()

	cmd, err := c.factory.Build(Parse(line), role, state)
	if err != nil {
		return err
	}
	return c.Execute(ctx, cmd)
}

// Execute runs a local command here and sends every other command to the host.
func (c *Client) Execute(ctx context.Context, cmd command.Command) error {
	switch v := cmd.(type) {
	case *command.Help:
		c.printHelp()
		return nil
	case *command.HostGame:
		return c.hostGame(ctx)
	case *command.ListGames:
		c.printGames()
		return nil
	case *command.RefreshGames:
		if c.cfg.Directory == nil {
			return protocol.Reject(CmdRefreshGames, "discovery is not running")
		}
		c.cfg.Directory.Refresh()
		c.out.println("searching for games...")
		return nil
	case *command.JoinPublicGame:
		g, err := c.resolvePublic(v.ID)
		if err != nil {
			return err
		}
		return c.dialAndJoin(ctx, g)
	case *command.JoinPrivateGame:
		if c.cfg.Directory == nil {
			return protocol.Reject(CmdJoinPrivateGame, "discovery is not running")
		}
		g, ok := c.cfg.Directory.FindByCode(v.Code)
		if !ok {
			return protocol.Reject(CmdJoinPrivateGame, "no game with code %q is advertised right now", v.Code)
		}
		return c.dialAndJoin(ctx, g)
	}

	conn := c.currentConn()
	if conn == nil {
		switch v := cmd.(type) {
		case *command.Exit:
			return ErrQuit
		case *command.SetName:
			c.mu.Lock()
			c.name = v.Name
			c.mu.Unlock()
			c.out.printf("you are now known as %s", v.Name)
			return nil
		}
		return protocol.Reject(string(cmd.Kind()), "not connected to a game")
	}
	if err := conn.Send(cmd); err != nil {
		log.Warn().Err(err).Str("kind", string(cmd.Kind())).Msg("client.Execute send failed")
		c.disconnected(conn, err)
		return err
	}
	return nil
}

// Connect performs the handshake on raw and starts applying host events.
func (c *Client) Connect(raw net.Conn, joinCode string) error {
	conn := session.NewConn(raw, c.codec, c.cfg.Session)
	welcome, err := conn.Handshake(&command.Hello{DisplayName: c.DisplayName(), JoinCode: joinCode})
	if err != nil {
		_ = conn.Close()
		return err
	}

	c.mu.Lock()
	if c.conn != nil {
		c.mu.Unlock()
		_ = conn.Close()
		return protocol.Reject("join", "already connected")
	}
	c.conn = conn
	c.role = welcome.Role
	c.state = welcome.State
	c.playerID = welcome.AssignedID
	c.title = welcome.CaseTitle
	c.mu.Unlock()

	log.Info().
		Str("player", welcome.AssignedID).
		Str("session", welcome.SessionID).
		Str("role", string(welcome.Role)).
		Msg("client.Connect joined")
	c.out.println(welcome.Description())
	go c.readLoop(conn)
	return nil
}

// Close drops the host connection and any in-process host.
func (c *Client) Close() {
	if conn := c.currentConn(); conn != nil {
		c.disconnected(conn, nil)
	}
}

func (c *Client) currentConn() *session.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

func (c *Client) hostGame(ctx context.Context) error {
	if c.cfg.Host == nil {
		return protocol.Reject(CmdHostGame, "hosting is not available in this build")
	}
	hosted, err := c.cfg.Host(ctx, c.DisplayName())
	if err != nil {
		return fmt.Errorf("client: start host: %w", err)
	}
	raw, err := hosted.ConnectLocal()
	if err != nil {
		_ = hosted.Close()
		return fmt.Errorf("client: connect to local host: %w", err)
	}
	if err := c.Connect(raw, hosted.JoinCode()); err != nil {
		_ = hosted.Close()
		return err
	}
	c.mu.Lock()
	c.hosted = hosted
	c.mu.Unlock()
	c.out.printf("hosting; players join with code %s", hosted.JoinCode())
	return nil
}

func (c *Client) resolvePublic(id string) (discovery.Game, error) {
	if c.cfg.Directory == nil {
		return discovery.Game{}, protocol.Reject(CmdJoinPublicGame, "discovery is not running")
	}
	games := c.cfg.Directory.Games()
	if n, err := strconv.Atoi(id); err == nil {
		if n < 1 || n > len(games) {
			return discovery.Game{}, protocol.Reject(CmdJoinPublicGame, "no game numbered %d; list public games to see the list", n)
		}
		return games[n-1], nil
	}
	for _, g := range games {
		if g.SessionID == id {
			return g, nil
		}
	}
	return discovery.Game{}, protocol.Reject(CmdJoinPublicGame, "no public game %q; list public games to see the list", id)
}

func (c *Client) dialAndJoin(ctx context.Context, g discovery.Game) error {
	if g.MaxPlayers > 0 && g.PlayerCount >= g.MaxPlayers {
		return protocol.Reject("join", "%q is full", g.DisplayName)
	}
	raw, err := c.cfg.Dial(ctx, g.Address())
	if err != nil {
		return fmt.Errorf("client: dial %s: %w", g.Address(), err)
	}
	return c.Connect(raw, g.JoinCode)
}

func (c *Client) readLoop(conn *session.Conn) {
	for {
		cmd, err := conn.Receive()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Debug().Err(err).Msg("client.readLoop receive failed")
			}
			c.disconnected(conn, err)
			return
		}
		c.apply(cmd)
	}
}

func (c *Client) apply(cmd command.Command) {
	switch v := cmd.(type) {
	case *command.StateChanged:
		if !v.State.Valid() {
			log.Warn().Str("state", string(v.State)).Msg("client.apply ignored unknown state")
			return
		}
		c.mu.Lock()
		c.state = v.State
		c.mu.Unlock()
		if v.State != command.StateExamInProgress {
			c.exam.Clear()
		}
		c.out.println(v.Description())
	case *command.ExamQuestion:
		c.exam.SetQuestion(v)
		c.out.println(RenderQuestion(v))
	case *command.SetName:
		if v.PlayerID() == c.playerIDSnapshot() {
			c.mu.Lock()
			c.name = v.Name
			c.mu.Unlock()
			c.out.printf("you are now known as %s", v.Name)
		}
	case *command.Notice, *command.ExamResult, *command.Rejected:
		c.out.println(v.Description())
	default:
		log.Warn().Str("kind", string(cmd.Kind())).Msg("client.apply unexpected command from host")
	}
}

func (c *Client) playerIDSnapshot() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playerID
}

// disconnected resets to idle if conn is still the active connection.
func (c *Client) disconnected(conn *session.Conn, cause error) {
	c.mu.Lock()
	if c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.role = command.RoleGuest
	c.state = command.StateIdle
	c.playerID = ""
	hosted := c.hosted
	c.hosted = nil
	c.mu.Unlock()

	_ = conn.Close()
	if hosted != nil {
		_ = hosted.Close()
	}
	c.exam.Clear()
	if cause != nil && !errors.Is(cause, io.EOF) {
		c.out.printf("disconnected: %v", cause)
		return
	}
	c.out.println("disconnected")
}

func (c *Client) printHelp() {
	c.mu.Lock()
	role, state := c.role, c.state
	c.mu.Unlock()
	c.out.printf("commands while %s (%s):", state, role)
	for _, line := range Available(role, state) {
		c.out.println("  " + line)
	}
}

func (c *Client) printGames() {
	if c.cfg.Directory == nil {
		c.out.println("discovery is not running")
		return
	}
	games := c.cfg.Directory.Games()
	if len(games) == 0 {
		c.out.println("no games found yet; hosts announce themselves every second, try again shortly")
		return
	}
	for i, g := range games {
		c.out.printf("  %d) %s hosted by %s, %d/%d players", i+1, g.DisplayName, g.HostDisplayName, g.PlayerCount, g.MaxPlayers)
	}
}

type printer struct {
	mu sync.Mutex
	w  io.Writer
}

func (p *printer) println(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w, s)
}

func (p *printer) printf(format string, args ...any) {
	p.println(fmt.Sprintf(format, args...))
}
