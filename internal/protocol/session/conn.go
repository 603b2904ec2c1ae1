package session

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/danmuck/caseroom/internal/command"
	"github.com/danmuck/caseroom/internal/observability"
	"github.com/danmuck/caseroom/internal/protocol/codec"
	"github.com/danmuck/caseroom/internal/protocol/frame"
)

var (
	ErrClosed            = errors.New("session: connection closed")
	ErrUnexpectedCommand = errors.New("session: unexpected command")
	ErrJoinRejected      = errors.New("session: join rejected")
)

// Conn sends and receives commands as frames over one stream.
// Send is safe for concurrent use; Receive must be called from a single goroutine.
type Conn struct {
	raw    net.Conn
	codec  *codec.Codec
	cfg    Config
	limits frame.Limits

	wmu    sync.Mutex
	closed sync.Once
}

func NewConn(raw net.Conn, c *codec.Codec, cfg Config) *Conn {
	return &Conn{
		raw:    raw,
		codec:  c,
		cfg:    cfg,
		limits: frame.DefaultLimits(),
	}
}

func (c *Conn) RemoteAddr() string {
	if addr := c.raw.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}

// Send encodes cmd and writes it as one frame.
func (c *Conn) Send(cmd command.Command) error {
	payload, err := c.codec.Encode(cmd)
	if err != nil {
		return err
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if c.cfg.WriteTimeout > 0 {
		_ = c.raw.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	}
	if err := frame.WriteWithLimits(c.raw, payload, c.limits); err != nil {
		observability.RecordFrameError("write")
		return fmt.Errorf("session: send %s: %w", cmd.Kind(), err)
	}
	observability.RecordFrame("write", len(payload))
	return nil
}

// Receive blocks for the next command. io.EOF means the peer closed at a frame boundary.
func (c *Conn) Receive() (command.Command, error) {
	return c.receive(c.cfg.ReadTimeout)
}

func (c *Conn) receive(timeout time.Duration) (command.Command, error) {
	if timeout > 0 {
		_ = c.raw.SetReadDeadline(time.Now().Add(timeout))
	} else {
		_ = c.raw.SetReadDeadline(time.Time{})
	}
	payload, err := frame.ReadWithLimits(c.raw, c.limits)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		observability.RecordFrameError("read")
		return nil, err
	}
	observability.RecordFrame("read", len(payload))
	return c.codec.Decode(payload)
}

func (c *Conn) Close() error {
	err := ErrClosed
	c.closed.Do(func() {
		err = c.raw.Close()
	})
	return err
}

// Handshake sends hello and waits for the host's welcome.
func (c *Conn) Handshake(hello *command.Hello) (*command.Welcome, error) {
	if err := c.Send(hello); err != nil {
		return nil, err
	}
	cmd, err := c.receive(c.cfg.HandshakeTimeout)
	if err != nil {
		return nil, err
	}
	switch v := cmd.(type) {
	case *command.Welcome:
		return v, nil
	case *command.Rejected:
		return nil, fmt.Errorf("%w: %s", ErrJoinRejected, v.Reason)
	default:
		return nil, fmt.Errorf("%w: %s during handshake", ErrUnexpectedCommand, cmd.Kind())
	}
}

// AwaitHello reads the first command on a fresh host-side connection.
func (c *Conn) AwaitHello() (*command.Hello, error) {
	cmd, err := c.receive(c.cfg.HandshakeTimeout)
	if err != nil {
		return nil, err
	}
	hello, ok := cmd.(*command.Hello)
	if !ok {
		return nil, fmt.Errorf("%w: %s before hello", ErrUnexpectedCommand, cmd.Kind())
	}
	return hello, nil
}
