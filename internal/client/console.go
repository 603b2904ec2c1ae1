package client

import (
	"bufio"
	"context"
	"errors"
	"io"

	"github.com/danmuck/caseroom/internal/protocol"
)

// RunConsole feeds lines from in to c until input ends, ctx is done, or the user exits.
// Output shares the client's writer so host events and replies do not interleave mid-line.
func RunConsole(ctx context.Context, c *Client, in io.Reader) error {
	defer c.Close()
	c.out.println("type help for a list of commands")
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		err := c.Handle(ctx, sc.Text())
		switch {
		case err == nil:
		case errors.Is(err, ErrQuit):
			return nil
		case errors.Is(err, protocol.ErrValidation):
			c.out.println(protocol.HintOf(err))
		default:
			c.out.printf("error: %v", err)
		}
	}
	return sc.Err()
}
