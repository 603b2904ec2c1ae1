package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/danmuck/caseroom/internal/protocol"
)

// HeaderLen is the size of the big-endian length prefix.
const HeaderLen = 4

// MaxPayloadBytes is the largest payload a frame may declare.
const MaxPayloadBytes = 10 * 1024 * 1024

var (
	ErrTruncated       = fmt.Errorf("%w: frame: stream truncated mid-frame", protocol.ErrProtocol)
	ErrEmptyPayload    = fmt.Errorf("%w: frame: zero-length payload", protocol.ErrProtocol)
	ErrPayloadTooLarge = fmt.Errorf("%w: frame: payload too large", protocol.ErrProtocol)
)

// Limits constrains frame decode/encode memory use.
type Limits struct {
	MaxPayloadBytes uint32
}

func DefaultLimits() Limits {
	return Limits{MaxPayloadBytes: MaxPayloadBytes}
}

func (l Limits) withDefaults() Limits {
	if l.MaxPayloadBytes == 0 {
		l.MaxPayloadBytes = MaxPayloadBytes
	}
	return l
}

// Write frames payload onto w. It returns only after every byte is flushed or w fails.
func Write(w io.Writer, payload []byte) error {
	return WriteWithLimits(w, payload, DefaultLimits())
}

func WriteWithLimits(w io.Writer, payload []byte, limits Limits) error {
	limits = limits.withDefaults()
	if len(payload) == 0 {
		return ErrEmptyPayload
	}
	if uint64(len(payload)) > uint64(limits.MaxPayloadBytes) {
		return ErrPayloadTooLarge
	}
	buf := make([]byte, HeaderLen+len(payload))
	binary.BigEndian.PutUint32(buf[:HeaderLen], uint32(len(payload)))
	copy(buf[HeaderLen:], payload)
	return writeFull(w, buf)
}

// Read returns the next frame payload from r.
// io.EOF is returned when the peer closed cleanly at a frame boundary.
func Read(r io.Reader) ([]byte, error) {
	return ReadWithLimits(r, DefaultLimits())
}

func ReadWithLimits(r io.Reader, limits Limits) ([]byte, error) {
	limits = limits.withDefaults()
	var head [HeaderLen]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrTruncated
		}
		return nil, err
	}

	n := binary.BigEndian.Uint32(head[:])
	if n == 0 {
		return nil, ErrEmptyPayload
	}
	if n > limits.MaxPayloadBytes {
		return nil, fmt.Errorf("%w: declared=%d max=%d", ErrPayloadTooLarge, n, limits.MaxPayloadBytes)
	}

	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrTruncated
		}
		return nil, err
	}
	return payload, nil
}

// writeFull loops over short writes; a write that makes no progress is io.ErrShortWrite.
func writeFull(w io.Writer, b []byte) error {
	for len(b) > 0 {
		n, err := w.Write(b)
		if n > 0 {
			b = b[n:]
		}
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
	}
	return nil
}
