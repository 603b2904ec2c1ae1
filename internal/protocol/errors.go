package protocol

import (
	"errors"
	"fmt"
)

var (
	// ErrProtocol marks oversized or malformed frames and streams that end mid-frame.
	ErrProtocol = errors.New("protocol: protocol error")
	// ErrDeserialization marks payloads whose discriminator is not allow-listed or whose bytes are corrupt.
	ErrDeserialization = errors.New("protocol: deserialization error")
	// ErrValidation marks commands that are invalid for the current role or state.
	ErrValidation = errors.New("protocol: validation error")
	// ErrNotFound marks rooms, objects, players or sessions absent at dispatch time.
	ErrNotFound = errors.New("protocol: not found")
)

// ValidationError is a local, non-fatal rejection carrying a user-facing hint.
type ValidationError struct {
	Command string
	Hint    string
}

func (e *ValidationError) Error() string {
	if e.Command == "" {
		return fmt.Sprintf("protocol: validation error: %s", e.Hint)
	}
	return fmt.Sprintf("protocol: validation error: %s: %s", e.Command, e.Hint)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Reject builds a ValidationError for command with a formatted hint.
func Reject(command string, format string, args ...any) error {
	return &ValidationError{Command: command, Hint: fmt.Sprintf(format, args...)}
}

// HintOf returns the user-facing hint of a validation error, or err's text otherwise.
func HintOf(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Hint
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// NotFound wraps ErrNotFound with the missing kind and name.
func NotFound(kind, name string) error {
	return fmt.Errorf("%w: %s %q", ErrNotFound, kind, name)
}
