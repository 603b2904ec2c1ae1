// Package codec encodes session commands as CBOR envelopes behind an explicit allow-list.
package codec

import (
	"fmt"

	"github.com/danmuck/caseroom/internal/command"
	"github.com/danmuck/caseroom/internal/protocol"
	"github.com/fxamacker/cbor/v2"
	"github.com/rs/zerolog/log"
)

// envelope is the only structure decoded before the discriminator is checked.
type envelope struct {
	Kind string          `cbor:"1,keyasint"`
	Body cbor.RawMessage `cbor:"2,keyasint"`
}

// Codec serializes allow-listed commands. Build one with New and pass it to every component that needs it.
type Codec struct {
	enc       cbor.EncMode
	dec       cbor.DecMode
	allowed   map[command.Kind]struct{}
	construct func(command.Kind) (command.Command, bool)
}

type Option func(*Codec)

// WithAllowed replaces the allow-list. Kinds handled only on the client are never admitted.
func WithAllowed(kinds ...command.Kind) Option {
	return func(c *Codec) {
		c.allowed = make(map[command.Kind]struct{}, len(kinds))
		for _, k := range kinds {
			if command.IsLocal(k) {
				continue
			}
			c.allowed[k] = struct{}{}
		}
	}
}

// New returns a codec admitting every wire kind unless narrowed by options.
func New(opts ...Option) (*Codec, error) {
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("codec: enc mode: %w", err)
	}
	dec, err := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyEnforcedAPF,
		ExtraReturnErrors: cbor.ExtraDecErrorUnknownField,
		MaxNestedLevels:   16,
		MaxArrayElements:  4096,
		MaxMapPairs:       4096,
		IndefLength:       cbor.IndefLengthForbidden,
		TagsMd:            cbor.TagsForbidden,
	}.DecMode()
	if err != nil {
		return nil, fmt.Errorf("codec: dec mode: %w", err)
	}
	c := &Codec{
		enc:       enc,
		dec:       dec,
		construct: command.New,
	}
	WithAllowed(command.WireKinds()...)(c)
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Allowed reports whether k may cross the transport.
func (c *Codec) Allowed(k command.Kind) bool {
	_, ok := c.allowed[k]
	return ok
}

// Encode returns the envelope bytes for cmd.
func (c *Codec) Encode(cmd command.Command) ([]byte, error) {
	if cmd == nil {
		return nil, fmt.Errorf("%w: nil command", protocol.ErrDeserialization)
	}
	if !c.Allowed(cmd.Kind()) {
		return nil, fmt.Errorf("%w: kind %q is not allow-listed", protocol.ErrDeserialization, cmd.Kind())
	}
	body, err := c.enc.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("%w: encode %s: %v", protocol.ErrDeserialization, cmd.Kind(), err)
	}
	out, err := c.enc.Marshal(envelope{Kind: string(cmd.Kind()), Body: body})
	if err != nil {
		return nil, fmt.Errorf("%w: encode envelope: %v", protocol.ErrDeserialization, err)
	}
	return out, nil
}

// Decode inspects the discriminator first and constructs a variant only if it is allow-listed.
func (c *Codec) Decode(b []byte) (command.Command, error) {
	var env envelope
	if err := c.dec.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("%w: malformed envelope: %v", protocol.ErrDeserialization, err)
	}
	kind := command.Kind(env.Kind)
	if !c.Allowed(kind) {
		log.Warn().Str("kind", env.Kind).Msg("codec.Decode rejected kind outside allow-list")
		return nil, fmt.Errorf("%w: kind %q is not allow-listed", protocol.ErrDeserialization, env.Kind)
	}
	if len(env.Body) == 0 {
		return nil, fmt.Errorf("%w: kind %q has no body", protocol.ErrDeserialization, env.Kind)
	}
	cmd, ok := c.construct(kind)
	if !ok {
		return nil, fmt.Errorf("%w: kind %q has no variant", protocol.ErrDeserialization, env.Kind)
	}
	if err := c.dec.Unmarshal(env.Body, cmd); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", protocol.ErrDeserialization, env.Kind, err)
	}
	return cmd, nil
}
