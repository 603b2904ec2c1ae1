package session

import "time"

// Config defines per-connection transport timeouts. Zero disables a timeout.
type Config struct {
	HandshakeTimeout time.Duration
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
}

// DefaultConfig returns transport defaults. Reads are unbounded once joined because
// players may sit idle between commands.
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout: 10 * time.Second,
		ReadTimeout:      0,
		WriteTimeout:     10 * time.Second,
	}
}

// WithDefaults fills unset handshake and write timeouts.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = def.HandshakeTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	return c
}
