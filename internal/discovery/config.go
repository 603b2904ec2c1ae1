package discovery

import "time"

const (
	DefaultPort              = 51515
	DefaultBroadcastInterval = 1000 * time.Millisecond
	DefaultReceiveTimeout    = 2000 * time.Millisecond
	DefaultBroadcastAddr     = "255.255.255.255"
)

// Config defines discovery transport defaults.
type Config struct {
	Port int
	// ListenAddr overrides the bind address of the listener (default ":Port").
	ListenAddr        string
	BroadcastAddr     string
	BroadcastInterval time.Duration
	ReceiveTimeout    time.Duration
}

func DefaultConfig() Config {
	return Config{
		Port:              DefaultPort,
		BroadcastAddr:     DefaultBroadcastAddr,
		BroadcastInterval: DefaultBroadcastInterval,
		ReceiveTimeout:    DefaultReceiveTimeout,
	}
}

func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if c.Port <= 0 {
		c.Port = def.Port
	}
	if c.BroadcastAddr == "" {
		c.BroadcastAddr = def.BroadcastAddr
	}
	if c.BroadcastInterval <= 0 {
		c.BroadcastInterval = def.BroadcastInterval
	}
	if c.ReceiveTimeout <= 0 {
		c.ReceiveTimeout = def.ReceiveTimeout
	}
	return c
}
