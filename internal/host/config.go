package host

import (
	"time"

	"github.com/danmuck/caseroom/internal/discovery"
	"github.com/danmuck/caseroom/internal/protocol/session"
)

// Config defines how a hosted game listens, advertises and reports status.
type Config struct {
	ListenAddr      string
	MaxPlayers      int
	Public          bool
	JoinCode        string
	HostDisplayName string
	// Advertise enables the discovery broadcaster.
	Advertise   bool
	StatusAddr  string
	CORSOrigins []string
	// ShutdownTimeout bounds status server shutdown.
	ShutdownTimeout time.Duration
	Session         session.Config
	Discovery       discovery.Config
}

func DefaultConfig() Config {
	return Config{
		ListenAddr:      ":0",
		MaxPlayers:      DefaultMaxPlayers,
		Public:          true,
		Advertise:       true,
		ShutdownTimeout: 2 * time.Second,
		Session:         session.DefaultConfig(),
		Discovery:       discovery.DefaultConfig(),
	}
}

func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if c.ListenAddr == "" {
		c.ListenAddr = def.ListenAddr
	}
	if c.MaxPlayers <= 0 {
		c.MaxPlayers = def.MaxPlayers
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = def.ShutdownTimeout
	}
	c.Session = c.Session.WithDefaults()
	c.Discovery = c.Discovery.WithDefaults()
	return c
}
