package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/caseroom/internal/discovery"
	"github.com/danmuck/caseroom/internal/host"
)

// DefaultPath is where config init writes and where commands look by default.
const DefaultPath = "caseroom.toml"

// Config is the resolved settings for one caseroom process.
type Config struct {
	DisplayName string
	CaseFile    string
	Host        host.Config
	Discovery   discovery.Config
}

func Default() Config {
	name := "detective"
	if u := strings.TrimSpace(os.Getenv("USER")); u != "" {
		name = u
	}
	h := host.DefaultConfig()
	return Config{
		DisplayName: name,
		Host:        h,
		Discovery:   h.Discovery,
	}
}

type fileConfig struct {
	DisplayName string        `toml:"display_name"`
	Host        hostFile      `toml:"host"`
	Discovery   discoveryFile `toml:"discovery"`
}

type hostFile struct {
	ListenAddr       string   `toml:"listen_addr"`
	MaxPlayers       int      `toml:"max_players"`
	Public           bool     `toml:"public"`
	JoinCode         string   `toml:"join_code"`
	Advertise        bool     `toml:"advertise"`
	CaseFile         string   `toml:"case_file"`
	StatusAddr       string   `toml:"status_addr"`
	CORSOrigins      []string `toml:"cors_origins"`
	HandshakeTimeout string   `toml:"handshake_timeout"`
	ReadTimeout      string   `toml:"read_timeout"`
	WriteTimeout     string   `toml:"write_timeout"`
}

type discoveryFile struct {
	Port              int    `toml:"port"`
	BroadcastAddr     string `toml:"broadcast_addr"`
	BroadcastInterval string `toml:"broadcast_interval"`
	ReceiveTimeout    string `toml:"receive_timeout"`
}

// Load overlays the keys present in path onto Default. An empty path, or the default
// path when it does not exist, yields the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) && path == DefaultPath {
		return Default(), nil
	}
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("config parse failed (%s): unknown key %q", path, undecoded[0].String())
	}

	if meta.IsDefined("display_name") {
		if name := strings.TrimSpace(raw.DisplayName); name != "" {
			cfg.DisplayName = name
		}
	}
	if err := applyHost(meta, raw.Host, &cfg); err != nil {
		return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	if err := applyDiscovery(meta, raw.Discovery, &cfg.Discovery); err != nil {
		return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	cfg.Host.Discovery = cfg.Discovery
	cfg.Host.HostDisplayName = cfg.DisplayName
	return cfg, cfg.Validate()
}

func applyHost(meta toml.MetaData, raw hostFile, cfg *Config) error {
	h := &cfg.Host
	if meta.IsDefined("host", "listen_addr") {
		h.ListenAddr = strings.TrimSpace(raw.ListenAddr)
	}
	if meta.IsDefined("host", "max_players") {
		h.MaxPlayers = raw.MaxPlayers
	}
	if meta.IsDefined("host", "public") {
		h.Public = raw.Public
	}
	if meta.IsDefined("host", "join_code") {
		h.JoinCode = strings.ToUpper(strings.TrimSpace(raw.JoinCode))
	}
	if meta.IsDefined("host", "advertise") {
		h.Advertise = raw.Advertise
	}
	if meta.IsDefined("host", "case_file") {
		cfg.CaseFile = strings.TrimSpace(raw.CaseFile)
	}
	if meta.IsDefined("host", "status_addr") {
		h.StatusAddr = strings.TrimSpace(raw.StatusAddr)
	}
	if meta.IsDefined("host", "cors_origins") {
		h.CORSOrigins = raw.CORSOrigins
	}
	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"handshake_timeout", raw.HandshakeTimeout, &h.Session.HandshakeTimeout},
		{"read_timeout", raw.ReadTimeout, &h.Session.ReadTimeout},
		{"write_timeout", raw.WriteTimeout, &h.Session.WriteTimeout},
	}
	for _, d := range durations {
		if !meta.IsDefined("host", d.key) {
			continue
		}
		v, err := parseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("host.%s: %w", d.key, err)
		}
		*d.dst = v
	}
	return nil
}

func applyDiscovery(meta toml.MetaData, raw discoveryFile, d *discovery.Config) error {
	if meta.IsDefined("discovery", "port") {
		d.Port = raw.Port
	}
	if meta.IsDefined("discovery", "broadcast_addr") {
		d.BroadcastAddr = strings.TrimSpace(raw.BroadcastAddr)
	}
	if meta.IsDefined("discovery", "broadcast_interval") {
		v, err := parseDuration(raw.BroadcastInterval)
		if err != nil {
			return fmt.Errorf("discovery.broadcast_interval: %w", err)
		}
		d.BroadcastInterval = v
	}
	if meta.IsDefined("discovery", "receive_timeout") {
		v, err := parseDuration(raw.ReceiveTimeout)
		if err != nil {
			return fmt.Errorf("discovery.receive_timeout: %w", err)
		}
		d.ReceiveTimeout = v
	}
	return nil
}

func parseDuration(raw string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", d)
	}
	return d, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DisplayName) == "" {
		return fmt.Errorf("config missing display_name")
	}
	if c.Host.MaxPlayers < 1 {
		return fmt.Errorf("host.max_players must be at least 1")
	}
	if c.Discovery.Port < 1 || c.Discovery.Port > 65535 {
		return fmt.Errorf("discovery.port %d out of range", c.Discovery.Port)
	}
	return nil
}
