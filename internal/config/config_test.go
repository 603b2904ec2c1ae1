package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/caseroom/internal/testutil/testlog"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "caseroom.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadOverlaysOnlyDefinedKeys(t *testing.T) {
	testlog.Start(t)
	path := writeConfig(t, `
display_name = "holmes"
[host]
max_players = 6
public = false
join_code = "abcd"
[discovery]
receive_timeout = "500ms"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	def := Default()
	if cfg.DisplayName != "holmes" || cfg.Host.HostDisplayName != "holmes" {
		t.Fatalf("unexpected display name %+v", cfg)
	}
	if cfg.Host.MaxPlayers != 6 || cfg.Host.Public || cfg.Host.JoinCode != "ABCD" {
		t.Fatalf("unexpected host config %+v", cfg.Host)
	}
	if cfg.Host.ListenAddr != def.Host.ListenAddr || !cfg.Host.Advertise {
		t.Fatalf("undefined keys must keep defaults, got %+v", cfg.Host)
	}
	if cfg.Discovery.ReceiveTimeout != 500*time.Millisecond || cfg.Discovery.Port != def.Discovery.Port {
		t.Fatalf("unexpected discovery config %+v", cfg.Discovery)
	}
	if cfg.Host.Discovery != cfg.Discovery {
		t.Fatalf("host discovery config must follow the discovery table")
	}
}

func TestLoadRejectsBadInput(t *testing.T) {
	testlog.Start(t)
	cases := map[string]string{
		"unknown key":  "surprise = true\n",
		"bad duration": "[host]\nwrite_timeout = \"soon\"\n",
		"bad port":     "[discovery]\nport = 70000\n",
		"no players":   "[host]\nmax_players = 0\n",
		"syntax":       "display_name = \n",
	}
	for name, body := range cases {
		if _, err := Load(writeConfig(t, body)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	testlog.Start(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Discovery.Port != 51515 {
		t.Fatalf("unexpected default port %d", cfg.Discovery.Port)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatalf("expected error for an explicit missing file")
	}
}

func TestWriteTemplateRoundTrips(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "caseroom.toml")
	if err := WriteTemplate(path, false); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := WriteTemplate(path, false); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected refusal to overwrite, got %v", err)
	}
	if err := WriteTemplate(path, true); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("template must load: %v", err)
	}
	if cfg.Discovery.BroadcastInterval != time.Second || cfg.Host.Session.WriteTimeout != 10*time.Second {
		t.Fatalf("unexpected template values %+v", cfg)
	}
}
