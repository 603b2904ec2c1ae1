package config

import (
	"fmt"
	"os"
)

func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(Template), 0o600)
}

// Template is a starter config listing every key with its default.
const Template = `# caseroom configuration
display_name = "detective"

[host]
listen_addr = ":0"
max_players = 4
public = true
advertise = true
# join_code = "ABC123"
# case_file = "cases/blue-carbuncle.toml"
# status_addr = "127.0.0.1:9180"
cors_origins = ["http://localhost"]
handshake_timeout = "10s"
read_timeout = "0s"
write_timeout = "10s"

[discovery]
port = 51515
broadcast_addr = "255.255.255.255"
broadcast_interval = "1s"
receive_timeout = "2s"
`
