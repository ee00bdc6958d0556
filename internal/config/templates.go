package config

import (
	"fmt"
	"os"
)

// Template is the sample file written by `pikoctl config init`.
func Template() string {
	return sampleTemplate
}

func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(sampleTemplate), 0o600)
}

const sampleTemplate = `# Broker to talk to.
address = "0.0.0.0"
port = 8878

# Identifier sent with every request.
client_id = 1234

history_file = "piko.hst"

# Durations use Go syntax ("500ms", "3s"). "0s" means no deadline.
connect_timeout = "0s"
io_timeout = "0s"
quit_timeout = "2s"
`
