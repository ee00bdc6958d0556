package session

import "time"

// Config defines transport behavior for one exchange. Zero timeouts mean the
// exchange blocks until the peer answers or closes.
type Config struct {
	Network        string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

// DefaultConfig returns a TCP config with no deadlines.
func DefaultConfig() Config {
	return Config{
		Network: "tcp",
	}
}

func (c Config) network() string {
	if c.Network == "" {
		return "tcp"
	}
	return c.Network
}
