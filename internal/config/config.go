package config

import (
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	gotoml "github.com/pelletier/go-toml/v2"

	"github.com/lyuben-todorov/piko-cli/internal/protocol/session"
)

const (
	DefaultAddress     = "0.0.0.0"
	DefaultPort        = 8878
	DefaultClientID    = 1234
	DefaultHistoryFile = "piko.hst"
	DefaultQuitTimeout = 2 * time.Second
)

// Config is the effective pikoctl configuration. Zero timeouts mean no
// deadline, except QuitTimeout which always bounds the farewell unsubscribe.
type Config struct {
	Address        string
	Port           uint16
	ClientID       uint64
	HistoryFile    string
	ConnectTimeout time.Duration
	IOTimeout      time.Duration
	QuitTimeout    time.Duration
}

func Default() Config {
	return Config{
		Address:     DefaultAddress,
		Port:        DefaultPort,
		ClientID:    DefaultClientID,
		HistoryFile: DefaultHistoryFile,
		QuitTimeout: DefaultQuitTimeout,
	}
}

// fileConfig mirrors the file. client_id is an integer, or a decimal string
// for ids above the TOML integer range.
type fileConfig struct {
	Address        string `toml:"address"`
	Port           int64  `toml:"port"`
	ClientID       any    `toml:"client_id"`
	HistoryFile    string `toml:"history_file"`
	ConnectTimeout string `toml:"connect_timeout"`
	IOTimeout      string `toml:"io_timeout"`
	QuitTimeout    string `toml:"quit_timeout"`
}

// ValidationError names the offending key.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s %s", e.Field, e.Reason)
}

// Load overlays the keys present in path on top of Default and validates
// the result.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}

	if meta.IsDefined("address") {
		cfg.Address = strings.TrimSpace(raw.Address)
	}
	if meta.IsDefined("port") {
		if raw.Port < 0 || raw.Port > 65535 {
			return Config{}, &ValidationError{Field: "port", Reason: "must be between 1 and 65535"}
		}
		cfg.Port = uint16(raw.Port)
	}
	if meta.IsDefined("client_id") {
		if cfg.ClientID, err = parseClientID(raw.ClientID); err != nil {
			return Config{}, err
		}
	}
	if meta.IsDefined("history_file") {
		cfg.HistoryFile = strings.TrimSpace(raw.HistoryFile)
	}
	if meta.IsDefined("connect_timeout") {
		if cfg.ConnectTimeout, err = parseDuration("connect_timeout", raw.ConnectTimeout); err != nil {
			return Config{}, err
		}
	}
	if meta.IsDefined("io_timeout") {
		if cfg.IOTimeout, err = parseDuration("io_timeout", raw.IOTimeout); err != nil {
			return Config{}, err
		}
	}
	if meta.IsDefined("quit_timeout") {
		if cfg.QuitTimeout, err = parseDuration("quit_timeout", raw.QuitTimeout); err != nil {
			return Config{}, err
		}
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, &ValidationError{Field: undecoded[0].String(), Reason: "is not a known key"}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func parseClientID(v any) (uint64, error) {
	switch id := v.(type) {
	case int64:
		if id < 0 {
			return 0, &ValidationError{Field: "client_id", Reason: "must not be negative"}
		}
		return uint64(id), nil
	case string:
		n, err := strconv.ParseUint(strings.TrimSpace(id), 10, 64)
		if err != nil {
			return 0, &ValidationError{Field: "client_id", Reason: "must be an unsigned 64-bit integer"}
		}
		return n, nil
	default:
		return 0, &ValidationError{Field: "client_id", Reason: "must be an integer"}
	}
}

// clientIDValue renders id as a TOML integer when it fits, otherwise as a
// decimal string parseClientID reads back.
func clientIDValue(id uint64) any {
	if id > math.MaxInt64 {
		return strconv.FormatUint(id, 10)
	}
	return int64(id)
}

func parseDuration(key, value string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Address) == "" {
		errs = append(errs, &ValidationError{Field: "address", Reason: "is required"})
	}
	if c.Port == 0 {
		errs = append(errs, &ValidationError{Field: "port", Reason: "must be between 1 and 65535"})
	}
	if strings.TrimSpace(c.HistoryFile) == "" {
		errs = append(errs, &ValidationError{Field: "history_file", Reason: "is required"})
	}
	if c.ConnectTimeout < 0 {
		errs = append(errs, &ValidationError{Field: "connect_timeout", Reason: "must not be negative"})
	}
	if c.IOTimeout < 0 {
		errs = append(errs, &ValidationError{Field: "io_timeout", Reason: "must not be negative"})
	}
	if c.QuitTimeout <= 0 {
		errs = append(errs, &ValidationError{Field: "quit_timeout", Reason: "must be positive"})
	}
	return errors.Join(errs...)
}

// Addr is the broker address in host:port form.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Address, strconv.Itoa(int(c.Port)))
}

func (c Config) SessionConfig() session.Config {
	sc := session.DefaultConfig()
	sc.ConnectTimeout = c.ConnectTimeout
	sc.ReadTimeout = c.IOTimeout
	sc.WriteTimeout = c.IOTimeout
	return sc
}

// Encode writes cfg as TOML using the same keys Load accepts.
func Encode(w io.Writer, c Config) error {
	raw := fileConfig{
		Address:        c.Address,
		Port:           int64(c.Port),
		ClientID:       clientIDValue(c.ClientID),
		HistoryFile:    c.HistoryFile,
		ConnectTimeout: c.ConnectTimeout.String(),
		IOTimeout:      c.IOTimeout.String(),
		QuitTimeout:    c.QuitTimeout.String(),
	}
	enc := gotoml.NewEncoder(w)
	if err := enc.Encode(raw); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}
