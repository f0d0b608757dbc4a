// Package logging provides the process-wide zerolog logger used by the
// storage layer, the domain services and the CLI.
//
//	logging.Init(logging.Config{Level: "debug", Format: "console"})
//	log := logging.Component("users")
//	log.Debug().Str("user", name).Msg("inserted user vertex")
//
// Logging is fire-and-forget: nothing in this module waits on, or fails
// because of, log output.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config selects how the global logger writes.
type Config struct {
	Level     string    // trace, debug, info, warn, error, fatal, panic or disabled
	Format    string    // "json" or "console"
	Caller    bool      // add file:line to each entry
	Timestamp bool      // add an RFC 3339 time to each entry
	Output    io.Writer // nil means os.Stderr
}

// DefaultConfig is info-level JSON with timestamps on stderr.
func DefaultConfig() Config {
	return Config{Level: "info", Format: "json", Timestamp: true, Output: os.Stderr}
}

var (
	mu  sync.RWMutex
	log zerolog.Logger
)

func init() { initLogger(DefaultConfig()) }

// Init replaces the global logger. The CLI calls it once the configuration
// is loaded; calling it again reconfigures.
func Init(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	initLogger(cfg)
}

// initLogger builds the global logger from cfg. Callers hold mu.
func initLogger(cfg Config) {
	def := DefaultConfig()
	if cfg.Level == "" {
		cfg.Level = def.Level
	}
	if cfg.Output == nil {
		cfg.Output = def.Output
	}
	zerolog.SetGlobalLevel(ParseLevel(cfg.Level))
	zerolog.TimeFieldFormat = time.RFC3339

	var out io.Writer = cfg.Output
	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: cfg.Output, TimeFormat: time.TimeOnly}
	}

	ctx := zerolog.New(out).With()
	if cfg.Timestamp {
		ctx = ctx.Timestamp()
	}
	if cfg.Caller {
		ctx = ctx.Caller()
	}
	log = ctx.Logger()
}

// ParseLevel maps a configured level name onto a zerolog level. "warning"
// is accepted for warn; empty or unknown names give info.
func ParseLevel(level string) zerolog.Level {
	name := strings.ToLower(strings.TrimSpace(level))
	if name == "warning" {
		name = "warn"
	}
	l, err := zerolog.ParseLevel(name)
	if err != nil || l == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return l
}

// Component returns a child of the global logger tagged with component=name.
// Services take theirs once, at construction, so a later Init does not reach
// them.
func Component(name string) zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log.With().Str("component", name).Logger()
}

// NewTestLogger returns a logger writing JSON lines to w at every level the
// global level lets through.
func NewTestLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(w).Level(zerolog.TraceLevel)
}
