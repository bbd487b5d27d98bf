// Package logger builds the root zerolog logger every component derives
// its own logger from.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config controls the root logger
type Config struct {
	Level  string // debug, info, warn or error; anything else falls back to info
	Pretty bool   // human-readable console output instead of JSON
}

// New builds the root logger and sets the global level
func New(cfg Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	var out io.Writer = os.Stdout
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
	}

	return zerolog.New(out).With().Timestamp().Caller().Logger()
}

// SetGlobalLogger replaces the zerolog package-level logger so code that
// logs through log.Info() shares the configured output
func SetGlobalLogger(l zerolog.Logger) {
	log.Logger = l
}
