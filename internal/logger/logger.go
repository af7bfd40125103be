package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Config holds logger configuration
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output io.Writer
}

// New builds a zerolog logger. Unknown levels fall back to info.
func New(cfg Config) zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	var log zerolog.Logger
	if cfg.Format == "json" {
		log = zerolog.New(out)
	} else {
		log = zerolog.New(zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: "2006-01-02 15:04:05",
		})
	}

	level, err := ParseLevel(cfg.Level)
	log = log.Level(level).With().Timestamp().Logger()
	if err != nil {
		log.Warn().Str("level", cfg.Level).Msg("invalid log level, defaulting to info")
	}
	return log
}

// ParseLevel maps a level name to zerolog. "" is info.
func ParseLevel(levelStr string) (zerolog.Level, error) {
	if levelStr == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(levelStr)
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel, err
	}
	return level, nil
}

func init() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
}
