package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init configures the global zerolog logger for JSON output on stdout.
func Init(level string) {
	setup(os.Stdout, level)
}

// InitConsole configures the global logger with human readable output on stderr.
func InitConsole(level string) {
	setup(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}, level)
}

func setup(w io.Writer, level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = zerolog.New(w).With().Timestamp().Logger()

	if err != nil {
		log.Warn().Str("level", level).Msg("Unknown log level, falling back to info")
	}
}
