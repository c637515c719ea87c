package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New builds the root logger. Pretty output is meant for terminals,
// JSON for everything else.
func New(level string, pretty bool) zerolog.Logger {
	return NewWithWriter(os.Stdout, level, pretty)
}

func NewWithWriter(w io.Writer, level string, pretty bool) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.DurationFieldInteger = true

	out := w
	if pretty {
		out = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: "2006-01-02 15:04:05 MST",
		}
	}

	return zerolog.New(out).
		Level(parseLevel(level)).
		With().
		Timestamp().
		Logger()
}

func parseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
