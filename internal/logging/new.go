package logging

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/rs/zerolog"
)

// New builds a Logger for the named backend writing to stdout. An empty
// backend selects slog.
func New(backend string) (Logger, error) {
	switch backend {
	case "", BackendSlog:
		return NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil))), nil
	case BackendZap:
		return newZapProduction()
	case BackendZerolog:
		return NewZerologLogger(zerolog.New(os.Stdout).With().Timestamp().Logger()), nil
	default:
		return nil, fmt.Errorf("unknown log backend %q", backend)
	}
}

// Discard returns a Logger that drops everything.
func Discard() Logger {
	return NewSlogLogger(slog.New(slog.DiscardHandler))
}
