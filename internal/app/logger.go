package app

import (
	"log/slog"
	"os"
)

// NewLogger builds the process logger. Production runs emit JSON lines,
// everything else gets the text handler for readable local output.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true}
	if cfg != nil && cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
