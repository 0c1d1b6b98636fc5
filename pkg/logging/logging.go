// Package logging configures colored structured logging with tint.
//
// Usage:
//
//	log := logging.New()                         // INFO level, from LOG_LEVEL env
//	log := logging.NewWithLevel(slog.LevelDebug) // explicit level override
//
// Environment variables:
//
//	LOG_LEVEL: debug, info, warn, error (default: info)
package logging

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// New returns a colored logger at the level specified by the LOG_LEVEL env
// var (default: INFO) and installs it as the slog default.
func New() *slog.Logger {
	return NewWithLevel(levelFromEnv())
}

// NewWithLevel returns a colored logger at the given level and installs it
// as the slog default.
func NewWithLevel(level slog.Level) *slog.Logger {
	log := slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		}),
	)
	slog.SetDefault(log)
	return log
}

func levelFromEnv() slog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
