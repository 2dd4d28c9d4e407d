package logger

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/campusmarket/marketplace/services/messaging-api/internal/config"
)

// New constructs a zerolog logger based on service configuration.
func New(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	var base zerolog.Logger
	if strings.EqualFold(cfg.LogFormat, "json") || cfg.Environment == "production" {
		base = zerolog.New(os.Stdout)
	} else {
		base = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	return base.Level(level).With().
		Timestamp().
		Str("service", cfg.ServiceName).
		Str("environment", cfg.Environment).
		Logger()
}
