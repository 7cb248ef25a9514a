// Package logging configures the process-wide zerolog logger.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup builds the root logger for the given environment and level name and
// installs it as the zerolog global.  Development environments get the
// human-readable console writer; everything else logs JSON to stdout.
func Setup(env, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339

	var out io.Writer = os.Stdout
	if env == "dev" || env == "development" || env == "local" {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
	}
	logger := zerolog.New(out).Level(lvl).With().Timestamp().Str("service", "event-ticketing").Logger()
	log.Logger = logger
	return logger
}
