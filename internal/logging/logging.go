// Package logging builds the process-wide zerolog logger. Components receive
// sub-loggers from main rather than constructing their own.
package logging

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// New returns the root logger. Dev environments get a human console writer,
// everything else structured JSON.
func New(env string) zerolog.Logger {
	if env == "dev" || env == "development" {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
		return zerolog.New(output).With().Timestamp().Logger()
	}
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if strings.HasSuffix(os.Args[0], ".test") {
		return zerolog.Nop()
	}
	return logger
}
