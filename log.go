package twincache

import (
	"os"

	"github.com/rs/zerolog"
)

// defaultLogger mirrors encore's runtime/runtime/logger.go root-logger
// construction: a single zerolog.Logger writing to stderr with a
// timestamp, shared by every Cache that doesn't supply its own via
// WithLogger.
var defaultLogger = zerolog.New(os.Stderr).With().Timestamp().Logger()

// loggerOrDefault returns l, falling back to the package default. Every
// internal call site goes through this so a nil *zerolog.Logger on a
// zero-value Cache never panics.
func loggerOrDefault(l *zerolog.Logger) *zerolog.Logger {
	if l != nil {
		return l
	}
	return &defaultLogger
}
