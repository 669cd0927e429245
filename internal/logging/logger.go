package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init configures the global logger from environment variables.
// STUDIO_LOG_LEVEL controls the level: debug, info, warn, error (default: info).
// STUDIO_LOG_FORMAT=json keeps raw JSON lines; otherwise output is human-readable.
func Init() {
	InitWithWriter(os.Stderr)
}

// InitWithWriter is Init writing to w instead of stderr.
func InitWithWriter(w io.Writer) {
	zerolog.SetGlobalLevel(parseLevel(os.Getenv("STUDIO_LOG_LEVEL")))
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if strings.EqualFold(os.Getenv("STUDIO_LOG_FORMAT"), "json") {
		zerolog.TimeFieldFormat = "2006-01-02T15:04:05.000Z07:00"
		log.Logger = zerolog.New(w).With().Timestamp().Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: w})
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
