package logging

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Activity starts an INFO record for a user-visible action. The record
// carries the browser session id and the action name; callers attach a
// "details" dict and call Msg.
func Activity(sessionID, action string) *zerolog.Event {
	return log.Info().Str("session_id", sessionID).Str("action", action)
}

// ActivityError starts an ERROR record for a failed action.
func ActivityError(sessionID, action string, err error) *zerolog.Event {
	return log.Error().Err(err).Str("session_id", sessionID).Str("action", action)
}

// Trace runs fn and logs its start, its success or failure, and its duration.
// The error from fn is returned unchanged.
func Trace(sessionID, op string, fn func() error) error {
	start := time.Now()
	log.Debug().Str("session_id", sessionID).Str("operation", op).Msg(op + " started")

	err := fn()
	elapsed := time.Since(start)
	if err != nil {
		log.Warn().
			Err(err).
			Str("session_id", sessionID).
			Str("operation", op).
			Int64("duration_ms", elapsed.Milliseconds()).
			Msg(op + " failed")
		return err
	}

	log.Info().
		Str("session_id", sessionID).
		Str("operation", op).
		Int64("duration_ms", elapsed.Milliseconds()).
		Msg(op + " succeeded")
	return nil
}
