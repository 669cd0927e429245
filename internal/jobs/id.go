package jobs

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/rs/zerolog/log"
)

// VideoPrefix tags video job ids.
const VideoPrefix = "vid-"

// GenerateID creates a cryptographically random job ID with the given prefix.
// The prefix should include a trailing dash, e.g. "vid-".
func GenerateID(prefix string) string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		log.Fatal().Err(err).Msgf("Failed to generate random %s job ID", prefix)
	}
	return prefix + hex.EncodeToString(b)
}
