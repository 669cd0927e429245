package auth

import (
	"os"
	"strings"

	"github.com/rs/zerolog/log"
)

// Credentials are the provider keys for one browser session. They live only
// in memory and are never written to disk or logged in full.
type Credentials struct {
	// OpenAIKey authorizes chat, image, suggestion and synthesis calls.
	OpenAIKey string
	// GoogleKey authorizes video generation. Optional.
	GoogleKey string
}

// HasOpenAI reports whether a chat-service key is present.
func (c Credentials) HasOpenAI() bool { return strings.TrimSpace(c.OpenAIKey) != "" }

// HasGoogle reports whether a video-service key is present.
func (c Credentials) HasGoogle() bool { return strings.TrimSpace(c.GoogleKey) != "" }

// FromEnv reads keys from the environment for local development.
// Priority order for the video key:
//  1. GOOGLE_API_KEY
//  2. GEMINI_API_KEY
func FromEnv() Credentials {
	c := Credentials{OpenAIKey: strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))}
	for _, name := range []string{"GOOGLE_API_KEY", "GEMINI_API_KEY"} {
		if key := strings.TrimSpace(os.Getenv(name)); key != "" {
			c.GoogleKey = key
			break
		}
	}
	log.Debug().
		Bool("openai", c.HasOpenAI()).
		Bool("google", c.HasGoogle()).
		Msg("Loaded credentials from environment")
	return c
}
