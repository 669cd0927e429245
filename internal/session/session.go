// Package session keeps per-browser state: credentials, the selected mode,
// the message history and the enhancement wizard. Nothing here is persisted.
package session

import (
	"sync"
	"time"

	"github.com/fpang/prompt-studio/internal/auth"
	"github.com/fpang/prompt-studio/internal/enhance"
)

// Mode is the top-level view the user is working in.
type Mode string

const (
	ModeChat    Mode = "chat"
	ModeImage   Mode = "image"
	ModeVideo   Mode = "video"
	ModeEnhance Mode = "enhance"
)

// ParseMode validates a mode name from the browser.
func ParseMode(s string) (Mode, bool) {
	switch m := Mode(s); m {
	case ModeChat, ModeImage, ModeVideo, ModeEnhance:
		return m, true
	}
	return "", false
}

// Message types in the history.
const (
	TypeChat           = "chat"
	TypeImage          = "image"
	TypeVideo          = "video"
	TypeEnhancedPrompt = "enhanced_prompt"
)

// Message is one entry of the conversation shown in the browser.
type Message struct {
	Role      string            `json:"role"`
	Type      string            `json:"type"`
	Content   string            `json:"content"`
	URL       string            `json:"url,omitempty"`
	Prompt    string            `json:"prompt,omitempty"`
	Stages    map[string]string `json:"stages,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// Stats are the per-session counters shown next to the ledger totals.
type Stats struct {
	TotalMessages    int `json:"total_messages"`
	ChatMessages     int `json:"chat_messages"`
	ImageGenerations int `json:"image_generations"`
	VideoGenerations int `json:"video_generations"`
}

// Session is one browser's state. Lock it around any read or write; the
// HTTP layer holds the lock for the whole of each request so engine calls
// on the same session never interleave.
type Session struct {
	sync.Mutex

	ID          string
	Credentials auth.Credentials
	Mode        Mode
	Messages    []Message
	Enhance     *enhance.Session
	Stats       Stats
	CreatedAt   time.Time
	LastSeen    time.Time
}

func newSession(id string, now time.Time) *Session {
	return &Session{
		ID:        id,
		Mode:      ModeChat,
		Enhance:   enhance.NewSession(id),
		CreatedAt: now,
		LastSeen:  now,
	}
}

// Append records a message and updates the counters.
func (s *Session) Append(m Message) {
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now()
	}
	s.Messages = append(s.Messages, m)
	s.Stats.TotalMessages++
	switch m.Type {
	case TypeChat:
		s.Stats.ChatMessages++
	case TypeImage:
		if m.Role == "assistant" {
			s.Stats.ImageGenerations++
		}
	case TypeVideo:
		if m.Role == "assistant" {
			s.Stats.VideoGenerations++
		}
	}
}

// ChatHistory returns the chat turns in order, for resending to the model.
func (s *Session) ChatHistory() []Message {
	var out []Message
	for _, m := range s.Messages {
		if m.Type == TypeChat {
			out = append(out, m)
		}
	}
	return out
}

// Clear drops everything but the id, logging the user out. The caller
// holds the lock.
func (s *Session) Clear() {
	s.Credentials = auth.Credentials{}
	s.Mode = ModeChat
	s.Messages = nil
	s.Enhance = enhance.NewSession(s.ID)
	s.Stats = Stats{}
}
