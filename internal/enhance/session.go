// Package enhance implements the multi-stage prompt refinement session: a
// wizard that walks one user through the ordered stage catalog, collects an
// answer per stage, optionally asks a model for suggestions, and finally
// synthesizes every answer into one video prompt.
package enhance

import (
	"time"

	"github.com/fpang/prompt-studio/internal/stages"
)

// State is the wizard position.
type State string

const (
	StateIdle       State = "idle"        // No active session
	StateInProgress State = "in_progress" // Active, walking the stages
	StateComplete   State = "complete"    // Final prompt synthesized
)

// History actions.
const (
	ActionSessionStarted       = "session_started"
	ActionStageCompleted       = "stage_completed"
	ActionAISuggestion         = "ai_suggestion"
	ActionFinalPromptGenerated = "final_prompt_generated"
)

// HistoryEntry is one append-only audit record.
type HistoryEntry struct {
	Timestamp string            `json:"timestamp"`
	Action    string            `json:"action"`
	Stage     string            `json:"stage,omitempty"`
	Data      map[string]string `json:"data"`
}

func (h HistoryEntry) clone() HistoryEntry {
	data := make(map[string]string, len(h.Data))
	for k, v := range h.Data {
		data[k] = v
	}
	h.Data = data
	return h
}

// Session is the state of one user's refinement wizard. The zero value is
// an idle session. A Session is not safe for concurrent use; callers
// serialize operations per user.
type Session struct {
	// ID identifies the owning browser session in logs.
	ID string

	active       bool
	currentStage string
	stagesData   map[string]string
	history      []HistoryEntry
	startTime    time.Time
	finalPrompt  string
}

// NewSession returns an idle session tagged with id.
func NewSession(id string) *Session {
	return &Session{ID: id}
}

// State derives the wizard state from the session fields.
func (s *Session) State() State {
	switch {
	case !s.active:
		return StateIdle
	case s.finalPrompt != "":
		return StateComplete
	default:
		return StateInProgress
	}
}

// Active reports whether a session has been started and not reset.
func (s *Session) Active() bool { return s.active }

// CurrentStage returns the current stage id. It is meaningful only in
// StateInProgress.
func (s *Session) CurrentStage() string { return s.currentStage }

// FinalPrompt returns the synthesized prompt once the session is complete.
func (s *Session) FinalPrompt() (string, bool) {
	if s.State() != StateComplete {
		return "", false
	}
	return s.finalPrompt, true
}

// StartTime returns when the session was started.
func (s *Session) StartTime() time.Time { return s.startTime }

// Answers returns a copy of all answers, including the initial idea.
func (s *Session) Answers() map[string]string {
	out := make(map[string]string, len(s.stagesData))
	for k, v := range s.stagesData {
		out[k] = v
	}
	return out
}

// Answer returns the stored answer for key.
func (s *Session) Answer(key string) (string, bool) {
	v, ok := s.stagesData[key]
	return v, ok
}

// History returns a copy of the audit trail.
func (s *Session) History() []HistoryEntry {
	out := make([]HistoryEntry, len(s.history))
	for i, h := range s.history {
		out[i] = h.clone()
	}
	return out
}

// HistoryLen returns the number of audit entries.
func (s *Session) HistoryLen() int { return len(s.history) }

// StagesCompleted counts answered stages, excluding the initial idea.
func (s *Session) StagesCompleted() int {
	n := 0
	for k := range s.stagesData {
		if k != stages.InitialIdeaKey {
			n++
		}
	}
	return n
}

func (s *Session) record(now time.Time, action, stage string, data map[string]string) {
	s.history = append(s.history, HistoryEntry{
		Timestamp: now.Format(time.RFC3339Nano),
		Action:    action,
		Stage:     stage,
		Data:      data,
	})
}

func (s *Session) lastSuggestion(stage string) (string, bool) {
	for i := len(s.history) - 1; i >= 0; i-- {
		h := s.history[i]
		if h.Action == ActionAISuggestion && h.Stage == stage {
			return h.Data["suggestion"], true
		}
	}
	return "", false
}
