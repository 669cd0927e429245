package enhance

import (
	"time"

	"github.com/fpang/prompt-studio/internal/stages"
)

// ExportRecord is the downloadable summary of a session.
type ExportRecord struct {
	Metadata         ExportMetadata    `json:"metadata"`
	InitialIdea      string            `json:"initial_idea"`
	FinalPrompt      string            `json:"final_prompt"`
	RefinementStages map[string]string `json:"refinement_stages"`
	IterationHistory []HistoryEntry    `json:"iteration_history"`
}

// ExportMetadata summarizes the session at export time.
type ExportMetadata struct {
	ExportTimestamp        string  `json:"export_timestamp"`
	SessionDurationMinutes float64 `json:"session_duration_minutes"`
	TotalIterations        int     `json:"total_iterations"`
	StagesCompleted        int     `json:"stages_completed"`
}

// Export builds the export record. It never mutates the session.
func (e *Engine) Export(s *Session) ExportRecord {
	now := e.now()

	var minutes float64
	if !s.startTime.IsZero() {
		minutes = now.Sub(s.startTime).Minutes()
	}

	refinement := make(map[string]string, len(s.stagesData))
	for k, v := range s.stagesData {
		if k != stages.InitialIdeaKey {
			refinement[k] = v
		}
	}

	var final string
	if s.State() == StateComplete {
		final = s.finalPrompt
	}

	return ExportRecord{
		Metadata: ExportMetadata{
			ExportTimestamp:        now.Format(time.RFC3339Nano),
			SessionDurationMinutes: minutes,
			TotalIterations:        len(s.history),
			StagesCompleted:        len(refinement),
		},
		InitialIdea:      s.stagesData[stages.InitialIdeaKey],
		FinalPrompt:      final,
		RefinementStages: refinement,
		IterationHistory: s.History(),
	}
}

// ExportFilename names the download for an export taken at t.
func ExportFilename(t time.Time) string {
	return "prompt_enhancement_" + t.Format("20060102_150405") + ".json"
}
