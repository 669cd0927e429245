package enhance

import "github.com/fpang/prompt-studio/internal/stages"

// View is everything the browser needs to render the wizard.
type View struct {
	State       State             `json:"state"`
	Stage       *stages.Stage     `json:"stage,omitempty"`
	StageIndex  int               `json:"stage_index"`
	TotalStages int               `json:"total_stages"`
	Progress    float64           `json:"progress"`
	Steps       []Step            `json:"steps"`
	Answers     map[string]string `json:"answers"`
	CanRetreat  bool              `json:"can_retreat"`
	IsLastStage bool              `json:"is_last_stage"`
	FinalPrompt string            `json:"final_prompt,omitempty"`
	Iterations  int               `json:"iterations"`
}

// Step is one entry of the progress strip.
type Step struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Current  bool   `json:"current"`
	Answered bool   `json:"answered"`
}

// View renders s for the presentation surface.
func (e *Engine) View(s *Session) View {
	v := View{
		State:       s.State(),
		TotalStages: e.catalog.Len(),
		Answers:     s.Answers(),
		Iterations:  len(s.history),
		StageIndex:  -1,
	}

	for _, st := range e.catalog.Stages() {
		_, answered := s.stagesData[st.ID]
		v.Steps = append(v.Steps, Step{
			ID:       st.ID,
			Title:    st.Title,
			Current:  v.State == StateInProgress && st.ID == s.currentStage,
			Answered: answered,
		})
	}

	switch v.State {
	case StateInProgress:
		st, _ := e.catalog.Lookup(s.currentStage)
		v.Stage = &st
		v.StageIndex = e.catalog.Index(s.currentStage)
		v.Progress = float64(v.StageIndex) / float64(v.TotalStages)
		v.CanRetreat = v.StageIndex > 0
		v.IsLastStage = e.catalog.IsLast(s.currentStage)
	case StateComplete:
		v.Progress = 1
		v.FinalPrompt = s.finalPrompt
	}
	return v
}
