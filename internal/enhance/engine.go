package enhance

import (
	"context"
	"strings"
	"time"

	"github.com/fpang/prompt-studio/internal/apperr"
	"github.com/fpang/prompt-studio/internal/logging"
	"github.com/fpang/prompt-studio/internal/metrics"
	"github.com/fpang/prompt-studio/internal/stages"
	"github.com/fpang/prompt-studio/internal/textutil"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Refiner is the generative backend for suggestions and synthesis.
type Refiner interface {
	Suggest(ctx context.Context, apiKey string, stage stages.Stage, userInput string, answers map[string]string) (string, error)
	Synthesize(ctx context.Context, apiKey string, answers map[string]string) (string, error)
}

// Counter records started sessions in the usage ledger.
type Counter interface {
	IncrementEnhancedPrompts() (int, error)
}

// Engine applies wizard operations to sessions. It holds no per-user state
// and is safe to share.
type Engine struct {
	catalog *stages.Catalog
	refiner Refiner
	counter Counter
	now     func() time.Time
}

// NewEngine wires the engine to its catalog, refiner and usage counter.
func NewEngine(catalog *stages.Catalog, refiner Refiner, counter Counter) *Engine {
	return &Engine{catalog: catalog, refiner: refiner, counter: counter, now: time.Now}
}

// Catalog returns the stage catalog the engine walks.
func (e *Engine) Catalog() *stages.Catalog { return e.catalog }

// StartResult reports a started session.
type StartResult struct {
	// EnhancedPromptNumber is the ledger count after this start.
	EnhancedPromptNumber int `json:"enhanced_prompt_number"`
}

// SubmitResult reports a stored stage answer.
type SubmitResult struct {
	Stage string `json:"stage"`
	// Suggestion is set only when one was requested and generated.
	Suggestion string `json:"suggestion,omitempty"`
}

// AdvanceResult reports where advance landed.
type AdvanceResult struct {
	Stage       string `json:"stage,omitempty"`
	Synthesized bool   `json:"synthesized"`
	FinalPrompt string `json:"final_prompt,omitempty"`
}

func (e *Engine) trace(s *Session, op string, fn func() error) error {
	err := logging.Trace(s.ID, "enhance."+op, fn)
	metrics.EnhanceOp(op, err)
	return err
}

// Start begins a fresh session from initialIdea at the first stage,
// replacing anything the session held.
func (e *Engine) Start(s *Session, initialIdea string) (StartResult, error) {
	var res StartResult
	err := e.trace(s, "start", func() error {
		// Validation trims; the idea is kept as given.
		if _, err := textutil.ValidatePrompt("start", initialIdea); err != nil {
			return err
		}
		idea := initialIdea

		now := e.now()
		s.active = true
		s.currentStage = e.catalog.First().ID
		s.stagesData = map[string]string{stages.InitialIdeaKey: idea}
		s.history = nil
		s.startTime = now
		s.finalPrompt = ""
		s.record(now, ActionSessionStarted, "", map[string]string{stages.InitialIdeaKey: idea})

		count, err := e.counter.IncrementEnhancedPrompts()
		if err != nil {
			log.Error().Err(err).Str("session_id", s.ID).Msg("Ledger defect: enhanced prompt count unavailable, using 1")
			count = 1
		}
		res.EnhancedPromptNumber = count

		logging.Activity(s.ID, "enhancement_session_started").
			Dict("details", zerolog.Dict().
				Int("idea_length", len(idea)).
				Int("enhanced_prompt_number", count)).
			Msg("Enhancement session started")
		return nil
	})
	return res, err
}

// SubmitStage stores userInput as the answer for stage and appends a
// stage_completed entry. With requestSuggestion it also asks the refiner,
// conditioning on every answer so far. It never moves the current stage.
//
// A suggestion failure leaves the stored answer and its history entry in
// place and returns the error alongside the result.
func (e *Engine) SubmitStage(ctx context.Context, s *Session, apiKey, stage, userInput string, requestSuggestion bool) (SubmitResult, error) {
	res := SubmitResult{Stage: stage}
	err := e.trace(s, "submit_stage", func() error {
		if s.State() != StateInProgress {
			return apperr.Validation("submit_stage", "no enhancement session in progress")
		}
		st, ok := e.catalog.Lookup(stage)
		if !ok {
			return apperr.Validation("submit_stage", "unknown stage "+stage)
		}
		if strings.TrimSpace(userInput) == "" {
			return apperr.Validation("submit_stage", "Please provide input for this stage")
		}
		input := userInput
		if requestSuggestion && strings.TrimSpace(apiKey) == "" {
			return apperr.Auth("submit_stage", "an OpenAI API key is required for AI suggestions", nil)
		}

		s.stagesData[stage] = input
		s.record(e.now(), ActionStageCompleted, stage, map[string]string{"user_input": input})

		if !requestSuggestion {
			logging.Activity(s.ID, "stage_saved").
				Dict("details", zerolog.Dict().Str("stage", stage).Int("input_length", len(input))).
				Msg("Stage progress saved")
			return nil
		}

		suggestion, err := e.refiner.Suggest(ctx, apiKey, st, input, s.Answers())
		if err != nil {
			logging.ActivityError(s.ID, "ai_suggestion_failed", err).
				Dict("details", zerolog.Dict().Str("stage", stage).Int("input_length", len(input))).
				Msg("AI suggestion failed")
			return err
		}
		s.record(e.now(), ActionAISuggestion, stage, map[string]string{"suggestion": suggestion})
		res.Suggestion = suggestion

		logging.Activity(s.ID, "ai_suggestion_generated").
			Dict("details", zerolog.Dict().
				Str("stage", stage).
				Int("input_length", len(input)).
				Int("suggestion_length", len(suggestion))).
			Msg("AI suggestion generated")
		return nil
	})
	return res, err
}

// AdoptSuggestion replaces the answer for stage with the latest AI
// suggestion made for it. Earlier history entries are kept.
func (e *Engine) AdoptSuggestion(s *Session, stage string) (SubmitResult, error) {
	res := SubmitResult{Stage: stage}
	err := e.trace(s, "adopt_suggestion", func() error {
		if s.State() != StateInProgress {
			return apperr.Validation("adopt_suggestion", "no enhancement session in progress")
		}
		if _, ok := e.catalog.Lookup(stage); !ok {
			return apperr.Validation("adopt_suggestion", "unknown stage "+stage)
		}
		suggestion, ok := s.lastSuggestion(stage)
		if !ok {
			return apperr.Validation("adopt_suggestion", "no AI suggestion to use for this stage")
		}

		s.stagesData[stage] = suggestion
		s.record(e.now(), ActionStageCompleted, stage, map[string]string{
			"user_input": suggestion,
			"source":     ActionAISuggestion,
		})
		res.Suggestion = suggestion

		logging.Activity(s.ID, "ai_suggestion_adopted").
			Dict("details", zerolog.Dict().Str("stage", stage).Int("suggestion_length", len(suggestion))).
			Msg("AI suggestion used as stage answer")
		return nil
	})
	return res, err
}

// Advance moves to the next stage, or synthesizes the final prompt when the
// current stage is the last one.
func (e *Engine) Advance(ctx context.Context, s *Session, apiKey string) (AdvanceResult, error) {
	var res AdvanceResult
	err := e.trace(s, "advance", func() error {
		if s.State() != StateInProgress {
			return apperr.Validation("advance", "no enhancement session in progress")
		}
		next, ok := e.catalog.Next(s.currentStage)
		if ok {
			s.currentStage = next.ID
			res.Stage = next.ID
			return nil
		}

		prompt, err := e.synthesize(ctx, s, apiKey)
		if err != nil {
			res.Stage = s.currentStage
			return err
		}
		res.Synthesized = true
		res.FinalPrompt = prompt
		return nil
	})
	return res, err
}

// Retreat moves to the previous stage. At the first stage it does nothing.
// Answers are kept.
func (e *Engine) Retreat(s *Session) (string, error) {
	err := e.trace(s, "retreat", func() error {
		if s.State() != StateInProgress {
			return apperr.Validation("retreat", "no enhancement session in progress")
		}
		if prev, ok := e.catalog.Prev(s.currentStage); ok {
			s.currentStage = prev.ID
		}
		return nil
	})
	return s.currentStage, err
}

// Synthesize merges all answers into the final prompt and completes the
// session. It is only valid at the last stage; on failure the session stays
// in progress and the call may be retried.
func (e *Engine) Synthesize(ctx context.Context, s *Session, apiKey string) (string, error) {
	var prompt string
	err := e.trace(s, "synthesize", func() error {
		if s.State() != StateInProgress {
			return apperr.Validation("synthesize", "no enhancement session in progress")
		}
		if !e.catalog.IsLast(s.currentStage) {
			return apperr.Validation("synthesize", "complete every stage before generating the final prompt")
		}
		var err error
		prompt, err = e.synthesize(ctx, s, apiKey)
		return err
	})
	return prompt, err
}

func (e *Engine) synthesize(ctx context.Context, s *Session, apiKey string) (string, error) {
	if strings.TrimSpace(apiKey) == "" {
		return "", apperr.Auth("synthesize", "an OpenAI API key is required to generate the final prompt", nil)
	}

	prompt, err := e.refiner.Synthesize(ctx, apiKey, s.Answers())
	if err != nil {
		logging.ActivityError(s.ID, "final_prompt_failed", err).
			Dict("details", zerolog.Dict().Int("stages_completed", s.StagesCompleted())).
			Msg("Final prompt generation failed")
		return "", err
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", apperr.Upstream("synthesize", "model returned an empty prompt", nil)
	}

	s.finalPrompt = prompt
	s.record(e.now(), ActionFinalPromptGenerated, "", map[string]string{"final_prompt": prompt})

	logging.Activity(s.ID, "final_prompt_generated").
		Dict("details", zerolog.Dict().
			Int("stages_completed", s.StagesCompleted()).
			Int("prompt_length", len(prompt)).
			Int("total_iterations", len(s.history))).
		Msg("Final prompt generated")
	return prompt, nil
}

// Reset returns the session to idle and clears every field.
func (e *Engine) Reset(s *Session) {
	_ = e.trace(s, "reset", func() error {
		s.active = false
		s.currentStage = ""
		s.stagesData = nil
		s.history = nil
		s.startTime = time.Time{}
		s.finalPrompt = ""
		return nil
	})
}
