package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/fpang/prompt-studio/internal/apperr"
	"github.com/fpang/prompt-studio/internal/assets"
	"github.com/fpang/prompt-studio/internal/metrics"
	"github.com/fpang/prompt-studio/internal/stages"
	"github.com/fpang/prompt-studio/internal/textutil"
	"github.com/rs/zerolog/log"
)

// Sampling settings for the two refinement calls.
const (
	suggestionTemperature float32 = 0.7
	suggestionMaxTokens           = 300
	synthesisTemperature  float32 = 0.3
	synthesisMaxTokens            = 400
)

// Refiner produces stage suggestions and the final synthesized prompt.
type Refiner struct {
	models    *ModelFactory
	modelName string
}

// NewRefiner returns a Refiner using cfg.RefineModel.
func NewRefiner(factory *ModelFactory, cfg Config) *Refiner {
	cfg = cfg.withDefaults()
	return &Refiner{models: factory, modelName: cfg.RefineModel}
}

// Suggest asks the model to refine userInput for stage. The whole answer
// map is sent as context, so suggestions for later stages reflect every
// earlier answer.
func (r *Refiner) Suggest(ctx context.Context, apiKey string, stage stages.Stage, userInput string, answers map[string]string) (string, error) {
	if err := requireKey("suggestion", apiKey, "OpenAI"); err != nil {
		return "", err
	}
	answersJSON, err := marshalAnswers(answers)
	if err != nil {
		return "", err
	}

	data := assets.SuggestionData{
		Stage:       stage.ID,
		Title:       stage.Title,
		Description: stage.Description,
		Input:       userInput,
		Context:     answersJSON,
	}
	msgs := []*schema.Message{
		schema.SystemMessage(assets.RenderSuggestionSystemPrompt(data)),
		schema.UserMessage(assets.RenderSuggestionUserPrompt(data)),
	}

	timer := metrics.StartCall("suggestion")
	text, err := r.generate(ctx, apiKey, "suggestion", msgs, suggestionTemperature, suggestionMaxTokens)
	elapsed := timer.Done(err)
	if err != nil {
		log.Error().
			Err(err).
			Str("stage", stage.ID).
			Int("input_length", len(userInput)).
			Msg("Stage suggestion failed")
		return "", err
	}

	log.Info().
		Str("stage", stage.ID).
		Int("input_length", len(userInput)).
		Int("suggestion_length", len(text)).
		Dur("duration", elapsed).
		Msg("Stage suggestion generated")
	return text, nil
}

// Synthesize merges every answer, including the initial idea, into one
// video prompt. Markdown fences and surrounding whitespace are stripped.
func (r *Refiner) Synthesize(ctx context.Context, apiKey string, answers map[string]string) (string, error) {
	if err := requireKey("synthesis", apiKey, "OpenAI"); err != nil {
		return "", err
	}
	answersJSON, err := marshalAnswers(answers)
	if err != nil {
		return "", err
	}

	msgs := []*schema.Message{
		schema.SystemMessage(strings.TrimSpace(assets.SynthesisSystemPrompt)),
		schema.UserMessage(assets.RenderSynthesisUserPrompt(answersJSON)),
	}

	timer := metrics.StartCall("synthesis")
	text, err := r.generate(ctx, apiKey, "synthesis", msgs, synthesisTemperature, synthesisMaxTokens)
	elapsed := timer.Done(err)
	if err != nil {
		log.Error().Err(err).Int("stages", len(answers)).Msg("Prompt synthesis failed")
		return "", err
	}

	prompt := textutil.StripMarkdownFences(text)
	if prompt == "" {
		return "", apperr.Upstream("synthesis", "model returned an empty prompt", nil)
	}

	log.Info().
		Int("stages", len(answers)).
		Int("prompt_length", len(prompt)).
		Str("prompt_preview", textutil.Preview(prompt, 120)).
		Dur("duration", elapsed).
		Msg("Final prompt synthesized")
	return prompt, nil
}

func (r *Refiner) generate(ctx context.Context, apiKey, op string, msgs []*schema.Message, temperature float32, maxTokens int) (string, error) {
	chatModel, err := r.models.Get(ctx, apiKey, r.modelName)
	if err != nil {
		return "", classify(op, op+" request failed", err)
	}
	resp, err := chatModel.Generate(ctx, msgs,
		model.WithTemperature(temperature),
		model.WithMaxTokens(maxTokens),
		model.WithModel(r.modelName),
	)
	if err != nil {
		return "", classify(op, op+" request failed", err)
	}
	if resp == nil {
		return "", apperr.Upstream(op, "model returned no message", nil)
	}
	return resp.Content, nil
}

func marshalAnswers(answers map[string]string) (string, error) {
	b, err := json.MarshalIndent(answers, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode stage answers: %w", err)
	}
	return string(b), nil
}
