package gateway

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/fpang/prompt-studio/internal/apperr"
	"github.com/fpang/prompt-studio/internal/metrics"
	"github.com/rs/zerolog/log"
)

// Chat roles accepted from the browser.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// ChatMessage is one turn of a conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is a streamed chat completion.
type ChatRequest struct {
	Messages    []ChatMessage
	Model       string
	Temperature float32
}

// ChatService streams chat completions.
type ChatService struct {
	models    *ModelFactory
	maxTokens int
}

// NewChatService returns a ChatService using models from factory.
func NewChatService(factory *ModelFactory, cfg Config) *ChatService {
	cfg = cfg.withDefaults()
	return &ChatService{models: factory, maxTokens: cfg.ChatMaxTokens}
}

// Validate checks model and temperature against the allowed ranges.
func (r ChatRequest) Validate() error {
	if !contains(ChatModels, r.Model) {
		return apperr.Validation("chat", "unsupported model "+r.Model)
	}
	if r.Temperature < 0 || r.Temperature > 2 {
		return apperr.Validation("chat", "temperature must be between 0.0 and 2.0")
	}
	if len(r.Messages) == 0 {
		return apperr.Validation("chat", "no messages to send")
	}
	return nil
}

// Stream sends the conversation and calls onChunk for each content delta.
// It returns the full reply. An error from onChunk stops the stream and is
// returned as is.
func (s *ChatService) Stream(ctx context.Context, apiKey string, req ChatRequest, onChunk func(string) error) (string, error) {
	if err := requireKey("chat", apiKey, "OpenAI"); err != nil {
		return "", err
	}
	if err := req.Validate(); err != nil {
		return "", err
	}

	timer := metrics.StartCall("chat")
	reply, err := s.stream(ctx, apiKey, req, onChunk)
	elapsed := timer.Done(err)

	log.Info().
		Str("model", req.Model).
		Float32("temperature", req.Temperature).
		Int("messages", len(req.Messages)).
		Int("reply_length", len(reply)).
		Dur("duration", elapsed).
		Err(err).
		Msg("Chat completion finished")
	return reply, err
}

func (s *ChatService) stream(ctx context.Context, apiKey string, req ChatRequest, onChunk func(string) error) (string, error) {
	chatModel, err := s.models.Get(ctx, apiKey, req.Model)
	if err != nil {
		return "", classify("chat", "chat completion failed", err)
	}

	reader, err := chatModel.Stream(ctx, toSchemaMessages(req.Messages),
		model.WithTemperature(req.Temperature),
		model.WithMaxTokens(s.maxTokens),
		model.WithModel(req.Model),
	)
	if err != nil {
		return "", classify("chat", "chat completion failed", err)
	}
	defer reader.Close()

	var full strings.Builder
	for {
		msg, recvErr := reader.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			return full.String(), classify("chat", "chat stream interrupted", recvErr)
		}
		if msg == nil || msg.Content == "" {
			continue
		}
		full.WriteString(msg.Content)
		if onChunk != nil {
			if err := onChunk(msg.Content); err != nil {
				return full.String(), err
			}
		}
	}
	return full.String(), nil
}

func toSchemaMessages(in []ChatMessage) []*schema.Message {
	out := make([]*schema.Message, 0, len(in))
	for _, m := range in {
		switch m.Role {
		case RoleSystem:
			out = append(out, schema.SystemMessage(m.Content))
		case RoleAssistant:
			out = append(out, schema.AssistantMessage(m.Content, nil))
		default:
			out = append(out, schema.UserMessage(m.Content))
		}
	}
	return out
}
