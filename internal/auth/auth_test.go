package auth

import (
	"context"
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

type fakeLister struct {
	err   error
	calls int
}

func (f *fakeLister) ListModels(ctx context.Context) (openai.ModelsList, error) {
	f.calls++
	return openai.ModelsList{}, f.err
}

func TestValidateOpenAIKeySuccess(t *testing.T) {
	lister := &fakeLister{}
	if err := ValidateOpenAIKey(context.Background(), "sk-test-key-12345", lister); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lister.calls != 1 {
		t.Errorf("expected one models call, got %d", lister.calls)
	}
}

func TestValidateOpenAIKeyEmpty(t *testing.T) {
	lister := &fakeLister{}
	err := ValidateOpenAIKey(context.Background(), "   ", lister)

	var valErr *ValidationError
	if !errors.As(err, &valErr) || valErr.Type != ErrTypeNoKey {
		t.Fatalf("expected ErrTypeNoKey, got %v", err)
	}
	if lister.calls != 0 {
		t.Error("expected no upstream call for an empty key")
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ValidationErrorType
	}{
		{"api 401", &openai.APIError{HTTPStatusCode: 401, Message: "Incorrect API key provided"}, ErrTypeInvalidKey},
		{"api 429", &openai.APIError{HTTPStatusCode: 429, Message: "slow down"}, ErrTypeQuotaExceeded},
		{"api 503", &openai.APIError{HTTPStatusCode: 503, Message: "unavailable"}, ErrTypeNetworkError},
		{"request 403", &openai.RequestError{HTTPStatusCode: 403, Err: errors.New("forbidden")}, ErrTypeInvalidKey},
		{"message key", errors.New("invalid_api_key"), ErrTypeInvalidKey},
		{"message quota", errors.New("You exceeded your current quota"), ErrTypeQuotaExceeded},
		{"message network", errors.New("dial tcp: no such host"), ErrTypeNetworkError},
		{"other", errors.New("something odd"), ErrTypeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyError(tt.err)
			if got.Type != tt.want {
				t.Errorf("classifyError() type = %v, want %v", got.Type, tt.want)
			}
			if !errors.Is(got, tt.err) {
				t.Error("expected the original error to be wrapped")
			}
		})
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", " sk-env ")
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "gemini-key")

	c := FromEnv()
	if c.OpenAIKey != "sk-env" {
		t.Errorf("expected trimmed OpenAI key, got %q", c.OpenAIKey)
	}
	if c.GoogleKey != "gemini-key" {
		t.Errorf("expected GEMINI_API_KEY fallback, got %q", c.GoogleKey)
	}
	if !c.HasOpenAI() || !c.HasGoogle() {
		t.Error("expected both keys present")
	}
	if (Credentials{}).HasOpenAI() {
		t.Error("empty credentials must not report a key")
	}
}
