package gateway

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/fpang/prompt-studio/internal/apperr"
)

func TestChatStream(t *testing.T) {
	fake := &fakeChatModel{chunks: []string{"Hel", "lo", "", "!"}}
	svc := NewChatService(newFakeFactory(fake), Config{})

	var got []string
	reply, err := svc.Stream(context.Background(), "sk-test", ChatRequest{
		Model:       ModelGPT4o,
		Temperature: 0.7,
		Messages: []ChatMessage{
			{Role: RoleUser, Content: "hi"},
			{Role: RoleAssistant, Content: "hello"},
			{Role: RoleUser, Content: "again"},
		},
	}, func(chunk string) error {
		got = append(got, chunk)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "Hello!" {
		t.Errorf("unexpected reply %q", reply)
	}
	if len(got) != 3 {
		t.Errorf("expected 3 non-empty chunks, got %v", got)
	}

	msgs := fake.lastMessages()
	if len(msgs) != 3 || msgs[1].Role != schema.Assistant {
		t.Errorf("expected full history with roles preserved, got %+v", msgs)
	}
}

func TestChatStreamStopsOnCallbackError(t *testing.T) {
	fake := &fakeChatModel{chunks: []string{"a", "b", "c"}}
	svc := NewChatService(newFakeFactory(fake), Config{})
	stop := errors.New("client went away")

	reply, err := svc.Stream(context.Background(), "sk-test", ChatRequest{
		Model:    ModelGPT35Turbo,
		Messages: []ChatMessage{{Role: RoleUser, Content: "hi"}},
	}, func(string) error { return stop })
	if !errors.Is(err, stop) {
		t.Fatalf("expected callback error, got %v", err)
	}
	if reply != "a" {
		t.Errorf("expected partial reply %q, got %q", "a", reply)
	}
}

func TestChatRequestValidate(t *testing.T) {
	msgs := []ChatMessage{{Role: RoleUser, Content: "hi"}}
	tests := []struct {
		name string
		req  ChatRequest
		ok   bool
	}{
		{"valid", ChatRequest{Model: ModelGPT4, Temperature: 2, Messages: msgs}, true},
		{"bad model", ChatRequest{Model: "gpt-2", Messages: msgs}, false},
		{"hot", ChatRequest{Model: ModelGPT4, Temperature: 2.1, Messages: msgs}, false},
		{"empty", ChatRequest{Model: ModelGPT4}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.ok && !apperr.Is(err, apperr.ErrTypeValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestModelFactoryCaches(t *testing.T) {
	calls := 0
	f := NewModelFactory("", 0)
	f.create = func(ctx context.Context, apiKey, modelName string) (model.BaseChatModel, error) {
		calls++
		return &fakeChatModel{}, nil
	}

	ctx := context.Background()
	f.Get(ctx, "sk-a", ModelGPT4)
	f.Get(ctx, "sk-a", ModelGPT4)
	f.Get(ctx, "sk-b", ModelGPT4)
	if calls != 2 {
		t.Errorf("expected 2 model constructions, got %d", calls)
	}

	f.Forget("sk-a")
	f.Get(ctx, "sk-a", ModelGPT4)
	if calls != 3 {
		t.Errorf("expected a rebuild after Forget, got %d constructions", calls)
	}
}

func TestModelFactoryForgetDropsAnyModelName(t *testing.T) {
	f := NewModelFactory("", 0)
	f.create = func(ctx context.Context, apiKey, modelName string) (model.BaseChatModel, error) {
		return &fakeChatModel{}, nil
	}

	ctx := context.Background()
	f.Get(ctx, "sk-secret", "gpt-4o-mini")
	f.Get(ctx, "sk-secret", ModelGPT4)
	f.Get(ctx, "sk-other", "gpt-4o-mini")

	f.Forget("sk-secret")
	if n := f.Len(); n != 1 {
		t.Errorf("expected only the other key's model to remain, got %d cached", n)
	}
	f.Forget("sk-other")
	if n := f.Len(); n != 0 {
		t.Errorf("expected an empty cache, got %d", n)
	}
}
