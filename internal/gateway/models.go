package gateway

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	einoopenai "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
)

// newChatModelFunc builds one eino chat model bound to a key and model name.
type newChatModelFunc func(ctx context.Context, apiKey, modelName string) (model.BaseChatModel, error)

// ModelFactory lazily creates and caches eino chat models per key and model
// name. Cache entries are keyed by a digest so raw keys never become map keys.
type ModelFactory struct {
	baseURL string
	timeout time.Duration

	mu     sync.RWMutex
	models map[string]model.BaseChatModel
	// byKey lists the cache ids built with each key digest.
	byKey  map[string][]string
	create newChatModelFunc
}

// NewModelFactory returns a factory that talks to the OpenAI chat API.
func NewModelFactory(baseURL string, timeout time.Duration) *ModelFactory {
	f := &ModelFactory{
		baseURL: baseURL,
		timeout: timeout,
		models:  make(map[string]model.BaseChatModel),
		byKey:   make(map[string][]string),
	}
	f.create = f.newOpenAIModel
	return f
}

func (f *ModelFactory) newOpenAIModel(ctx context.Context, apiKey, modelName string) (model.BaseChatModel, error) {
	return einoopenai.NewChatModel(ctx, &einoopenai.ChatModelConfig{
		APIKey:  apiKey,
		BaseURL: f.baseURL,
		Model:   modelName,
		Timeout: f.timeout,
	})
}

// Get returns the cached model for (apiKey, modelName), creating it on first use.
func (f *ModelFactory) Get(ctx context.Context, apiKey, modelName string) (model.BaseChatModel, error) {
	id := cacheKey(apiKey, modelName)

	f.mu.RLock()
	m, ok := f.models[id]
	f.mu.RUnlock()
	if ok {
		return m, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok = f.models[id]; ok {
		return m, nil
	}

	m, err := f.create(ctx, apiKey, modelName)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model %s: %w", modelName, err)
	}
	f.models[id] = m
	digest := keyDigest(apiKey)
	f.byKey[digest] = append(f.byKey[digest], id)
	return m, nil
}

// Forget drops every cached model built with apiKey, whatever its model name.
func (f *ModelFactory) Forget(apiKey string) {
	if apiKey == "" {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	digest := keyDigest(apiKey)
	for _, id := range f.byKey[digest] {
		delete(f.models, id)
	}
	delete(f.byKey, digest)
}

// Len returns the number of cached models.
func (f *ModelFactory) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.models)
}

func cacheKey(apiKey, modelName string) string {
	sum := sha256.Sum256([]byte(apiKey + "\x00" + modelName))
	return hex.EncodeToString(sum[:])
}

func keyDigest(apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(sum[:])
}
