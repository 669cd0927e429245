package gateway

import (
	"context"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// fakeChatModel records the messages it receives and replays canned output.
type fakeChatModel struct {
	mu       sync.Mutex
	reply    string
	chunks   []string
	err      error
	received [][]*schema.Message
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	f.mu.Lock()
	f.received = append(f.received, input)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	f.mu.Lock()
	f.received = append(f.received, input)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	msgs := make([]*schema.Message, 0, len(f.chunks))
	for _, c := range f.chunks {
		msgs = append(msgs, schema.AssistantMessage(c, nil))
	}
	return schema.StreamReaderFromArray(msgs), nil
}

func (f *fakeChatModel) lastMessages() []*schema.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.received) == 0 {
		return nil
	}
	return f.received[len(f.received)-1]
}

func newFakeFactory(m model.BaseChatModel) *ModelFactory {
	f := NewModelFactory("", 0)
	f.create = func(ctx context.Context, apiKey, modelName string) (model.BaseChatModel, error) {
		return m, nil
	}
	return f
}
