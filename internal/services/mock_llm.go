package services

import (
	"context"
	"sync"

	"github.com/jwebster45206/turtle-soup/pkg/chat"
)

// MockLLMAPI is a mock implementation of LLMService for testing
type MockLLMAPI struct {
	InitModelFunc    func(ctx context.Context, modelName string) error
	ChatStreamFunc   func(ctx context.Context, model string, messages []chat.ChatMessage, opts ChatOptions) (<-chan StreamChunk, error)
	IsModelReadyFunc func(ctx context.Context, modelName string) (bool, error)
	ListModelsFunc   func(ctx context.Context) ([]string, error)

	// Replies are consumed in order by Chat and ChatStream when ChatStreamFunc
	// is nil. Each reply is streamed as the listed chunks.
	Replies [][]StreamChunk

	// Track calls for testing
	InitModelCalls    []string
	ChatCalls         []ChatCall
	IsModelReadyCalls []string
	ListModelsCalls   int

	mu sync.Mutex // protects all fields above
}

var _ LLMService = (*MockLLMAPI)(nil)

type ChatCall struct {
	Model    string
	Messages []chat.ChatMessage
	Options  ChatOptions
}

// NewMockLLMAPI creates a new mock LLM service
func NewMockLLMAPI() *MockLLMAPI {
	return &MockLLMAPI{}
}

// Script queues one reply per text, each streamed as a single chunk.
func (m *MockLLMAPI) Script(texts ...string) *MockLLMAPI {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range texts {
		m.Replies = append(m.Replies, []StreamChunk{{Content: t}})
	}
	return m
}

// ScriptChunks queues a reply streamed as the given content pieces.
func (m *MockLLMAPI) ScriptChunks(pieces ...string) *MockLLMAPI {
	m.mu.Lock()
	defer m.mu.Unlock()
	reply := make([]StreamChunk, 0, len(pieces))
	for _, p := range pieces {
		reply = append(reply, StreamChunk{Content: p})
	}
	m.Replies = append(m.Replies, reply)
	return m
}

// InitModel mocks model initialization
func (m *MockLLMAPI) InitModel(ctx context.Context, modelName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.InitModelCalls = append(m.InitModelCalls, modelName)
	if m.InitModelFunc != nil {
		return m.InitModelFunc(ctx, modelName)
	}
	return nil
}

// Chat mocks a completion by collecting ChatStream.
func (m *MockLLMAPI) Chat(ctx context.Context, model string, messages []chat.ChatMessage, opts ChatOptions) (*chat.ChatResponse, error) {
	ch, err := m.ChatStream(ctx, model, messages, opts)
	if err != nil {
		return nil, err
	}
	return Collect(ch)
}

// ChatStream mocks a streaming completion.
func (m *MockLLMAPI) ChatStream(ctx context.Context, model string, messages []chat.ChatMessage, opts ChatOptions) (<-chan StreamChunk, error) {
	m.mu.Lock()
	m.ChatCalls = append(m.ChatCalls, ChatCall{Model: model, Messages: messages, Options: opts})
	fn := m.ChatStreamFunc
	var reply []StreamChunk
	if fn == nil {
		if len(m.Replies) > 0 {
			reply = m.Replies[0]
			m.Replies = m.Replies[1:]
		} else {
			reply = []StreamChunk{{Content: "Mock response"}}
		}
	}
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, model, messages, opts)
	}

	out := make(chan StreamChunk, len(reply)+1)
	for _, c := range reply {
		out <- c
		if c.Error != nil {
			close(out)
			return out, nil
		}
	}
	out <- StreamChunk{Done: true}
	close(out)
	return out, nil
}

// ListModels mocks model listing
func (m *MockLLMAPI) ListModels(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ListModelsCalls++
	if m.ListModelsFunc != nil {
		return m.ListModelsFunc(ctx)
	}
	return []string{"foo"}, nil
}

// IsModelReady mocks model readiness check
func (m *MockLLMAPI) IsModelReady(ctx context.Context, modelName string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.IsModelReadyCalls = append(m.IsModelReadyCalls, modelName)
	if m.IsModelReadyFunc != nil {
		return m.IsModelReadyFunc(ctx, modelName)
	}
	return true, nil
}

// SetChatError makes every completion fail with err.
func (m *MockLLMAPI) SetChatError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ChatStreamFunc = func(ctx context.Context, model string, messages []chat.ChatMessage, opts ChatOptions) (<-chan StreamChunk, error) {
		return nil, err
	}
}

// SetListModelsResponse sets up the mock to return specific models
func (m *MockLLMAPI) SetListModelsResponse(models []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ListModelsFunc = func(ctx context.Context) ([]string, error) {
		return models, nil
	}
}

// GetCalls returns a copy of the chat calls in a thread-safe way
func (m *MockLLMAPI) GetCalls() []ChatCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	calls := make([]ChatCall, len(m.ChatCalls))
	copy(calls, m.ChatCalls)
	return calls
}

// Reset clears scripted replies and call tracking
func (m *MockLLMAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Replies = nil
	m.InitModelCalls = nil
	m.ChatCalls = nil
	m.IsModelReadyCalls = nil
	m.ListModelsCalls = 0
}
