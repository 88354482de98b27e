package services

import (
	"context"

	"github.com/jwebster45206/turtle-soup/pkg/chat"
)

// ChatOptions tunes a single completion request.
type ChatOptions struct {
	Temperature *float64 // nil leaves the server default
	Thinking    bool     // sets enable_thinking
	MaxTokens   int
}

// StreamChunk is one delta of a streaming completion. Reasoning carries
// reasoning_content deltas, which are never part of the final answer.
type StreamChunk struct {
	Content   string
	Reasoning string
	Done      bool
	Error     error
}

// LLMService defines the interface for interacting with the LLM API
type LLMService interface {
	// InitModel prepares the model on startup
	InitModel(ctx context.Context, modelName string) error

	// Chat returns the full answer of a completion
	Chat(ctx context.Context, model string, messages []chat.ChatMessage, opts ChatOptions) (*chat.ChatResponse, error)

	// ChatStream streams a completion. The channel is closed after a chunk with
	// Done or Error set.
	ChatStream(ctx context.Context, model string, messages []chat.ChatMessage, opts ChatOptions) (<-chan StreamChunk, error)

	// ListModels returns the model ids the backend offers
	ListModels(ctx context.Context) ([]string, error)

	// IsModelReady checks if the specified model answers requests
	IsModelReady(ctx context.Context, modelName string) (bool, error)
}

// Collect drains a stream into a response. It returns the first stream error.
func Collect(ch <-chan StreamChunk) (*chat.ChatResponse, error) {
	resp := &chat.ChatResponse{}
	for chunk := range ch {
		if chunk.Error != nil {
			return nil, chunk.Error
		}
		resp.Message += chunk.Content
		resp.Reasoning += chunk.Reasoning
		if chunk.Done {
			break
		}
	}
	return resp, nil
}
