package services

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/jwebster45206/turtle-soup/pkg/chat"
)

const (
	sseDataPrefix = "data:"
	sseDone       = "[DONE]"

	// Large enough for providers that send a whole message on one data line.
	maxSSELine = 1024 * 1024
)

// OpenAIService implements LLMService for any OpenAI-compatible
// chat-completion endpoint.
type OpenAIService struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ LLMService = (*OpenAIService)(nil)

// OpenAIChatRequest is the body of POST /chat/completions.
type OpenAIChatRequest struct {
	Model          string             `json:"model"`
	Messages       []chat.ChatMessage `json:"messages"`
	Stream         bool               `json:"stream"`
	Temperature    *float64           `json:"temperature,omitempty"`
	MaxTokens      int                `json:"max_tokens,omitempty"`
	EnableThinking bool               `json:"enable_thinking,omitempty"`
}

// OpenAIStreamEvent is one SSE data payload of a streaming completion.
type OpenAIStreamEvent struct {
	Choices []struct {
		Delta struct {
			Content          string `json:"content"`
			ReasoningContent string `json:"reasoning_content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// OpenAIModelsResponse represents the response from the models endpoint
type OpenAIModelsResponse struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

// NewOpenAIService creates a client for baseURL, e.g. https://api.openai.com/v1.
func NewOpenAIService(baseURL, apiKey string, logger *slog.Logger) *OpenAIService {
	return &OpenAIService{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		// No client timeout: generation streams are long. Callers bound
		// requests with their context.
		httpClient: &http.Client{},
		logger:     logger,
	}
}

// InitModel verifies the model answers a one-token request.
func (s *OpenAIService) InitModel(ctx context.Context, modelName string) error {
	ok, err := s.IsModelReady(ctx, modelName)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("model %s is not available", modelName)
	}
	return nil
}

// IsModelReady sends a one-token probe.
func (s *OpenAIService) IsModelReady(ctx context.Context, modelName string) (bool, error) {
	if err := s.Probe(ctx, modelName); err != nil {
		s.logger.Warn("Model probe failed", "model", modelName, "error", err)
		return false, nil
	}
	return true, nil
}

// Probe performs a non-streaming "hi" completion limited to one token.
func (s *OpenAIService) Probe(ctx context.Context, model string) error {
	resp, err := s.post(ctx, OpenAIChatRequest{
		Model:     model,
		Messages:  []chat.ChatMessage{{Role: chat.ChatRoleUser, Content: "hi"}},
		MaxTokens: 1,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// ProbeThinking asks a trivial question with enable_thinking set and reports
// whether any reasoning_content came back.
func (s *OpenAIService) ProbeThinking(ctx context.Context, model string) (bool, error) {
	ch, err := s.ChatStream(ctx, model, []chat.ChatMessage{{Role: chat.ChatRoleUser, Content: "1+1=?"}}, ChatOptions{Thinking: true})
	if err != nil {
		return false, err
	}
	resp, err := Collect(ch)
	if err != nil {
		return false, err
	}
	return resp.Reasoning != "", nil
}

// ListModels retrieves the sorted model ids from GET /models.
func (s *OpenAIService) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var modelsResp OpenAIModelsResponse
	if err := json.Unmarshal(body, &modelsResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	names := make([]string, 0, len(modelsResp.Data))
	for _, m := range modelsResp.Data {
		names = append(names, m.ID)
	}
	sort.Strings(names)
	return names, nil
}

// Chat streams a completion and returns the collected answer.
func (s *OpenAIService) Chat(ctx context.Context, model string, messages []chat.ChatMessage, opts ChatOptions) (*chat.ChatResponse, error) {
	ch, err := s.ChatStream(ctx, model, messages, opts)
	if err != nil {
		return nil, err
	}
	return Collect(ch)
}

// ChatStream starts a streaming completion.
func (s *OpenAIService) ChatStream(ctx context.Context, model string, messages []chat.ChatMessage, opts ChatOptions) (<-chan StreamChunk, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("no messages provided")
	}

	resp, err := s.post(ctx, OpenAIChatRequest{
		Model:          model,
		Messages:       messages,
		Stream:         true,
		Temperature:    opts.Temperature,
		MaxTokens:      opts.MaxTokens,
		EnableThinking: opts.Thinking,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Chat stream started", "model", model, "messages", len(messages), "thinking", opts.Thinking)

	out := make(chan StreamChunk)
	go func() {
		defer close(out)
		defer resp.Body.Close()
		readStream(ctx, resp.Body, out, s.logger)
	}()
	return out, nil
}

func (s *OpenAIService) post(ctx context.Context, payload OpenAIChatRequest) (*http.Response, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/completions", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if payload.Stream {
		req.Header.Set("Accept", "text/event-stream")
	}

	start := time.Now()
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	s.logger.Debug("Chat completion accepted", "model", payload.Model, "latency", time.Since(start))
	return resp, nil
}

// readStream forwards SSE deltas from body to out. Lines that are not data
// lines or do not decode are skipped.
func readStream(ctx context.Context, body io.Reader, out chan<- StreamChunk, logger *slog.Logger) {
	send := func(c StreamChunk) bool {
		select {
		case out <- c:
			return true
		case <-ctx.Done():
			return false
		}
	}

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSSELine)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, sseDataPrefix) {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, sseDataPrefix))
		if data == sseDone {
			send(StreamChunk{Done: true})
			return
		}

		var event OpenAIStreamEvent
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			logger.Debug("Skipping malformed stream line", "error", err)
			continue
		}
		if event.Error != nil {
			send(StreamChunk{Error: fmt.Errorf("API error: %s", event.Error.Message)})
			return
		}
		if len(event.Choices) == 0 {
			continue
		}
		delta := event.Choices[0].Delta
		if delta.Content == "" && delta.ReasoningContent == "" {
			continue
		}
		if !send(StreamChunk{Content: delta.Content, Reasoning: delta.ReasoningContent}) {
			return
		}
	}

	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		send(StreamChunk{Error: fmt.Errorf("failed to read stream: %w", err)})
		return
	}
	// Some servers close the body without a [DONE] line.
	send(StreamChunk{Done: true})
}
