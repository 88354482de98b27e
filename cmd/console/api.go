package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jwebster45206/turtle-soup/internal/engine"
	"github.com/jwebster45206/turtle-soup/pkg/chat"
	"github.com/jwebster45206/turtle-soup/pkg/state"
	"github.com/jwebster45206/turtle-soup/pkg/tags"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// APIClient talks to the turtle-soup API.
type APIClient struct {
	baseURL string
	client  *http.Client // bounded, for plain calls
	stream  *http.Client // unbounded, for SSE
}

func NewAPIClient(baseURL string, client *http.Client) *APIClient {
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		stream:  &http.Client{},
	}
}

func (c *APIClient) testConnection() bool {
	resp, err := c.client.Get(c.baseURL + "/health")
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	return resp.StatusCode == http.StatusOK
}

// do sends a JSON request and decodes a JSON answer into out. Non-2xx answers
// become errors carrying the API's message.
func (c *APIClient) do(method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		jsonData, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(jsonData)
	}
	req, err := http.NewRequest(method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errorResp ErrorResponse
		if err := json.Unmarshal(respBody, &errorResp); err != nil || errorResp.Error == "" {
			return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(respBody))
		}
		return fmt.Errorf("%s", errorResp.Error)
	}
	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func (c *APIClient) sampleTags(n int) ([]tags.Tag, error) {
	var out []tags.Tag
	err := c.do(http.MethodGet, fmt.Sprintf("/v1/tags?n=%d", n), nil, &out)
	return out, err
}

func (c *APIClient) listGames() ([]state.Summary, error) {
	var out []state.Summary
	err := c.do(http.MethodGet, "/v1/games", nil, &out)
	return out, err
}

func (c *APIClient) turn(id uuid.UUID, mode, message string) (*engine.TurnResult, error) {
	var out engine.TurnResult
	if err := c.do(http.MethodPost, "/v1/games/"+id.String()+"/"+mode, chat.TurnRequest{Message: message}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) retry(id uuid.UUID) (*engine.TurnResult, error) {
	var out engine.TurnResult
	if err := c.do(http.MethodPost, "/v1/games/"+id.String()+"/retry", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) hint(id uuid.UUID) (*engine.HintResult, error) {
	var out engine.HintResult
	if err := c.do(http.MethodPost, "/v1/games/"+id.String()+"/hint", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// end settles or quits a game.
func (c *APIClient) end(id uuid.UUID, action string) (*state.GameState, error) {
	var out state.GameState
	if err := c.do(http.MethodPost, "/v1/games/"+id.String()+"/"+action, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SSEEvent represents an event from the SSE stream
type SSEEvent struct {
	Type string
	Data json.RawMessage
}

// createGame posts a new game and forwards its generation stream to events
// until the stream ends.
func (c *APIClient) createGame(ctx context.Context, tagList []string, difficulty string, events chan<- SSEEvent) error {
	jsonData, err := json.Marshal(map[string]any{"tags": tagList, "difficulty": difficulty})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/games", bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.stream.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to SSE: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		var errorResp ErrorResponse
		if json.Unmarshal(body, &errorResp) == nil && errorResp.Error != "" {
			return fmt.Errorf("%s", errorResp.Error)
		}
		return fmt.Errorf("SSE connection failed with status %d: %s", resp.StatusCode, string(body))
	}
	return readSSE(ctx, resp.Body, events)
}

// readSSE parses event/data line pairs separated by blank lines.
func readSSE(ctx context.Context, r io.Reader, events chan<- SSEEvent) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var currentEvent SSEEvent

	for scanner.Scan() {
		line := scanner.Text()

		if line == "" {
			// Empty line signals end of event
			if currentEvent.Type != "" {
				select {
				case events <- currentEvent:
				case <-ctx.Done():
					return ctx.Err()
				}
				currentEvent = SSEEvent{}
			}
			continue
		}

		if strings.HasPrefix(line, "event: ") {
			currentEvent.Type = strings.TrimPrefix(line, "event: ")
		} else if strings.HasPrefix(line, "data: ") {
			currentEvent.Data = json.RawMessage(strings.TrimPrefix(line, "data: "))
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading SSE stream: %w", err)
	}
	return nil
}
