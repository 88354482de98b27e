package chat

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const (
	ChatRoleUser   = "user"      // Player
	ChatRoleAgent  = "assistant" // Referee
	ChatRoleSystem = "system"    // Instructions
)

// ChatMessage represents a single chat message in the conversation.
// The shape matches the OpenAI chat-completion message object.
type ChatMessage struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// ChatResponse is the non-streaming result of an LLM call.
type ChatResponse struct {
	Message   string `json:"message,omitempty"`
	Reasoning string `json:"reasoning,omitempty"`
}

// Input modes a player can submit a turn in.
const (
	ModeAsk   = "ask"
	ModeGuess = "guess"
)

// TurnRequest is the body posted to the ask and guess endpoints.
type TurnRequest struct {
	GameID  uuid.UUID `json:"game_id,omitempty"`
	Message string    `json:"message"`
}

func (tr *TurnRequest) Validate() error {
	if strings.TrimSpace(tr.Message) == "" {
		return fmt.Errorf("message cannot be empty")
	}
	return nil
}
