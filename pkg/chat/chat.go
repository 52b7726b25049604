package chat

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const (
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant" // narrator or NPC voice
	ChatRoleSystem    = "system"
)

// ChatMessage is a single message in the conversation with the LLM.
// The role/content shape matches what every supported provider expects.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TurnRequest is a player action submitted against a chronicle.
type TurnRequest struct {
	ChronicleID uuid.UUID `json:"chronicle_id"`
	UserID      string    `json:"user_id,omitempty"`
	Action      string    `json:"action"`
	Language    string    `json:"player_language,omitempty"` // BCP 47 tag, e.g. "pt-BR"
}

// TurnResponse is what the API returns for a completed narrator turn.
// Changes is the reconciler's summary of everything that was applied.
type TurnResponse struct {
	ChronicleID uuid.UUID      `json:"chronicle_id,omitempty"`
	Narration   string         `json:"narration,omitempty"`
	NPCDialogue string         `json:"npc_dialogue,omitempty"`
	Outcomes    []string       `json:"outcomes,omitempty"`
	Changes     map[string]any `json:"changes,omitempty"`
	Error       string         `json:"error,omitempty"`
}

func (tr *TurnRequest) Validate() error {
	if tr.ChronicleID == uuid.Nil {
		return fmt.Errorf("chronicle_id is required")
	}
	if strings.TrimSpace(tr.Action) == "" {
		return fmt.Errorf("action cannot be empty")
	}
	return nil
}

// FormatWithCharacterName prefixes a player message with the character's
// name unless the message already carries a speaker prefix.
func FormatWithCharacterName(message, name string) string {
	if name == "" {
		return message
	}
	trimmed := strings.TrimSpace(message)
	if idx := strings.Index(trimmed, ":"); idx > 0 && idx < 40 {
		return message
	}
	return fmt.Sprintf("%s: %s", name, message)
}
