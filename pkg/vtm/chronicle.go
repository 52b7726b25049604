package vtm

import (
	"time"

	"github.com/google/uuid"
)

// Conversation modes. In NPC mode the narrator speaks as a single NPC
// and the prompt payload is reduced to that NPC only.
const (
	ModeNarrator = "narrator"
	ModeNPC      = "npc"
)

// Narrative styles accepted by the narrator prompt.
const (
	StyleConcise    = "concise"
	StyleBalanced   = "balanced"
	StyleTheatrical = "theatrical"
)

// WorldState is the chronicle's four pressure gauges, 0-10 each.
// The narrator reads them for tone and the reconciler nudges them
// when turns escalate or defuse tension.
type WorldState struct {
	MasqueradeThreat      int `json:"masquerade_threat"`
	SectTension           int `json:"sect_tension"`
	SupernaturalActivity  int `json:"supernatural_activity"`
	SecondInquisitionHeat int `json:"second_inquisition_heat"`
}

// DiceChallenge is a narrator-issued check pending player resolution.
type DiceChallenge struct {
	Attribute   string `json:"attribute"`
	Skill       string `json:"skill"`
	Difficulty  int    `json:"difficulty"`
	Description string `json:"description,omitempty"`
}

// Chronicle is one campaign session tied to a single character.
// Created lazily the first time the character plays.
type Chronicle struct {
	ID                 uuid.UUID      `json:"id"`
	CharacterID        uuid.UUID      `json:"character_id"`
	UserID             string         `json:"user_id,omitempty"`
	WorldID            string         `json:"world_id,omitempty"`
	CurrentDay         int            `json:"current_day"`
	LastRestDay        int            `json:"last_rest_day"`
	ActiveNPCs         []uuid.UUID    `json:"active_npcs,omitempty"` // ordered, most recent last
	ConversationMode   string         `json:"conversation_mode"`
	ActiveNPCID        uuid.UUID      `json:"active_npc_id,omitempty"` // set in NPC mode
	WorldState         WorldState     `json:"world_state"`
	NarrativeStyle     string         `json:"narrative_style,omitempty"`
	ActiveWorldEventID uuid.UUID      `json:"active_world_event_id,omitempty"`
	PendingChallenge   *DiceChallenge `json:"pending_challenge,omitempty"`
	Public             bool           `json:"public,omitempty"` // read-only sharing
	ChatHistory        []HistoryEntry `json:"chat_history,omitempty"`
	CreatedAt          time.Time      `json:"created_at,omitempty"`
	UpdatedAt          time.Time      `json:"updated_at,omitempty"`
}

// HistoryEntry is one stored conversation turn.
type HistoryEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NewChronicle creates a fresh chronicle for a character.
func NewChronicle(characterID uuid.UUID, userID, worldID string) *Chronicle {
	return &Chronicle{
		ID:               uuid.New(),
		CharacterID:      characterID,
		UserID:           userID,
		WorldID:          worldID,
		CurrentDay:       1,
		LastRestDay:      1,
		ConversationMode: ModeNarrator,
		NarrativeStyle:   StyleBalanced,
		ChatHistory:      make([]HistoryEntry, 0),
	}
}

// TrackNPC appends an NPC to the active list, keeping it deduplicated
// and ordered by first appearance.
func (c *Chronicle) TrackNPC(id uuid.UUID) {
	for _, existing := range c.ActiveNPCs {
		if existing == id {
			return
		}
	}
	c.ActiveNPCs = append(c.ActiveNPCs, id)
}

// ClampGauges bounds the world state gauges to [0,10].
func (ws *WorldState) ClampGauges() {
	ws.MasqueradeThreat = clamp(ws.MasqueradeThreat, 0, 10)
	ws.SectTension = clamp(ws.SectTension, 0, 10)
	ws.SupernaturalActivity = clamp(ws.SupernaturalActivity, 0, 10)
	ws.SecondInquisitionHeat = clamp(ws.SecondInquisitionHeat, 0, 10)
}
