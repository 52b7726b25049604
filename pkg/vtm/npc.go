package vtm

import (
	"time"

	"github.com/google/uuid"
)

// Relationship values for an NPC's stance toward the player.
const (
	RelationshipHostile    = "hostile"
	RelationshipSuspicious = "suspicious"
	RelationshipNeutral    = "neutral"
	RelationshipFriendly   = "friendly"
	RelationshipAlly       = "ally"
)

// NPC is a narrator-introduced character. NPCs are never deleted except
// on an explicit chronicle reset; a dead NPC is only marked inert so it
// can still be referenced narratively.
type NPC struct {
	ID           uuid.UUID `json:"id"`
	ChronicleID  uuid.UUID `json:"chronicle_id"`
	UserID       string    `json:"user_id,omitempty"`
	Name         string    `json:"name"`
	Clan         string    `json:"clan,omitempty"`
	Role         string    `json:"role,omitempty"`
	Personality  string    `json:"personality,omitempty"`
	Appearance   string    `json:"appearance,omitempty"`
	Motivations  string    `json:"motivations,omitempty"`
	Knowledge    string    `json:"knowledge,omitempty"`
	Relationship string    `json:"relationship_to_player,omitempty"`
	TrustLevel   int       `json:"trust_level"` // signed; negative means distrust
	CurrentMood  string    `json:"current_mood,omitempty"`
	Dead         bool      `json:"dead,omitempty"`
	PortraitURL  string    `json:"portrait_url,omitempty"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

// ValidRelationship reports whether s is a known relationship value.
func ValidRelationship(s string) bool {
	switch s {
	case RelationshipHostile, RelationshipSuspicious, RelationshipNeutral,
		RelationshipFriendly, RelationshipAlly:
		return true
	}
	return false
}
