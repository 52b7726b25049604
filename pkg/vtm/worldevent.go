package vtm

import (
	"time"

	"github.com/google/uuid"
)

// World event severities.
const (
	SeverityMinor    = "minor"
	SeverityModerate = "moderate"
	SeverityMajor    = "major"
	SeverityCritical = "critical"
)

// WorldEvent is a narrator-issued story interrupt gated on a player
// choice. At most one event is active per chronicle; resolution clears
// the chronicle's active_world_event_id.
type WorldEvent struct {
	ID          uuid.UUID `json:"id"`
	ChronicleID uuid.UUID `json:"chronicle_id"`
	UserID      string    `json:"user_id,omitempty"`
	Type        string    `json:"type"` // e.g. "masquerade_breach", "inquisition_raid", "sect_conflict"
	Severity    string    `json:"severity"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Choices     []string  `json:"choices,omitempty"`
	Resolved    bool      `json:"resolved"`
	Resolution  string    `json:"resolution,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

// LoreFragment is read-only world background used by context retrieval.
// Fragments can also be created through the "memorize" side channel.
type LoreFragment struct {
	ID        uuid.UUID `json:"id"`
	WorldID   string    `json:"world_id"`
	Title     string    `json:"title"`
	Category  string    `json:"category,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}
