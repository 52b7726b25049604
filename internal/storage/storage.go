// Package storage persists game documents. Two backends implement the
// same interface: Redis for self-hosted deployments and Supabase for
// the hosted one. Entities are stored as JSON documents; there is no
// relational schema on the Redis side.
package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/rodrgost/cronicas-carmesim/pkg/vtm"
)

// ErrNotFound is returned when a requested document does not exist.
var ErrNotFound = errors.New("not found")

// HealthChecker defines basic health check capabilities
type HealthChecker interface {
	// Ping tests the service connection
	Ping(ctx context.Context) error
}

// Closer defines cleanup capabilities
type Closer interface {
	// Close closes the service connection
	Close() error
}

// Storage defines the interface for game persistence. All reads are
// scoped by ownership upstream; implementations store and fetch by ID.
type Storage interface {
	HealthChecker
	Closer

	SaveCharacter(ctx context.Context, c *vtm.Character) error
	GetCharacter(ctx context.Context, id uuid.UUID) (*vtm.Character, error)
	ListCharacters(ctx context.Context, userID string) ([]*vtm.Character, error)
	DeleteCharacter(ctx context.Context, id uuid.UUID) error

	SaveChronicle(ctx context.Context, chr *vtm.Chronicle) error
	GetChronicle(ctx context.Context, id uuid.UUID) (*vtm.Chronicle, error)
	// GetChronicleByCharacter returns ErrNotFound when the character has
	// never played; the caller creates the chronicle lazily.
	GetChronicleByCharacter(ctx context.Context, characterID uuid.UUID) (*vtm.Chronicle, error)
	DeleteChronicle(ctx context.Context, id uuid.UUID) error

	SaveNPC(ctx context.Context, npc *vtm.NPC) error
	GetNPC(ctx context.Context, id uuid.UUID) (*vtm.NPC, error)
	ListNPCs(ctx context.Context, chronicleID uuid.UUID) ([]*vtm.NPC, error)
	DeleteNPC(ctx context.Context, id uuid.UUID) error

	SaveItem(ctx context.Context, item *vtm.Item) error
	ListItems(ctx context.Context, characterID uuid.UUID) ([]*vtm.Item, error)
	DeleteItem(ctx context.Context, id uuid.UUID) error

	SaveWorldEvent(ctx context.Context, ev *vtm.WorldEvent) error
	GetWorldEvent(ctx context.Context, id uuid.UUID) (*vtm.WorldEvent, error)
	ListWorldEvents(ctx context.Context, chronicleID uuid.UUID) ([]*vtm.WorldEvent, error)

	SaveLoreFragment(ctx context.Context, frag *vtm.LoreFragment) error
	ListLoreFragments(ctx context.Context, worldID string) ([]*vtm.LoreFragment, error)
	GetLoreFragment(ctx context.Context, id uuid.UUID) (*vtm.LoreFragment, error)
}
