package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	supa "github.com/supabase-community/supabase-go"

	"github.com/rodrgost/cronicas-carmesim/pkg/vtm"
)

// Table names in the Supabase project.
const (
	tableCharacters  = "characters"
	tableChronicles  = "chronicles"
	tableNPCs        = "npcs"
	tableItems       = "items"
	tableWorldEvents = "world_events"
	tableLore        = "lore_fragments"
)

// SupabaseStorage implements Storage on Supabase (PostgREST). Each
// entity maps to one table whose columns carry the same JSON names as
// the Go structs.
type SupabaseStorage struct {
	client *supa.Client
	logger *slog.Logger
}

var _ Storage = (*SupabaseStorage)(nil)

func NewSupabaseStorage(url, anonKey string, logger *slog.Logger) (*SupabaseStorage, error) {
	client, err := supa.NewClient(url, anonKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}
	return &SupabaseStorage{client: client, logger: logger}, nil
}

func (s *SupabaseStorage) Ping(ctx context.Context) error {
	var rows []vtm.LoreFragment
	_, err := s.client.From(tableLore).Select("id", "", false).Limit(1, "").ExecuteTo(&rows)
	if err != nil {
		return fmt.Errorf("supabase ping failed: %w", err)
	}
	return nil
}

func (s *SupabaseStorage) Close() error {
	return nil
}

func (s *SupabaseStorage) upsert(table string, doc any) error {
	var rows []map[string]any
	_, err := s.client.From(table).Insert(doc, true, "id", "", "").ExecuteTo(&rows)
	if err != nil {
		return fmt.Errorf("failed to upsert into %s: %w", table, err)
	}
	return nil
}

func (s *SupabaseStorage) deleteByID(table string, id uuid.UUID) error {
	var rows []map[string]any
	_, err := s.client.From(table).Delete("", "").Eq("id", id.String()).ExecuteTo(&rows)
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	return nil
}

func (s *SupabaseStorage) SaveCharacter(_ context.Context, c *vtm.Character) error {
	c.UpdatedAt = time.Now().UTC()
	return s.upsert(tableCharacters, c)
}

func (s *SupabaseStorage) GetCharacter(_ context.Context, id uuid.UUID) (*vtm.Character, error) {
	var rows []vtm.Character
	_, err := s.client.From(tableCharacters).Select("*", "", false).Eq("id", id.String()).Limit(1, "").ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("failed to load character: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

func (s *SupabaseStorage) ListCharacters(_ context.Context, userID string) ([]*vtm.Character, error) {
	var rows []vtm.Character
	_, err := s.client.From(tableCharacters).Select("*", "", false).Eq("user_id", userID).ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("failed to list characters: %w", err)
	}
	return toPointers(rows), nil
}

func (s *SupabaseStorage) DeleteCharacter(_ context.Context, id uuid.UUID) error {
	return s.deleteByID(tableCharacters, id)
}

func (s *SupabaseStorage) SaveChronicle(_ context.Context, chr *vtm.Chronicle) error {
	chr.UpdatedAt = time.Now().UTC()
	return s.upsert(tableChronicles, chr)
}

func (s *SupabaseStorage) GetChronicle(_ context.Context, id uuid.UUID) (*vtm.Chronicle, error) {
	var rows []vtm.Chronicle
	_, err := s.client.From(tableChronicles).Select("*", "", false).Eq("id", id.String()).Limit(1, "").ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("failed to load chronicle: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

func (s *SupabaseStorage) GetChronicleByCharacter(_ context.Context, characterID uuid.UUID) (*vtm.Chronicle, error) {
	var rows []vtm.Chronicle
	_, err := s.client.From(tableChronicles).Select("*", "", false).Eq("character_id", characterID.String()).Limit(1, "").ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("failed to load chronicle for character: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

func (s *SupabaseStorage) DeleteChronicle(_ context.Context, id uuid.UUID) error {
	return s.deleteByID(tableChronicles, id)
}

func (s *SupabaseStorage) SaveNPC(_ context.Context, npc *vtm.NPC) error {
	npc.UpdatedAt = time.Now().UTC()
	return s.upsert(tableNPCs, npc)
}

func (s *SupabaseStorage) GetNPC(_ context.Context, id uuid.UUID) (*vtm.NPC, error) {
	var rows []vtm.NPC
	_, err := s.client.From(tableNPCs).Select("*", "", false).Eq("id", id.String()).Limit(1, "").ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("failed to load npc: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

func (s *SupabaseStorage) ListNPCs(_ context.Context, chronicleID uuid.UUID) ([]*vtm.NPC, error) {
	var rows []vtm.NPC
	_, err := s.client.From(tableNPCs).Select("*", "", false).Eq("chronicle_id", chronicleID.String()).ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("failed to list npcs: %w", err)
	}
	return toPointers(rows), nil
}

func (s *SupabaseStorage) DeleteNPC(_ context.Context, id uuid.UUID) error {
	return s.deleteByID(tableNPCs, id)
}

func (s *SupabaseStorage) SaveItem(_ context.Context, item *vtm.Item) error {
	item.UpdatedAt = time.Now().UTC()
	return s.upsert(tableItems, item)
}

func (s *SupabaseStorage) ListItems(_ context.Context, characterID uuid.UUID) ([]*vtm.Item, error) {
	var rows []vtm.Item
	_, err := s.client.From(tableItems).Select("*", "", false).Eq("character_id", characterID.String()).ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	return toPointers(rows), nil
}

func (s *SupabaseStorage) DeleteItem(_ context.Context, id uuid.UUID) error {
	return s.deleteByID(tableItems, id)
}

func (s *SupabaseStorage) SaveWorldEvent(_ context.Context, ev *vtm.WorldEvent) error {
	ev.UpdatedAt = time.Now().UTC()
	return s.upsert(tableWorldEvents, ev)
}

func (s *SupabaseStorage) GetWorldEvent(_ context.Context, id uuid.UUID) (*vtm.WorldEvent, error) {
	var rows []vtm.WorldEvent
	_, err := s.client.From(tableWorldEvents).Select("*", "", false).Eq("id", id.String()).Limit(1, "").ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("failed to load world event: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

func (s *SupabaseStorage) ListWorldEvents(_ context.Context, chronicleID uuid.UUID) ([]*vtm.WorldEvent, error) {
	var rows []vtm.WorldEvent
	_, err := s.client.From(tableWorldEvents).Select("*", "", false).Eq("chronicle_id", chronicleID.String()).ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("failed to list world events: %w", err)
	}
	return toPointers(rows), nil
}

func (s *SupabaseStorage) SaveLoreFragment(_ context.Context, frag *vtm.LoreFragment) error {
	return s.upsert(tableLore, frag)
}

func (s *SupabaseStorage) ListLoreFragments(_ context.Context, worldID string) ([]*vtm.LoreFragment, error) {
	var rows []vtm.LoreFragment
	_, err := s.client.From(tableLore).Select("id,world_id,title,category,tags", "", false).Eq("world_id", worldID).ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("failed to list lore: %w", err)
	}
	return toPointers(rows), nil
}

func (s *SupabaseStorage) GetLoreFragment(_ context.Context, id uuid.UUID) (*vtm.LoreFragment, error) {
	var rows []vtm.LoreFragment
	_, err := s.client.From(tableLore).Select("*", "", false).Eq("id", id.String()).Limit(1, "").ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("failed to load lore fragment: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

func toPointers[T any](rows []T) []*T {
	out := make([]*T, len(rows))
	for i := range rows {
		out[i] = &rows[i]
	}
	return out
}
