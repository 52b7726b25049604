package storage

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/rodrgost/cronicas-carmesim/pkg/vtm"
)

// MockStorage is an in-memory Storage implementation for testing.
type MockStorage struct {
	mu          sync.RWMutex
	characters  map[uuid.UUID]*vtm.Character
	chronicles  map[uuid.UUID]*vtm.Chronicle
	npcs        map[uuid.UUID]*vtm.NPC
	items       map[uuid.UUID]*vtm.Item
	worldEvents map[uuid.UUID]*vtm.WorldEvent
	lore        map[uuid.UUID]*vtm.LoreFragment

	// Optional error injection, applied to every call.
	Err error
}

var _ Storage = (*MockStorage)(nil)

func NewMockStorage() *MockStorage {
	return &MockStorage{
		characters:  make(map[uuid.UUID]*vtm.Character),
		chronicles:  make(map[uuid.UUID]*vtm.Chronicle),
		npcs:        make(map[uuid.UUID]*vtm.NPC),
		items:       make(map[uuid.UUID]*vtm.Item),
		worldEvents: make(map[uuid.UUID]*vtm.WorldEvent),
		lore:        make(map[uuid.UUID]*vtm.LoreFragment),
	}
}

func (m *MockStorage) Ping(_ context.Context) error { return m.Err }
func (m *MockStorage) Close() error                 { return nil }

func (m *MockStorage) SaveCharacter(_ context.Context, c *vtm.Character) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.characters[c.ID] = &cp
	return nil
}

func (m *MockStorage) GetCharacter(_ context.Context, id uuid.UUID) (*vtm.Character, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.characters[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *MockStorage) ListCharacters(_ context.Context, userID string) ([]*vtm.Character, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*vtm.Character
	for _, c := range m.characters {
		if c.UserID == userID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockStorage) DeleteCharacter(_ context.Context, id uuid.UUID) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.characters, id)
	return nil
}

func (m *MockStorage) SaveChronicle(_ context.Context, chr *vtm.Chronicle) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *chr
	m.chronicles[chr.ID] = &cp
	return nil
}

func (m *MockStorage) GetChronicle(_ context.Context, id uuid.UUID) (*vtm.Chronicle, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	chr, ok := m.chronicles[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *chr
	return &cp, nil
}

func (m *MockStorage) GetChronicleByCharacter(_ context.Context, characterID uuid.UUID) (*vtm.Chronicle, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, chr := range m.chronicles {
		if chr.CharacterID == characterID {
			cp := *chr
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MockStorage) DeleteChronicle(_ context.Context, id uuid.UUID) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.chronicles, id)
	return nil
}

func (m *MockStorage) SaveNPC(_ context.Context, npc *vtm.NPC) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *npc
	m.npcs[npc.ID] = &cp
	return nil
}

func (m *MockStorage) GetNPC(_ context.Context, id uuid.UUID) (*vtm.NPC, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	npc, ok := m.npcs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *npc
	return &cp, nil
}

func (m *MockStorage) ListNPCs(_ context.Context, chronicleID uuid.UUID) ([]*vtm.NPC, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*vtm.NPC
	for _, npc := range m.npcs {
		if npc.ChronicleID == chronicleID {
			cp := *npc
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockStorage) DeleteNPC(_ context.Context, id uuid.UUID) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.npcs, id)
	return nil
}

func (m *MockStorage) SaveItem(_ context.Context, item *vtm.Item) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *item
	m.items[item.ID] = &cp
	return nil
}

func (m *MockStorage) ListItems(_ context.Context, characterID uuid.UUID) ([]*vtm.Item, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*vtm.Item
	for _, item := range m.items {
		if item.CharacterID == characterID {
			cp := *item
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockStorage) DeleteItem(_ context.Context, id uuid.UUID) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
	return nil
}

func (m *MockStorage) SaveWorldEvent(_ context.Context, ev *vtm.WorldEvent) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *ev
	m.worldEvents[ev.ID] = &cp
	return nil
}

func (m *MockStorage) GetWorldEvent(_ context.Context, id uuid.UUID) (*vtm.WorldEvent, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	ev, ok := m.worldEvents[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *ev
	return &cp, nil
}

func (m *MockStorage) ListWorldEvents(_ context.Context, chronicleID uuid.UUID) ([]*vtm.WorldEvent, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*vtm.WorldEvent
	for _, ev := range m.worldEvents {
		if ev.ChronicleID == chronicleID {
			cp := *ev
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockStorage) SaveLoreFragment(_ context.Context, frag *vtm.LoreFragment) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *frag
	m.lore[frag.ID] = &cp
	return nil
}

func (m *MockStorage) ListLoreFragments(_ context.Context, worldID string) ([]*vtm.LoreFragment, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*vtm.LoreFragment
	for _, frag := range m.lore {
		if frag.WorldID == worldID {
			cp := *frag
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockStorage) GetLoreFragment(_ context.Context, id uuid.UUID) (*vtm.LoreFragment, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	frag, ok := m.lore[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *frag
	return &cp, nil
}
