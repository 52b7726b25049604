package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/rodrgost/cronicas-carmesim/pkg/vtm"
)

// Key layout. Documents live under typed keys; set keys index them for
// listing. Deleting a document always cleans its index entry.
const (
	keyCharacter       = "character:%s"
	keyUserCharacters  = "user:%s:characters"
	keyChronicle       = "chronicle:%s"
	keyCharChronicle   = "character:%s:chronicle"
	keyNPC             = "npc:%s"
	keyChronicleNPCs   = "chronicle:%s:npcs"
	keyItem            = "item:%s"
	keyCharItems       = "character:%s:items"
	keyWorldEvent      = "worldevent:%s"
	keyChronicleEvents = "chronicle:%s:events"
	keyLoreFragment    = "lore:%s"
	keyWorldLore       = "world:%s:lore"
)

// RedisStorage implements Storage on Redis JSON documents.
type RedisStorage struct {
	client *redis.Client
	logger *slog.Logger
}

var _ Storage = (*RedisStorage)(nil)

// NewRedisStorage creates a Redis-backed store. redisURL is a
// redis:// connection URL.
func NewRedisStorage(redisURL string, logger *slog.Logger) (*RedisStorage, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return &RedisStorage{
		client: redis.NewClient(opts),
		logger: logger,
	}, nil
}

// NewRedisStorageFromClient wraps an existing client. Used by tests
// and by the worker, which shares one client with the queue.
func NewRedisStorageFromClient(client *redis.Client, logger *slog.Logger) *RedisStorage {
	return &RedisStorage{client: client, logger: logger}
}

func (r *RedisStorage) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	return r.client.Close()
}

// WaitForConnection blocks until Redis answers a ping or the context
// is cancelled.
func (r *RedisStorage) WaitForConnection(ctx context.Context) error {
	const maxRetries = 30
	const retryDelay = 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		if err := r.Ping(ctx); err == nil {
			return nil
		} else if r.logger != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
		case <-time.After(retryDelay):
		}
	}
	return fmt.Errorf("redis not reachable after %d attempts", maxRetries)
}

func (r *RedisStorage) saveDoc(ctx context.Context, key string, doc any, indexKey, indexMember string) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, key, data, 0)
	if indexKey != "" {
		pipe.SAdd(ctx, indexKey, indexMember)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

func (r *RedisStorage) getDoc(ctx context.Context, key string, out any) error {
	data, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", key, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return nil
}

func (r *RedisStorage) deleteDoc(ctx context.Context, key, indexKey, indexMember string) error {
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, key)
	if indexKey != "" {
		pipe.SRem(ctx, indexKey, indexMember)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (r *RedisStorage) SaveCharacter(ctx context.Context, c *vtm.Character) error {
	c.UpdatedAt = time.Now().UTC()
	return r.saveDoc(ctx,
		fmt.Sprintf(keyCharacter, c.ID),
		c,
		fmt.Sprintf(keyUserCharacters, c.UserID), c.ID.String())
}

func (r *RedisStorage) GetCharacter(ctx context.Context, id uuid.UUID) (*vtm.Character, error) {
	var c vtm.Character
	if err := r.getDoc(ctx, fmt.Sprintf(keyCharacter, id), &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *RedisStorage) ListCharacters(ctx context.Context, userID string) ([]*vtm.Character, error) {
	ids, err := r.client.SMembers(ctx, fmt.Sprintf(keyUserCharacters, userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list characters for %s: %w", userID, err)
	}

	characters := make([]*vtm.Character, 0, len(ids))
	for _, id := range ids {
		var c vtm.Character
		if err := r.getDoc(ctx, fmt.Sprintf(keyCharacter, id), &c); err != nil {
			if err == ErrNotFound {
				continue // stale index entry
			}
			return nil, err
		}
		characters = append(characters, &c)
	}
	return characters, nil
}

func (r *RedisStorage) DeleteCharacter(ctx context.Context, id uuid.UUID) error {
	c, err := r.GetCharacter(ctx, id)
	if err != nil {
		return err
	}
	return r.deleteDoc(ctx,
		fmt.Sprintf(keyCharacter, id),
		fmt.Sprintf(keyUserCharacters, c.UserID), id.String())
}

func (r *RedisStorage) SaveChronicle(ctx context.Context, chr *vtm.Chronicle) error {
	chr.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(chr)
	if err != nil {
		return fmt.Errorf("failed to marshal chronicle: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, fmt.Sprintf(keyChronicle, chr.ID), data, 0)
	pipe.Set(ctx, fmt.Sprintf(keyCharChronicle, chr.CharacterID), chr.ID.String(), 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save chronicle: %w", err)
	}
	return nil
}

func (r *RedisStorage) GetChronicle(ctx context.Context, id uuid.UUID) (*vtm.Chronicle, error) {
	var chr vtm.Chronicle
	if err := r.getDoc(ctx, fmt.Sprintf(keyChronicle, id), &chr); err != nil {
		return nil, err
	}
	return &chr, nil
}

func (r *RedisStorage) GetChronicleByCharacter(ctx context.Context, characterID uuid.UUID) (*vtm.Chronicle, error) {
	id, err := r.client.Get(ctx, fmt.Sprintf(keyCharChronicle, characterID)).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve chronicle for character %s: %w", characterID, err)
	}

	chronicleID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("corrupt chronicle pointer for character %s: %w", characterID, err)
	}
	return r.GetChronicle(ctx, chronicleID)
}

func (r *RedisStorage) DeleteChronicle(ctx context.Context, id uuid.UUID) error {
	chr, err := r.GetChronicle(ctx, id)
	if err != nil {
		return err
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, fmt.Sprintf(keyChronicle, id))
	pipe.Del(ctx, fmt.Sprintf(keyCharChronicle, chr.CharacterID))
	pipe.Del(ctx, fmt.Sprintf(keyChronicleNPCs, id))
	pipe.Del(ctx, fmt.Sprintf(keyChronicleEvents, id))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete chronicle: %w", err)
	}
	return nil
}

func (r *RedisStorage) SaveNPC(ctx context.Context, npc *vtm.NPC) error {
	npc.UpdatedAt = time.Now().UTC()
	return r.saveDoc(ctx,
		fmt.Sprintf(keyNPC, npc.ID),
		npc,
		fmt.Sprintf(keyChronicleNPCs, npc.ChronicleID), npc.ID.String())
}

func (r *RedisStorage) GetNPC(ctx context.Context, id uuid.UUID) (*vtm.NPC, error) {
	var npc vtm.NPC
	if err := r.getDoc(ctx, fmt.Sprintf(keyNPC, id), &npc); err != nil {
		return nil, err
	}
	return &npc, nil
}

func (r *RedisStorage) ListNPCs(ctx context.Context, chronicleID uuid.UUID) ([]*vtm.NPC, error) {
	ids, err := r.client.SMembers(ctx, fmt.Sprintf(keyChronicleNPCs, chronicleID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list npcs for chronicle %s: %w", chronicleID, err)
	}

	npcs := make([]*vtm.NPC, 0, len(ids))
	for _, id := range ids {
		var npc vtm.NPC
		if err := r.getDoc(ctx, fmt.Sprintf(keyNPC, id), &npc); err != nil {
			if err == ErrNotFound {
				continue
			}
			return nil, err
		}
		npcs = append(npcs, &npc)
	}
	return npcs, nil
}

func (r *RedisStorage) DeleteNPC(ctx context.Context, id uuid.UUID) error {
	npc, err := r.GetNPC(ctx, id)
	if err != nil {
		return err
	}
	return r.deleteDoc(ctx,
		fmt.Sprintf(keyNPC, id),
		fmt.Sprintf(keyChronicleNPCs, npc.ChronicleID), id.String())
}

func (r *RedisStorage) SaveItem(ctx context.Context, item *vtm.Item) error {
	item.UpdatedAt = time.Now().UTC()
	return r.saveDoc(ctx,
		fmt.Sprintf(keyItem, item.ID),
		item,
		fmt.Sprintf(keyCharItems, item.CharacterID), item.ID.String())
}

func (r *RedisStorage) ListItems(ctx context.Context, characterID uuid.UUID) ([]*vtm.Item, error) {
	ids, err := r.client.SMembers(ctx, fmt.Sprintf(keyCharItems, characterID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list items for character %s: %w", characterID, err)
	}

	items := make([]*vtm.Item, 0, len(ids))
	for _, id := range ids {
		var item vtm.Item
		if err := r.getDoc(ctx, fmt.Sprintf(keyItem, id), &item); err != nil {
			if err == ErrNotFound {
				continue
			}
			return nil, err
		}
		items = append(items, &item)
	}
	return items, nil
}

func (r *RedisStorage) DeleteItem(ctx context.Context, id uuid.UUID) error {
	var item vtm.Item
	if err := r.getDoc(ctx, fmt.Sprintf(keyItem, id), &item); err != nil {
		return err
	}
	return r.deleteDoc(ctx,
		fmt.Sprintf(keyItem, id),
		fmt.Sprintf(keyCharItems, item.CharacterID), id.String())
}

func (r *RedisStorage) SaveWorldEvent(ctx context.Context, ev *vtm.WorldEvent) error {
	ev.UpdatedAt = time.Now().UTC()
	return r.saveDoc(ctx,
		fmt.Sprintf(keyWorldEvent, ev.ID),
		ev,
		fmt.Sprintf(keyChronicleEvents, ev.ChronicleID), ev.ID.String())
}

func (r *RedisStorage) GetWorldEvent(ctx context.Context, id uuid.UUID) (*vtm.WorldEvent, error) {
	var ev vtm.WorldEvent
	if err := r.getDoc(ctx, fmt.Sprintf(keyWorldEvent, id), &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

func (r *RedisStorage) ListWorldEvents(ctx context.Context, chronicleID uuid.UUID) ([]*vtm.WorldEvent, error) {
	ids, err := r.client.SMembers(ctx, fmt.Sprintf(keyChronicleEvents, chronicleID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list world events for chronicle %s: %w", chronicleID, err)
	}

	events := make([]*vtm.WorldEvent, 0, len(ids))
	for _, id := range ids {
		var ev vtm.WorldEvent
		if err := r.getDoc(ctx, fmt.Sprintf(keyWorldEvent, id), &ev); err != nil {
			if err == ErrNotFound {
				continue
			}
			return nil, err
		}
		events = append(events, &ev)
	}
	return events, nil
}

func (r *RedisStorage) SaveLoreFragment(ctx context.Context, frag *vtm.LoreFragment) error {
	return r.saveDoc(ctx,
		fmt.Sprintf(keyLoreFragment, frag.ID),
		frag,
		fmt.Sprintf(keyWorldLore, frag.WorldID), frag.ID.String())
}

func (r *RedisStorage) ListLoreFragments(ctx context.Context, worldID string) ([]*vtm.LoreFragment, error) {
	ids, err := r.client.SMembers(ctx, fmt.Sprintf(keyWorldLore, worldID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list lore for world %s: %w", worldID, err)
	}

	fragments := make([]*vtm.LoreFragment, 0, len(ids))
	for _, id := range ids {
		var frag vtm.LoreFragment
		if err := r.getDoc(ctx, fmt.Sprintf(keyLoreFragment, id), &frag); err != nil {
			if err == ErrNotFound {
				continue
			}
			return nil, err
		}
		fragments = append(fragments, &frag)
	}
	return fragments, nil
}

func (r *RedisStorage) GetLoreFragment(ctx context.Context, id uuid.UUID) (*vtm.LoreFragment, error) {
	var frag vtm.LoreFragment
	if err := r.getDoc(ctx, fmt.Sprintf(keyLoreFragment, id), &frag); err != nil {
		return nil, err
	}
	return &frag, nil
}

// Client exposes the underlying connection for the queue and events
// services, which share it.
func (r *RedisStorage) Client() *redis.Client {
	return r.client
}
