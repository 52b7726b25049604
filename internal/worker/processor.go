package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/rodrgost/cronicas-carmesim/internal/services"
	"github.com/rodrgost/cronicas-carmesim/internal/storage"
	"github.com/rodrgost/cronicas-carmesim/pkg/chat"
	"github.com/rodrgost/cronicas-carmesim/pkg/lore"
	"github.com/rodrgost/cronicas-carmesim/pkg/narrator"
	"github.com/rodrgost/cronicas-carmesim/pkg/prompts"
	"github.com/rodrgost/cronicas-carmesim/pkg/state"
	"github.com/rodrgost/cronicas-carmesim/pkg/vtm"
)

// maxStoredHistory caps the chronicle's stored conversation log. The
// prompt window is narrower; this only bounds document growth.
const maxStoredHistory = 200

// TurnProcessor runs a full narrator turn: load state, retrieve lore,
// assemble prompts, call the model, parse, reconcile, persist.
type TurnProcessor struct {
	llm       services.LLMService
	store     storage.Storage
	retriever *lore.Retriever
	logger    *slog.Logger
}

func NewTurnProcessor(llm services.LLMService, store storage.Storage, retriever *lore.Retriever, logger *slog.Logger) *TurnProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &TurnProcessor{
		llm:       llm,
		store:     store,
		retriever: retriever,
		logger:    logger,
	}
}

// ProcessTurn executes one player turn. Infrastructure failures before
// the model call return an error; a model failure degrades to a
// fallback turn that changes no state.
func (p *TurnProcessor) ProcessTurn(ctx context.Context, req *chat.TurnRequest) (*chat.TurnResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	snap, err := p.loadSnapshot(ctx, req)
	if err != nil {
		return nil, err
	}

	var loreBlock string
	if p.retriever != nil {
		loreBlock = p.retriever.Retrieve(ctx, snap.Chronicle.WorldID, req.Action, req.Language)
	}

	messages, err := prompts.NewBuilder().
		WithSnapshot(snap).
		WithLore(loreBlock).
		WithUserAction(req.Action, req.Language).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to assemble prompt: %w", err)
	}

	raw, err := p.llm.Chat(ctx, messages)
	if err != nil {
		p.logger.Error("narrator call failed, degrading turn",
			"provider", p.llm.Name(),
			"chronicle_id", req.ChronicleID,
			"error", err)
		return p.fallbackTurn(ctx, snap, req), nil
	}

	resp := narrator.Parse(raw)
	narrator.Normalize(resp, req.Language)

	rec := state.NewReconciler(snap, resp, p.logger)
	result, err := rec.Apply()
	if err != nil {
		return nil, fmt.Errorf("failed to reconcile turn: %w", err)
	}

	p.appendHistory(snap.Chronicle, req, resp.Narrative())
	p.persist(ctx, snap, result)

	return &chat.TurnResponse{
		ChronicleID: snap.Chronicle.ID,
		Narration:   resp.StoryEvent,
		NPCDialogue: resp.NPCDialogue,
		Outcomes:    resp.Outcomes,
		Changes:     changesToMap(&result.Changes),
	}, nil
}

func (p *TurnProcessor) loadSnapshot(ctx context.Context, req *chat.TurnRequest) (*state.Snapshot, error) {
	chronicle, err := p.store.GetChronicle(ctx, req.ChronicleID)
	if err != nil {
		return nil, fmt.Errorf("failed to load chronicle %s: %w", req.ChronicleID, err)
	}
	if req.UserID != "" && chronicle.UserID != "" && chronicle.UserID != req.UserID {
		return nil, fmt.Errorf("chronicle %s does not belong to user", req.ChronicleID)
	}

	character, err := p.store.GetCharacter(ctx, chronicle.CharacterID)
	if err != nil {
		return nil, fmt.Errorf("failed to load character %s: %w", chronicle.CharacterID, err)
	}

	npcs, err := p.store.ListNPCs(ctx, chronicle.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load npcs: %w", err)
	}

	items, err := p.store.ListItems(ctx, character.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load items: %w", err)
	}

	return &state.Snapshot{
		Character: character,
		Chronicle: chronicle,
		NPCs:      npcs,
		Items:     items,
	}, nil
}

// fallbackTurn produces a harmless response in the player's language.
// The failed action is not recorded in the chronicle history.
func (p *TurnProcessor) fallbackTurn(_ context.Context, snap *state.Snapshot, req *chat.TurnRequest) *chat.TurnResponse {
	return &chat.TurnResponse{
		ChronicleID: snap.Chronicle.ID,
		Narration:   narrator.FallbackNarration(req.Language),
		Outcomes:    narrator.FallbackOutcomes(req.Language),
		Error:       "narrator unavailable",
	}
}

func (p *TurnProcessor) appendHistory(chronicle *vtm.Chronicle, req *chat.TurnRequest, narrative string) {
	chronicle.ChatHistory = append(chronicle.ChatHistory,
		vtm.HistoryEntry{Role: chat.ChatRoleUser, Content: req.Action},
		vtm.HistoryEntry{Role: chat.ChatRoleAssistant, Content: narrative},
	)
	if len(chronicle.ChatHistory) > maxStoredHistory {
		chronicle.ChatHistory = chronicle.ChatHistory[len(chronicle.ChatHistory)-maxStoredHistory:]
	}
}

// persist issues the staged writes independently. A failed write is
// logged and skipped; the turn is never retried because the narration
// has already been produced.
func (p *TurnProcessor) persist(ctx context.Context, snap *state.Snapshot, result *state.Result) {
	if result.Character != nil {
		if err := p.store.SaveCharacter(ctx, result.Character); err != nil {
			p.logger.Error("failed to save character", "character_id", result.Character.ID, "error", err)
		}
	}

	// The chronicle always saves: history grew even when the
	// reconciler left it untouched.
	if err := p.store.SaveChronicle(ctx, snap.Chronicle); err != nil {
		p.logger.Error("failed to save chronicle", "chronicle_id", snap.Chronicle.ID, "error", err)
	}

	for _, npc := range result.NewNPCs {
		if err := p.store.SaveNPC(ctx, npc); err != nil {
			p.logger.Error("failed to save new npc", "npc", npc.Name, "error", err)
		}
	}
	for _, npc := range result.UpdatedNPCs {
		if err := p.store.SaveNPC(ctx, npc); err != nil {
			p.logger.Error("failed to save npc update", "npc", npc.Name, "error", err)
		}
	}

	for _, item := range result.CreatedItems {
		if err := p.store.SaveItem(ctx, item); err != nil {
			p.logger.Error("failed to save new item", "item", item.Name, "error", err)
		}
	}
	for _, item := range result.UpdatedItems {
		if err := p.store.SaveItem(ctx, item); err != nil {
			p.logger.Error("failed to save item update", "item", item.Name, "error", err)
		}
	}
	for _, id := range result.DeletedItemIDs {
		if err := p.store.DeleteItem(ctx, id); err != nil {
			p.logger.Error("failed to delete item", "item_id", id, "error", err)
		}
	}

	if result.NewWorldEvent != nil {
		if err := p.store.SaveWorldEvent(ctx, result.NewWorldEvent); err != nil {
			p.logger.Error("failed to save world event", "title", result.NewWorldEvent.Title, "error", err)
		}
	}

	for _, pr := range result.PortraitRequests {
		p.logger.Info("portrait requested", "npc", pr.Name, "clan", pr.Clan, "chronicle_id", pr.ChronicleID)
	}
}

func changesToMap(c *state.Changes) map[string]any {
	if c.IsEmpty() {
		return nil
	}
	data, err := json.Marshal(c)
	if err != nil {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}
