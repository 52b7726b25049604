package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rodrgost/cronicas-carmesim/internal/storage"
	"github.com/rodrgost/cronicas-carmesim/pkg/vtm"
)

// ChronicleHandler serves chronicle lifecycle and play-adjacent actions.
// Routes:
// POST /v1/chronicles                                - Create (or return) the character's chronicle
// GET /v1/chronicles/{id}                            - Read chronicle
// DELETE /v1/chronicles/{id}                         - Reset chronicle (removes its NPCs)
// GET /v1/chronicles/{id}/npcs                       - List the chronicle's NPCs
// POST /v1/chronicles/{id}/challenge                 - Roll the pending dice challenge
// POST /v1/chronicles/{id}/events/{eventID}/resolve  - Resolve a world event
// POST /v1/chronicles/{id}/mode                      - Switch conversation mode
type ChronicleHandler struct {
	store  storage.Storage
	logger *slog.Logger
}

func NewChronicleHandler(store storage.Storage, logger *slog.Logger) *ChronicleHandler {
	return &ChronicleHandler{store: store, logger: logger}
}

// CreateChronicleRequest defines the request body for creating a chronicle.
type CreateChronicleRequest struct {
	CharacterID    uuid.UUID `json:"character_id"`
	WorldID        string    `json:"world_id,omitempty"`
	NarrativeStyle string    `json:"narrative_style,omitempty"`
}

func (h *ChronicleHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := splitPath(r.URL.Path, "/v1/chronicles")

	if len(parts) == 0 {
		if r.Method != http.MethodPost {
			writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. POST creates a chronicle.")
			return
		}
		h.handleCreate(w, r)
		return
	}

	chronicleID, err := uuid.Parse(parts[0])
	if err != nil {
		h.logger.Warn("Invalid chronicle ID", "id", parts[0], "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid chronicle ID format")
		return
	}

	chronicle := h.loadOwned(w, r, chronicleID)
	if chronicle == nil {
		return // error already written
	}

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		writeJSON(w, h.logger, http.StatusOK, chronicle)
	case len(parts) == 1 && r.Method == http.MethodDelete:
		h.handleReset(w, r, chronicle)
	case len(parts) == 2 && parts[1] == "npcs" && r.Method == http.MethodGet:
		h.handleListNPCs(w, r, chronicle)
	case len(parts) == 2 && parts[1] == "challenge" && r.Method == http.MethodPost:
		h.handleChallenge(w, r, chronicle)
	case len(parts) == 2 && parts[1] == "mode" && r.Method == http.MethodPost:
		h.handleModeSwitch(w, r, chronicle)
	case len(parts) == 3 && parts[1] == "events" && r.Method == http.MethodPost:
		writeError(w, h.logger, http.StatusNotFound, "Unknown route. Did you mean /events/{id}/resolve?")
	case len(parts) == 4 && parts[1] == "events" && parts[3] == "resolve" && r.Method == http.MethodPost:
		h.handleResolveEvent(w, r, chronicle, parts[2])
	default:
		writeError(w, h.logger, http.StatusNotFound, "Unknown chronicle route")
	}
}

func splitPath(path, prefix string) []string {
	trimmed := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// loadOwned fetches the chronicle and enforces ownership. On failure it
// writes the error response and returns nil.
func (h *ChronicleHandler) loadOwned(w http.ResponseWriter, r *http.Request, id uuid.UUID) *vtm.Chronicle {
	chronicle, err := h.store.GetChronicle(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, h.logger, http.StatusNotFound, "Chronicle not found")
			return nil
		}
		h.logger.Error("Failed to load chronicle", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load chronicle")
		return nil
	}
	if uid := userID(r); uid != "" && chronicle.UserID != "" && chronicle.UserID != uid {
		// Public chronicles stay readable for sharing.
		if chronicle.Public && r.Method == http.MethodGet {
			return chronicle
		}
		writeError(w, h.logger, http.StatusForbidden, "Chronicle belongs to another user")
		return nil
	}
	return chronicle
}

func (h *ChronicleHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateChronicleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	if req.CharacterID == uuid.Nil {
		writeError(w, h.logger, http.StatusBadRequest, "character_id is required")
		return
	}

	character, err := h.store.GetCharacter(r.Context(), req.CharacterID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, h.logger, http.StatusBadRequest, "Character not found")
			return
		}
		h.logger.Error("Failed to load character", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load character")
		return
	}
	if uid := userID(r); uid != "" && character.UserID != "" && character.UserID != uid {
		writeError(w, h.logger, http.StatusForbidden, "Character belongs to another user")
		return
	}

	// One chronicle per character: return the existing one when the
	// character has already played.
	if existing, err := h.store.GetChronicleByCharacter(r.Context(), character.ID); err == nil {
		writeJSON(w, h.logger, http.StatusOK, existing)
		return
	} else if !errors.Is(err, storage.ErrNotFound) {
		h.logger.Error("Failed to resolve chronicle", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to resolve chronicle")
		return
	}

	chronicle := vtm.NewChronicle(character.ID, character.UserID, req.WorldID)
	if req.NarrativeStyle != "" {
		switch req.NarrativeStyle {
		case vtm.StyleConcise, vtm.StyleBalanced, vtm.StyleTheatrical:
			chronicle.NarrativeStyle = req.NarrativeStyle
		default:
			writeError(w, h.logger, http.StatusBadRequest, "Unknown narrative_style")
			return
		}
	}

	if err := h.store.SaveChronicle(r.Context(), chronicle); err != nil {
		h.logger.Error("Failed to save chronicle", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to save chronicle")
		return
	}

	h.logger.Info("Chronicle created", "chronicle_id", chronicle.ID, "character_id", character.ID)
	writeJSON(w, h.logger, http.StatusCreated, chronicle)
}

// handleReset deletes the chronicle and its NPCs. The character and
// its inventory survive a reset.
func (h *ChronicleHandler) handleReset(w http.ResponseWriter, r *http.Request, chronicle *vtm.Chronicle) {
	npcs, err := h.store.ListNPCs(r.Context(), chronicle.ID)
	if err != nil {
		h.logger.Error("Failed to list npcs for reset", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to reset chronicle")
		return
	}
	for _, npc := range npcs {
		if err := h.store.DeleteNPC(r.Context(), npc.ID); err != nil {
			h.logger.Error("Failed to delete npc during reset", "npc_id", npc.ID, "error", err)
		}
	}

	if err := h.store.DeleteChronicle(r.Context(), chronicle.ID); err != nil {
		h.logger.Error("Failed to delete chronicle", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to reset chronicle")
		return
	}

	h.logger.Info("Chronicle reset", "chronicle_id", chronicle.ID, "npcs_removed", len(npcs))
	w.WriteHeader(http.StatusNoContent)
}

func (h *ChronicleHandler) handleListNPCs(w http.ResponseWriter, r *http.Request, chronicle *vtm.Chronicle) {
	npcs, err := h.store.ListNPCs(r.Context(), chronicle.ID)
	if err != nil {
		h.logger.Error("Failed to list npcs", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to list NPCs")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, npcs)
}

// ChallengeResponse reports a resolved dice challenge.
type ChallengeResponse struct {
	Challenge *vtm.DiceChallenge `json:"challenge"`
	Pool      int                `json:"pool"`
	Result    *vtm.PoolResult    `json:"result"`
	Success   bool               `json:"success"`
}

func (h *ChronicleHandler) handleChallenge(w http.ResponseWriter, r *http.Request, chronicle *vtm.Chronicle) {
	if chronicle.PendingChallenge == nil {
		writeError(w, h.logger, http.StatusConflict, "No pending dice challenge")
		return
	}

	character, err := h.store.GetCharacter(r.Context(), chronicle.CharacterID)
	if err != nil {
		h.logger.Error("Failed to load character for challenge", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load character")
		return
	}

	challenge := chronicle.PendingChallenge
	pool := character.DicePool(challenge.Attribute, challenge.Skill)

	now := time.Now().UnixNano()
	roller := vtm.NewRoller(rand.NewPCG(uint64(now), uint64(now>>32)))
	result := roller.RollPool(pool, character.Hunger)

	chronicle.PendingChallenge = nil
	if err := h.store.SaveChronicle(r.Context(), chronicle); err != nil {
		h.logger.Error("Failed to save chronicle after challenge", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to save chronicle")
		return
	}

	h.logger.Info("Challenge rolled",
		"chronicle_id", chronicle.ID,
		"attribute", challenge.Attribute,
		"skill", challenge.Skill,
		"pool", pool,
		"successes", result.Successes,
		"difficulty", challenge.Difficulty)

	writeJSON(w, h.logger, http.StatusOK, ChallengeResponse{
		Challenge: challenge,
		Pool:      pool,
		Result:    &result,
		Success:   result.Successes >= challenge.Difficulty,
	})
}

// ResolveEventRequest carries the player's choice for a world event.
type ResolveEventRequest struct {
	Choice string `json:"choice"`
}

func (h *ChronicleHandler) handleResolveEvent(w http.ResponseWriter, r *http.Request, chronicle *vtm.Chronicle, eventIDRaw string) {
	eventID, err := uuid.Parse(eventIDRaw)
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid world event ID format")
		return
	}

	var req ResolveEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	if strings.TrimSpace(req.Choice) == "" {
		writeError(w, h.logger, http.StatusBadRequest, "choice is required")
		return
	}

	event, err := h.store.GetWorldEvent(r.Context(), eventID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, h.logger, http.StatusNotFound, "World event not found")
			return
		}
		h.logger.Error("Failed to load world event", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load world event")
		return
	}
	if event.ChronicleID != chronicle.ID {
		writeError(w, h.logger, http.StatusNotFound, "World event not found")
		return
	}
	if event.Resolved {
		writeError(w, h.logger, http.StatusConflict, "World event already resolved")
		return
	}

	event.Resolved = true
	event.Resolution = req.Choice
	if err := h.store.SaveWorldEvent(r.Context(), event); err != nil {
		h.logger.Error("Failed to save world event", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to save world event")
		return
	}

	if chronicle.ActiveWorldEventID == event.ID {
		chronicle.ActiveWorldEventID = uuid.Nil
		if err := h.store.SaveChronicle(r.Context(), chronicle); err != nil {
			h.logger.Error("Failed to clear active world event", "error", err)
		}
	}

	h.logger.Info("World event resolved", "event_id", event.ID, "choice", req.Choice)
	writeJSON(w, h.logger, http.StatusOK, event)
}

// ModeSwitchRequest selects the conversation mode.
type ModeSwitchRequest struct {
	Mode  string    `json:"mode"`
	NPCID uuid.UUID `json:"npc_id,omitempty"`
}

func (h *ChronicleHandler) handleModeSwitch(w http.ResponseWriter, r *http.Request, chronicle *vtm.Chronicle) {
	var req ModeSwitchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}

	switch req.Mode {
	case vtm.ModeNarrator:
		chronicle.ConversationMode = vtm.ModeNarrator
		chronicle.ActiveNPCID = uuid.Nil
	case vtm.ModeNPC:
		if req.NPCID == uuid.Nil {
			writeError(w, h.logger, http.StatusBadRequest, "npc_id is required for npc mode")
			return
		}
		npc, err := h.store.GetNPC(r.Context(), req.NPCID)
		if err != nil || npc.ChronicleID != chronicle.ID {
			writeError(w, h.logger, http.StatusBadRequest, "NPC does not belong to this chronicle")
			return
		}
		if npc.Dead {
			writeError(w, h.logger, http.StatusConflict, "Cannot converse with a destroyed NPC")
			return
		}
		chronicle.ConversationMode = vtm.ModeNPC
		chronicle.ActiveNPCID = npc.ID
		chronicle.TrackNPC(npc.ID)
	default:
		writeError(w, h.logger, http.StatusBadRequest, "mode must be narrator or npc")
		return
	}

	if err := h.store.SaveChronicle(r.Context(), chronicle); err != nil {
		h.logger.Error("Failed to save chronicle", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to save chronicle")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, chronicle)
}
