package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/rodrgost/cronicas-carmesim/internal/storage"
	"github.com/rodrgost/cronicas-carmesim/pkg/vtm"
)

// CharacterHandler serves character CRUD.
// Routes:
// POST /v1/characters          - Create character
// GET /v1/characters           - List caller's characters
// GET /v1/characters/{id}      - Read character
// DELETE /v1/characters/{id}   - Delete character
type CharacterHandler struct {
	store  storage.Storage
	logger *slog.Logger
}

func NewCharacterHandler(store storage.Storage, logger *slog.Logger) *CharacterHandler {
	return &CharacterHandler{store: store, logger: logger}
}

// CreateCharacterRequest defines the request body for creating a character.
type CreateCharacterRequest struct {
	Name       string         `json:"name"`
	Clan       string         `json:"clan"`
	Concept    string         `json:"concept,omitempty"`
	Attributes vtm.Attributes `json:"attributes"`
	Skills     map[string]int `json:"skills,omitempty"`
}

func (req *CreateCharacterRequest) Validate() error {
	if strings.TrimSpace(req.Name) == "" {
		return fmt.Errorf("name is required")
	}

	attrs := []struct {
		name  string
		value int
	}{
		{"strength", req.Attributes.Strength},
		{"dexterity", req.Attributes.Dexterity},
		{"stamina", req.Attributes.Stamina},
		{"charisma", req.Attributes.Charisma},
		{"manipulation", req.Attributes.Manipulation},
		{"composure", req.Attributes.Composure},
		{"intelligence", req.Attributes.Intelligence},
		{"wits", req.Attributes.Wits},
		{"resolve", req.Attributes.Resolve},
	}
	for _, a := range attrs {
		if a.value < 1 || a.value > 5 {
			return fmt.Errorf("attribute %s must be between 1 and 5", a.name)
		}
	}

	for name, rating := range req.Skills {
		if rating < 0 || rating > 5 {
			return fmt.Errorf("skill %s must be between 0 and 5", name)
		}
	}
	return nil
}

func (h *CharacterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/characters"), "/")

	var characterID uuid.UUID
	if path != "" {
		var err error
		characterID, err = uuid.Parse(path)
		if err != nil {
			h.logger.Warn("Invalid character ID", "id", path, "error", err)
			writeError(w, h.logger, http.StatusBadRequest, "Invalid character ID format")
			return
		}
	}

	switch r.Method {
	case http.MethodPost:
		if characterID != uuid.Nil {
			writeError(w, h.logger, http.StatusBadRequest, "POST does not take a character ID")
			return
		}
		h.handleCreate(w, r)
	case http.MethodGet:
		if characterID == uuid.Nil {
			h.handleList(w, r)
			return
		}
		h.handleRead(w, r, characterID)
	case http.MethodDelete:
		if characterID == uuid.Nil {
			writeError(w, h.logger, http.StatusBadRequest, "Character ID is required for DELETE requests")
			return
		}
		h.handleDelete(w, r, characterID)
	default:
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: POST, GET, DELETE")
	}
}

func (h *CharacterHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateCharacterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid JSON in request body", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	c := vtm.NewCharacter(userID(r), req.Name, req.Clan, req.Attributes)
	c.Concept = req.Concept
	for name, rating := range req.Skills {
		c.Skills[strings.ToLower(name)] = rating
	}

	if err := h.store.SaveCharacter(r.Context(), c); err != nil {
		h.logger.Error("Failed to save character", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to save character")
		return
	}

	h.logger.Info("Character created", "character_id", c.ID, "name", c.Name, "clan", c.Clan)
	writeJSON(w, h.logger, http.StatusCreated, c)
}

func (h *CharacterHandler) handleList(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		writeError(w, h.logger, http.StatusBadRequest, "X-User-ID header is required to list characters")
		return
	}

	characters, err := h.store.ListCharacters(r.Context(), uid)
	if err != nil {
		h.logger.Error("Failed to list characters", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to list characters")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, characters)
}

func (h *CharacterHandler) handleRead(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	c, err := h.store.GetCharacter(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, h.logger, http.StatusNotFound, "Character not found")
			return
		}
		h.logger.Error("Failed to load character", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load character")
		return
	}
	if uid := userID(r); uid != "" && c.UserID != "" && c.UserID != uid {
		writeError(w, h.logger, http.StatusForbidden, "Character belongs to another user")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, c)
}

func (h *CharacterHandler) handleDelete(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	c, err := h.store.GetCharacter(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, h.logger, http.StatusNotFound, "Character not found")
			return
		}
		h.logger.Error("Failed to load character", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load character")
		return
	}
	if uid := userID(r); uid != "" && c.UserID != "" && c.UserID != uid {
		writeError(w, h.logger, http.StatusForbidden, "Character belongs to another user")
		return
	}

	if err := h.store.DeleteCharacter(r.Context(), id); err != nil {
		h.logger.Error("Failed to delete character", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to delete character")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
