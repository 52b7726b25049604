package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/rodrgost/cronicas-carmesim/internal/services/events"
	"github.com/rodrgost/cronicas-carmesim/internal/services/queue"
	"github.com/rodrgost/cronicas-carmesim/internal/storage"
	"github.com/rodrgost/cronicas-carmesim/pkg/chat"
)

// TurnHandler accepts player actions. Side channel commands resolve
// synchronously; narrator turns are queued and processed by a worker,
// with progress delivered over the chronicle's event stream.
type TurnHandler struct {
	store       storage.Storage
	queue       *queue.TurnQueue
	broadcaster *events.Broadcaster
	commands    *CommandProcessor
	logger      *slog.Logger
}

func NewTurnHandler(store storage.Storage, q *queue.TurnQueue, broadcaster *events.Broadcaster, logger *slog.Logger) *TurnHandler {
	return &TurnHandler{
		store:       store,
		queue:       q,
		broadcaster: broadcaster,
		commands:    NewCommandProcessor(store, logger),
		logger:      logger,
	}
}

// QueuedTurnResponse acknowledges an enqueued narrator turn.
type QueuedTurnResponse struct {
	TurnID      string `json:"turn_id"`
	ChronicleID string `json:"chronicle_id"`
	Status      string `json:"status"`
	QueueDepth  int    `json:"queue_depth,omitempty"`
}

// CommandTurnResponse is the synchronous reply to a side channel command.
type CommandTurnResponse struct {
	Message string `json:"message"`
	Role    string `json:"role"`
}

func (h *TurnHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. POST submits a turn.")
		return
	}

	var req chat.TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	if uid := userID(r); uid != "" {
		req.UserID = uid
	}
	if err := req.Validate(); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	chronicle, err := h.store.GetChronicle(r.Context(), req.ChronicleID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, h.logger, http.StatusNotFound, "Chronicle not found")
			return
		}
		h.logger.Error("Failed to load chronicle", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load chronicle")
		return
	}
	if req.UserID != "" && chronicle.UserID != "" && chronicle.UserID != req.UserID {
		writeError(w, h.logger, http.StatusForbidden, "Chronicle belongs to another user")
		return
	}

	// Side channel commands skip the queue entirely.
	if strings.HasPrefix(strings.TrimSpace(req.Action), "/") {
		character, err := h.store.GetCharacter(r.Context(), chronicle.CharacterID)
		if err != nil {
			h.logger.Error("Failed to load character for command", "error", err)
			writeError(w, h.logger, http.StatusInternalServerError, "Failed to load character")
			return
		}
		result := h.commands.TryHandleCommand(r.Context(), chronicle, character, req.Action)
		if result.Handled {
			writeJSON(w, h.logger, http.StatusOK, CommandTurnResponse{
				Message: result.Message,
				Role:    result.Role,
			})
			return
		}
		// Unhandled prefix text falls through to the narrator.
	}

	job := queue.NewJob(&req)
	if err := h.queue.Enqueue(r.Context(), job); err != nil {
		h.logger.Error("Failed to enqueue turn", "error", err)
		writeError(w, h.logger, http.StatusServiceUnavailable, "Turn queue unavailable")
		return
	}

	if h.broadcaster != nil {
		if err := h.broadcaster.PublishTurnQueued(r.Context(), req.ChronicleID, job.ID); err != nil {
			h.logger.Warn("Failed to publish turn queued event", "error", err)
		}
	}

	depth, err := h.queue.Depth(r.Context())
	if err != nil {
		depth = 0
	}

	h.logger.Debug("Turn enqueued", "turn_id", job.ID, "chronicle_id", req.ChronicleID, "queue_depth", depth)
	writeJSON(w, h.logger, http.StatusAccepted, QueuedTurnResponse{
		TurnID:      job.ID,
		ChronicleID: req.ChronicleID.String(),
		Status:      "queued",
		QueueDepth:  depth,
	})
}
