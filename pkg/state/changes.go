package state

import (
	"github.com/google/uuid"

	"github.com/rodrgost/cronicas-carmesim/pkg/vtm"
)

// StatChange records one gauge moving, for UI display.
type StatChange struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Changes is the reconciler's summary of everything a turn applied.
type Changes struct {
	Stats             map[string]StatChange `json:"stats,omitempty"`
	ItemsAdded        []string              `json:"items_added,omitempty"`
	ItemsRemoved      []string              `json:"items_removed,omitempty"`
	NPCsCreated       []string              `json:"npcs_created,omitempty"`
	NPCStatusChanges  []string              `json:"npc_status_changes,omitempty"`
	DaysPassed        int                   `json:"days_passed,omitempty"`
	ChallengeIssued   bool                  `json:"challenge_issued,omitempty"`
	WorldEventCreated string                `json:"world_event_created,omitempty"`
}

// IsEmpty reports whether the turn changed nothing.
func (c *Changes) IsEmpty() bool {
	return len(c.Stats) == 0 &&
		len(c.ItemsAdded) == 0 &&
		len(c.ItemsRemoved) == 0 &&
		len(c.NPCsCreated) == 0 &&
		len(c.NPCStatusChanges) == 0 &&
		c.DaysPassed == 0 &&
		!c.ChallengeIssued &&
		c.WorldEventCreated == ""
}

// PortraitRequest asks the image pipeline for an NPC portrait. The
// reconciler emits exactly one per generateImageForNPC directive.
type PortraitRequest struct {
	NPCID       uuid.UUID `json:"npc_id"`
	Name        string    `json:"name"`
	Clan        string    `json:"clan,omitempty"`
	Appearance  string    `json:"appearance,omitempty"`
	ChronicleID uuid.UUID `json:"chronicle_id"`
}

// Result carries the staged persistence writes for a reconciled turn.
// Writes are issued independently by the caller; there is no
// transaction tying them together.
type Result struct {
	Changes Changes

	// Dirty entities to update. Nil means untouched.
	Character *vtm.Character
	Chronicle *vtm.Chronicle

	NewNPCs     []*vtm.NPC
	UpdatedNPCs []*vtm.NPC

	CreatedItems   []*vtm.Item
	UpdatedItems   []*vtm.Item
	DeletedItemIDs []uuid.UUID

	NewWorldEvent *vtm.WorldEvent

	PortraitRequests []PortraitRequest
}

func (r *Result) markNPCUpdated(npc *vtm.NPC) {
	for _, existing := range r.UpdatedNPCs {
		if existing.ID == npc.ID {
			return
		}
	}
	// NPCs created this turn are persisted once as creates.
	for _, created := range r.NewNPCs {
		if created.ID == npc.ID {
			return
		}
	}
	r.UpdatedNPCs = append(r.UpdatedNPCs, npc)
}

func (r *Result) markItemUpdated(item *vtm.Item) {
	for _, existing := range r.UpdatedItems {
		if existing.ID == item.ID {
			return
		}
	}
	for _, created := range r.CreatedItems {
		if created.ID == item.ID {
			return
		}
	}
	r.UpdatedItems = append(r.UpdatedItems, item)
}
