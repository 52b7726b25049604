package state

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rodrgost/cronicas-carmesim/pkg/narrator"
	"github.com/rodrgost/cronicas-carmesim/pkg/vtm"
)

func TestReconciler_NewNPCWithPortrait(t *testing.T) {
	snap := testSnapshot()
	res := apply(t, snap, &narrator.Response{
		StoryEvent: "A gaunt figure introduces himself as Marcus.",
		NewNPCs: []narrator.NewNPC{{
			Name: "Marcus", Clan: "Nosferatu", Role: "information broker",
			Relationship: "neutral", CurrentMood: "wary",
		}},
		GenerateImageForNPC: "Marcus",
	})

	require.Len(t, res.NewNPCs, 1)
	assert.Equal(t, "Marcus", res.NewNPCs[0].Name)
	assert.Equal(t, "Nosferatu", res.NewNPCs[0].Clan)
	require.Len(t, res.PortraitRequests, 1)
	assert.Equal(t, res.NewNPCs[0].ID, res.PortraitRequests[0].NPCID)
	assert.Contains(t, snap.Chronicle.ActiveNPCs, res.NewNPCs[0].ID)
}

func TestReconciler_NewNPCClanInference(t *testing.T) {
	snap := testSnapshot()
	res := apply(t, snap, &narrator.Response{
		StoryEvent: "x",
		NewNPCs: []narrator.NewNPC{{
			Name: "Irena",
			Role: "Tremere chantry archivist",
		}},
	})
	require.Len(t, res.NewNPCs, 1)
	assert.Equal(t, "Tremere", res.NewNPCs[0].Clan)
}

func TestReconciler_ReintroducedNPCNotDuplicated(t *testing.T) {
	snap := testSnapshot()
	existing := &vtm.NPC{ID: uuid.New(), ChronicleID: snap.Chronicle.ID, Name: "Velvet", Clan: "Toreador"}
	snap.NPCs = append(snap.NPCs, existing)

	res := apply(t, snap, &narrator.Response{
		StoryEvent: "Velvet returns to the stage.",
		NewNPCs:    []narrator.NewNPC{{Name: "velvet", Clan: "Toreador"}},
	})

	assert.Empty(t, res.NewNPCs)
	assert.Len(t, snap.NPCs, 1)
	assert.Contains(t, snap.Chronicle.ActiveNPCs, existing.ID)
}

func TestReconciler_StatusChangeResolvesThisTurnsNPCs(t *testing.T) {
	snap := testSnapshot()
	res := apply(t, snap, &narrator.Response{
		StoryEvent: "The broker sizes you up and relaxes a fraction.",
		NewNPCs:    []narrator.NewNPC{{Name: "Marcus", Clan: "Nosferatu"}},
		NPCStatusChanges: []narrator.NPCStatusChange{
			{Name: "Marcus", Change: "trust", TrustDelta: 2},
			{Name: "Marcus", Change: "mood", Value: "curious"},
		},
	})

	require.Len(t, res.NewNPCs, 1)
	marcus := res.NewNPCs[0]
	assert.Equal(t, 2, marcus.TrustLevel)
	assert.Equal(t, "curious", marcus.CurrentMood)
	// Created this turn: one create write, no extra update write.
	assert.Empty(t, res.UpdatedNPCs)
}

func TestReconciler_DeathMarksButNeverDeletes(t *testing.T) {
	snap := testSnapshot()
	victim := &vtm.NPC{ID: uuid.New(), ChronicleID: snap.Chronicle.ID, Name: "Anton", Clan: "Brujah"}
	snap.NPCs = append(snap.NPCs, victim)

	res := apply(t, snap, &narrator.Response{
		StoryEvent: "Anton's ashes scatter across the parking lot.",
		NPCStatusChanges: []narrator.NPCStatusChange{
			{Name: "Anton", Change: "death"},
		},
	})

	assert.True(t, victim.Dead)
	assert.Len(t, snap.NPCs, 1, "dead NPCs stay on the roster")
	require.Len(t, res.UpdatedNPCs, 1)
	assert.Contains(t, res.Changes.NPCStatusChanges[0], "final death")
}

func TestReconciler_StatusChangeUnknownNPCSkipped(t *testing.T) {
	snap := testSnapshot()
	res := apply(t, snap, &narrator.Response{
		StoryEvent: "x",
		NPCStatusChanges: []narrator.NPCStatusChange{
			{Name: "Nobody", Change: "mood", Value: "angry"},
		},
	})
	assert.Empty(t, res.UpdatedNPCs)
	assert.Empty(t, res.Changes.NPCStatusChanges)
}

func TestReconciler_InvalidRelationshipRejected(t *testing.T) {
	snap := testSnapshot()
	npc := &vtm.NPC{ID: uuid.New(), Name: "Velvet", Relationship: vtm.RelationshipNeutral}
	snap.NPCs = append(snap.NPCs, npc)

	apply(t, snap, &narrator.Response{
		StoryEvent: "x",
		NPCStatusChanges: []narrator.NPCStatusChange{
			{Name: "Velvet", Change: "relationship", Value: "obsessed"},
		},
	})
	assert.Equal(t, vtm.RelationshipNeutral, npc.Relationship)
}

func TestReconciler_OrphanPortraitSynthesizesNPC(t *testing.T) {
	snap := testSnapshot()
	res := apply(t, snap, &narrator.Response{
		StoryEvent:          "The sewer king, an old Nosferatu, studies you from the dark.",
		GenerateImageForNPC: "Rato",
		ActiveNPC:           "Rato",
	})

	require.Len(t, res.NewNPCs, 1, "missing newNPCs should synthesize a minimal record")
	assert.Equal(t, "Rato", res.NewNPCs[0].Name)
	assert.Equal(t, "Nosferatu", res.NewNPCs[0].Clan, "clan inferred from narration keywords")
	require.Len(t, res.PortraitRequests, 1)
}

func TestReconciler_UnknownPortraitSubjectFallsBackToActiveNPC(t *testing.T) {
	snap := testSnapshot()
	res := apply(t, snap, &narrator.Response{
		StoryEvent:          "A Toreador harpy glides across the gallery toward you.",
		GenerateImageForNPC: "Unknown",
		ActiveNPC:           "Helena",
	})

	require.Len(t, res.NewNPCs, 1)
	assert.Equal(t, "Helena", res.NewNPCs[0].Name)
	require.Len(t, res.PortraitRequests, 1)
	assert.Equal(t, res.NewNPCs[0].ID, res.PortraitRequests[0].NPCID)
}

func TestReconciler_NPCUpdateOnlyInNPCMode(t *testing.T) {
	snap := testSnapshot()
	npc := &vtm.NPC{ID: uuid.New(), Name: "Velvet", TrustLevel: 1, CurrentMood: "amused"}
	snap.NPCs = append(snap.NPCs, npc)

	upd := &narrator.Response{
		NPCDialogue: "\"You are bolder than I remembered.\"",
		NPCUpdate:   &narrator.NPCUpdate{CurrentMood: "intrigued", TrustDelta: 1},
	}

	// Narrator mode: ignored.
	apply(t, snap, upd)
	assert.Equal(t, "amused", npc.CurrentMood)
	assert.Equal(t, 1, npc.TrustLevel)

	// NPC mode with the active NPC set: applied.
	snap.Chronicle.ConversationMode = vtm.ModeNPC
	snap.Chronicle.ActiveNPCID = npc.ID
	apply(t, snap, upd)
	assert.Equal(t, "intrigued", npc.CurrentMood)
	assert.Equal(t, 2, npc.TrustLevel)
}
