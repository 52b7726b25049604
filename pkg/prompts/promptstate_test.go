package prompts

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rodrgost/cronicas-carmesim/pkg/state"
	"github.com/rodrgost/cronicas-carmesim/pkg/vtm"
)

func promptSnapshot() *state.Snapshot {
	c := vtm.NewCharacter("user-1", "Lucien", "Ventrue", vtm.Attributes{
		Strength: 2, Dexterity: 3, Stamina: 4,
		Charisma: 3, Manipulation: 2, Composure: 3,
		Intelligence: 2, Wits: 3, Resolve: 2,
	})
	chr := vtm.NewChronicle(c.ID, "user-1", "sao-paulo-by-night")
	return &state.Snapshot{Character: c, Chronicle: chr}
}

func addNPC(snap *state.Snapshot, name string, dead bool) *vtm.NPC {
	npc := &vtm.NPC{
		ID:           uuid.New(),
		Name:         name,
		Clan:         "Nosferatu",
		Role:         "informant",
		Relationship: vtm.RelationshipNeutral,
		TrustLevel:   3,
		Dead:         dead,
		Personality:  "paranoid",
		Motivations:  "survival",
	}
	snap.NPCs = append(snap.NPCs, npc)
	snap.Chronicle.TrackNPC(npc.ID)
	return npc
}

func TestToPromptState_Character(t *testing.T) {
	snap := promptSnapshot()
	snap.Character.Health = 4
	snap.Items = append(snap.Items, &vtm.Item{Name: "Pistol", Type: vtm.ItemTypeWeapon, Quantity: 2})

	ps := ToPromptState(snap, "pt-BR")
	require.NotNil(t, ps)
	assert.Equal(t, "Lucien", ps.Character.Name)
	assert.Equal(t, 4, ps.Character.Health)
	assert.Equal(t, "pt-BR", ps.PlayerLanguage)
	require.Len(t, ps.Inventory, 1)
	assert.Equal(t, 2, ps.Inventory[0].Quantity)
	assert.Nil(t, ps.ActiveNPC)
}

func TestToPromptState_NilSnapshot(t *testing.T) {
	assert.Nil(t, ToPromptState(nil, "en"))
	assert.Nil(t, ToPromptState(&state.Snapshot{}, "en"))
}

func TestToPromptState_NPCCapMostRecentFirst(t *testing.T) {
	snap := promptSnapshot()
	for i := 0; i < MaxPromptNPCs+5; i++ {
		addNPC(snap, fmt.Sprintf("NPC-%02d", i), false)
	}

	ps := ToPromptState(snap, "en")
	require.Len(t, ps.NPCs, MaxPromptNPCs)
	// Most recently tracked NPC leads the roster.
	assert.Equal(t, "NPC-14", ps.NPCs[0].Name)
	assert.Equal(t, "NPC-05", ps.NPCs[MaxPromptNPCs-1].Name)
}

func TestToPromptState_DeadNPCFlagged(t *testing.T) {
	snap := promptSnapshot()
	addNPC(snap, "Marcus", true)

	ps := ToPromptState(snap, "en")
	require.Len(t, ps.NPCs, 1)
	assert.True(t, ps.NPCs[0].Deceased)
}

func TestToPromptState_NPCMode(t *testing.T) {
	snap := promptSnapshot()
	addNPC(snap, "Rato", false)
	target := addNPC(snap, "Marcus", false)
	snap.Chronicle.ConversationMode = vtm.ModeNPC
	snap.Chronicle.ActiveNPCID = target.ID

	ps := ToPromptState(snap, "en")
	require.NotNil(t, ps.ActiveNPC)
	assert.Equal(t, "Marcus", ps.ActiveNPC.Name)
	assert.Equal(t, "paranoid", ps.ActiveNPC.Personality)
	// Roster stays empty: exactly one NPC in NPC conversation mode.
	assert.Empty(t, ps.NPCs)
}
