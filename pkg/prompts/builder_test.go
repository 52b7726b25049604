package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rodrgost/cronicas-carmesim/pkg/chat"
	"github.com/rodrgost/cronicas-carmesim/pkg/vtm"
)

func TestBuilder_Build(t *testing.T) {
	snap := promptSnapshot()
	msgs, err := NewBuilder().
		WithSnapshot(snap).
		WithLore("The Prince of São Paulo holds court at the Edifício Martinelli.").
		WithUserAction("I enter the Elysium.", "pt-BR").
		Build()
	require.NoError(t, err)
	require.Len(t, msgs, 4)

	assert.Equal(t, chat.ChatRoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "Masquerade")
	assert.Contains(t, msgs[1].Content, `"name":"Lucien"`)
	assert.Contains(t, msgs[2].Content, "Edifício Martinelli")
	assert.Equal(t, chat.ChatRoleUser, msgs[3].Role)
	assert.Equal(t, "Lucien: I enter the Elysium.", msgs[3].Content)
}

func TestBuilder_NoLoreOmitsMessage(t *testing.T) {
	msgs, err := NewBuilder().
		WithSnapshot(promptSnapshot()).
		WithUserAction("look around", "en").
		Build()
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	for _, m := range msgs {
		assert.NotContains(t, m.Content, "world lore")
	}
}

func TestBuilder_HistoryWindow(t *testing.T) {
	snap := promptSnapshot()
	for i := 0; i < 30; i++ {
		snap.Chronicle.ChatHistory = append(snap.Chronicle.ChatHistory,
			vtm.HistoryEntry{Role: chat.ChatRoleUser, Content: "turn"},
			vtm.HistoryEntry{Role: chat.ChatRoleAssistant, Content: "reply"},
		)
	}

	msgs, err := NewBuilder().
		WithSnapshot(snap).
		WithUserAction("continue", "en").
		WithHistoryLimit(6).
		Build()
	require.NoError(t, err)

	var history int
	for _, m := range msgs[2 : len(msgs)-1] {
		if m.Content == "turn" || m.Content == "reply" {
			history++
		}
	}
	assert.Equal(t, 6, history)
}

func TestBuilder_NPCModeSystemPrompt(t *testing.T) {
	snap := promptSnapshot()
	npc := addNPC(snap, "Marcus", false)
	snap.Chronicle.ConversationMode = vtm.ModeNPC
	snap.Chronicle.ActiveNPCID = npc.ID

	msgs, err := NewBuilder().
		WithSnapshot(snap).
		WithUserAction("Who sired you?", "en").
		Build()
	require.NoError(t, err)
	assert.True(t, strings.Contains(msgs[0].Content, "Marcus"))
}

func TestBuilder_Validation(t *testing.T) {
	_, err := NewBuilder().WithUserAction("hi", "en").Build()
	assert.Error(t, err)

	_, err = NewBuilder().WithSnapshot(promptSnapshot()).Build()
	assert.Error(t, err)
}
