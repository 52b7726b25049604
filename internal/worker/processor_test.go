package worker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rodrgost/cronicas-carmesim/internal/services"
	"github.com/rodrgost/cronicas-carmesim/internal/storage"
	"github.com/rodrgost/cronicas-carmesim/pkg/chat"
	"github.com/rodrgost/cronicas-carmesim/pkg/vtm"
)

func seedGame(t *testing.T, store *storage.MockStorage) (*vtm.Character, *vtm.Chronicle) {
	t.Helper()
	ctx := context.Background()

	c := vtm.NewCharacter("user-1", "Lucien", "Ventrue", vtm.Attributes{
		Strength: 2, Dexterity: 3, Stamina: 4,
		Charisma: 3, Manipulation: 2, Composure: 3,
		Intelligence: 2, Wits: 3, Resolve: 2,
	})
	chr := vtm.NewChronicle(c.ID, "user-1", "sao-paulo-by-night")

	require.NoError(t, store.SaveCharacter(ctx, c))
	require.NoError(t, store.SaveChronicle(ctx, chr))
	return c, chr
}

func newTestProcessor(llm services.LLMService) (*TurnProcessor, *storage.MockStorage) {
	store := storage.NewMockStorage()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewTurnProcessor(llm, store, nil, log), store
}

func TestProcessTurn_FullPipeline(t *testing.T) {
	llm := services.NewMockLLMAPI()
	llm.SetChatResponse(`{
		"storyEvent": "The ghoul's knife finds your ribs before you can react.",
		"outcomes": ["Fight back", "Flee into the alley"],
		"statUpdates": {"health": -2},
		"itemUpdates": [{"action": "add", "name": "Switchblade", "type": "weapon", "quantity": 1}]
	}`)

	p, store := newTestProcessor(llm)
	c, chr := seedGame(t, store)
	ctx := context.Background()

	resp, err := p.ProcessTurn(ctx, &chat.TurnRequest{
		ChronicleID: chr.ID,
		UserID:      "user-1",
		Action:      "I confront the ghoul.",
		Language:    "en",
	})
	require.NoError(t, err)
	assert.Contains(t, resp.Narration, "knife")
	assert.Len(t, resp.Outcomes, 2)
	require.NotNil(t, resp.Changes)
	assert.Contains(t, resp.Changes, "stats")

	saved, err := store.GetCharacter(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, saved.Health)

	items, err := store.ListItems(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Switchblade", items[0].Name)

	savedChr, err := store.GetChronicle(ctx, chr.ID)
	require.NoError(t, err)
	require.Len(t, savedChr.ChatHistory, 2)
	assert.Equal(t, chat.ChatRoleUser, savedChr.ChatHistory[0].Role)
	assert.Equal(t, "I confront the ghoul.", savedChr.ChatHistory[0].Content)
}

func TestProcessTurn_LLMFailureDegrades(t *testing.T) {
	llm := services.NewMockLLMAPI()
	llm.SetChatError(fmt.Errorf("provider down"))

	p, store := newTestProcessor(llm)
	c, chr := seedGame(t, store)
	ctx := context.Background()

	resp, err := p.ProcessTurn(ctx, &chat.TurnRequest{
		ChronicleID: chr.ID,
		Action:      "I feed.",
		Language:    "pt-BR",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Error)
	assert.Contains(t, resp.Narration, "noite")
	assert.Len(t, resp.Outcomes, 3)
	assert.Nil(t, resp.Changes)

	// No state was touched.
	saved, err := store.GetCharacter(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.Health, saved.MaxHealth)

	savedChr, err := store.GetChronicle(ctx, chr.ID)
	require.NoError(t, err)
	assert.Empty(t, savedChr.ChatHistory)
}

func TestProcessTurn_UnparseableReplyIsNarrationOnly(t *testing.T) {
	llm := services.NewMockLLMAPI()
	llm.SetChatResponse("The rain keeps falling over Consolação.")

	p, store := newTestProcessor(llm)
	c, chr := seedGame(t, store)
	ctx := context.Background()

	resp, err := p.ProcessTurn(ctx, &chat.TurnRequest{
		ChronicleID: chr.ID,
		Action:      "I wait.",
		Language:    "en",
	})
	require.NoError(t, err)
	assert.Contains(t, resp.Narration, "rain")
	assert.Nil(t, resp.Changes)

	saved, err := store.GetCharacter(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.Health, saved.MaxHealth)
}

func TestProcessTurn_UnknownChronicle(t *testing.T) {
	p, _ := newTestProcessor(services.NewMockLLMAPI())

	_, err := p.ProcessTurn(context.Background(), &chat.TurnRequest{
		ChronicleID: uuid.New(),
		Action:      "look",
	})
	assert.Error(t, err)
}

func TestProcessTurn_WrongUser(t *testing.T) {
	p, store := newTestProcessor(services.NewMockLLMAPI())
	_, chr := seedGame(t, store)

	_, err := p.ProcessTurn(context.Background(), &chat.TurnRequest{
		ChronicleID: chr.ID,
		UserID:      "intruder",
		Action:      "look",
	})
	assert.Error(t, err)
}

func TestProcessTurn_ValidatesRequest(t *testing.T) {
	p, _ := newTestProcessor(services.NewMockLLMAPI())

	_, err := p.ProcessTurn(context.Background(), &chat.TurnRequest{
		ChronicleID: uuid.New(),
		Action:      "   ",
	})
	assert.Error(t, err)
}
