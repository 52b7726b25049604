package narrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_DirectJSON(t *testing.T) {
	raw := `{"storyEvent": "The Prince's herald finds you at the Rack.", "outcomes": ["Hear him out", "Slip away"]}`
	r := Parse(raw)
	require.NotNil(t, r)
	assert.False(t, r.Fallback)
	assert.Equal(t, "The Prince's herald finds you at the Rack.", r.StoryEvent)
	assert.Equal(t, []string{"Hear him out", "Slip away"}, r.Outcomes)
}

func TestParse_FencedBlock(t *testing.T) {
	raw := "Here is the turn:\n```json\n{\"storyEvent\": \"Rain hammers the chapel roof.\", \"statUpdates\": {\"hunger\": 1}}\n```\nLet me know if you need more."
	r := Parse(raw)
	assert.False(t, r.Fallback)
	assert.Equal(t, "Rain hammers the chapel roof.", r.StoryEvent)
	assert.Equal(t, 1, r.StatUpdates["hunger"])
}

func TestParse_FencedBlockWithoutLanguageTag(t *testing.T) {
	raw := "```\n{\"npcDialogue\": \"You should not have come here.\"}\n```"
	r := Parse(raw)
	assert.False(t, r.Fallback)
	assert.Equal(t, "You should not have come here.", r.NPCDialogue)
}

func TestParse_BraceSpanInsideProse(t *testing.T) {
	raw := `The narrator says: {"storyEvent": "The ghoul bows and retreats.", "timePassage": 1} and that is all.`
	r := Parse(raw)
	assert.False(t, r.Fallback)
	assert.Equal(t, "The ghoul bows and retreats.", r.StoryEvent)
	assert.Equal(t, 1, r.TimePassage)
}

func TestParse_FallbackWrapsRawText(t *testing.T) {
	raw := "The night swallows your answer, and the elder merely smiles."
	r := Parse(raw)
	assert.True(t, r.Fallback)
	assert.Equal(t, raw, r.StoryEvent)
	assert.Empty(t, r.StatUpdates)
	assert.Empty(t, r.ItemUpdates)
}

func TestParse_MalformedJSONDegradesGracefully(t *testing.T) {
	raw := `{"storyEvent": "Truncated mid-` // unterminated
	r := Parse(raw)
	require.NotNil(t, r)
	assert.True(t, r.Fallback)
	assert.Equal(t, raw, r.StoryEvent)
}

func TestParse_EmptyObjectFallsThrough(t *testing.T) {
	r := Parse("{}")
	assert.True(t, r.Fallback)
}

func TestParse_StatUpdatesTolerateFloats(t *testing.T) {
	raw := `{"storyEvent": "You feed in haste.", "statUpdates": {"hunger": -2.0, "willpower": "1"}}`
	r := Parse(raw)
	assert.False(t, r.Fallback)
	assert.Equal(t, -2, r.StatUpdates["hunger"])
	assert.Equal(t, 1, r.StatUpdates["willpower"])
}

func TestParse_FullSchema(t *testing.T) {
	raw := "```json\n" + `{
		"storyEvent": "A gaunt figure peels away from the shadows.",
		"outcomes": ["Greet him", "Back away", "Bare your fangs"],
		"statUpdates": {"willpower": -1},
		"diceRollChallenge": {"attribute": "wits", "skill": "awareness", "difficulty": 4, "description": "read his intent"},
		"newNPCs": [{"name": "Marcus", "clan": "Nosferatu", "role": "information broker", "relationship": "neutral", "trustLevel": 0, "currentMood": "wary"}],
		"generateImageForNPC": "Marcus",
		"itemUpdates": [{"action": "add", "name": "Burner phone", "type": "tool", "quantity": 1}],
		"npcStatusChanges": [{"name": "Velvet", "change": "mood", "value": "irritated"}],
		"activeNPC": "Marcus",
		"worldEvent": {"type": "masquerade_breach", "severity": "major", "title": "Camera footage", "choices": ["Destroy the server", "Bribe the guard"]}
	}` + "\n```"

	r := Parse(raw)
	require.False(t, r.Fallback)
	require.Len(t, r.NewNPCs, 1)
	assert.Equal(t, "Marcus", r.NewNPCs[0].Name)
	assert.Equal(t, "Nosferatu", r.NewNPCs[0].Clan)
	assert.Equal(t, "Marcus", r.GenerateImageForNPC)
	require.NotNil(t, r.DiceRollChallenge)
	assert.Equal(t, 4, r.DiceRollChallenge.Difficulty)
	require.NotNil(t, r.WorldEvent)
	assert.Equal(t, "masquerade_breach", r.WorldEvent.Type)
	assert.Len(t, r.WorldEvent.Choices, 2)
}

func TestNormalize_OutcomeFallback(t *testing.T) {
	r := &Response{StoryEvent: "ok", Outcomes: []string{"only one"}}
	Normalize(r, "en")
	assert.Equal(t, FallbackOutcomes("en"), r.Outcomes)

	r = &Response{StoryEvent: "ok", Outcomes: []string{"  ", ""}}
	Normalize(r, "pt-BR")
	assert.Equal(t, FallbackOutcomes("pt-BR"), r.Outcomes)
}

func TestNormalize_OutcomeCap(t *testing.T) {
	r := &Response{StoryEvent: "ok", Outcomes: []string{"a", "b", "c", "d", "e", "f"}}
	Normalize(r, "en")
	assert.Len(t, r.Outcomes, 4)
}

func TestNormalize_AbsoluteWinsTieBreak(t *testing.T) {
	r := &Response{
		StoryEvent:  "ok",
		Outcomes:    []string{"a", "b"},
		StatUpdates: StatUpdates{"hunger": 1, "set_hunger": 4, "health": -2},
	}
	Normalize(r, "en")
	_, hasDelta := r.StatUpdates["hunger"]
	assert.False(t, hasDelta, "delta form should be dropped when set_ form is present")
	assert.Equal(t, 4, r.StatUpdates["set_hunger"])
	assert.Equal(t, -2, r.StatUpdates["health"])
}

func TestNormalize_PortraitCoOccurrence(t *testing.T) {
	r := &Response{
		StoryEvent: "ok",
		Outcomes:   []string{"a", "b"},
		NewNPCs:    []NewNPC{{Name: "Velvet", Clan: "Toreador"}},
	}
	Normalize(r, "en")
	assert.Equal(t, "Velvet", r.GenerateImageForNPC)
}

func TestNormalize_DifficultyFloor(t *testing.T) {
	r := &Response{
		StoryEvent:        "ok",
		Outcomes:          []string{"a", "b"},
		DiceRollChallenge: &DiceRollChallenge{Attribute: "wits", Difficulty: 0},
	}
	Normalize(r, "en")
	assert.Equal(t, 1, r.DiceRollChallenge.Difficulty)
}
