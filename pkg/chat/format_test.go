package chat

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestFormatWithCharacterName(t *testing.T) {
	tests := []struct {
		name     string
		message  string
		charName string
		expected string
	}{
		{
			name:     "adds character name prefix to plain message",
			message:  "I slip into the shadows of the alley.",
			charName: "Lucien",
			expected: "Lucien: I slip into the shadows of the alley.",
		},
		{
			name:     "preserves existing speaker prefix",
			message:  "Narrador: The Elysium falls silent.",
			charName: "Lucien",
			expected: "Narrador: The Elysium falls silent.",
		},
		{
			name:     "preserves character's own name prefix",
			message:  "Lucien: I feed carefully.",
			charName: "Lucien",
			expected: "Lucien: I feed carefully.",
		},
		{
			name:     "empty character name passes message through",
			message:  "I wait.",
			charName: "",
			expected: "I wait.",
		},
		{
			name:     "colon deep in the message is not a speaker prefix",
			message:  "I whisper the pass phrase I was given long ago in Lisbon: blood and ash.",
			charName: "Beatriz",
			expected: "Beatriz: I whisper the pass phrase I was given long ago in Lisbon: blood and ash.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatWithCharacterName(tt.message, tt.charName))
		})
	}
}

func TestTurnRequest_Validate(t *testing.T) {
	req := &TurnRequest{}
	assert.Error(t, req.Validate())

	req.ChronicleID = uuid.New()
	assert.Error(t, req.Validate())

	req.Action = "   "
	assert.Error(t, req.Validate())

	req.Action = "I enter the Rack."
	assert.NoError(t, req.Validate())
}
