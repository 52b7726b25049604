package narrator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFallbackOutcomes(t *testing.T) {
	tests := []struct {
		lang     string
		contains string
	}{
		{"en", "Observe"},
		{"en-US", "Observe"},
		{"pt-BR", "Observar"},
		{"pt", "Observar"},
		{"es", "Observar los"},
		{"es-MX", "Observar los"},
		{"", "Observe"},
		{"zz-unknown", "Observe"},
	}

	for _, tt := range tests {
		t.Run(tt.lang, func(t *testing.T) {
			outcomes := FallbackOutcomes(tt.lang)
			assert.GreaterOrEqual(t, len(outcomes), 2)
			assert.LessOrEqual(t, len(outcomes), 3)
			assert.True(t, strings.HasPrefix(outcomes[0], tt.contains),
				"outcomes[0] = %q, want prefix %q", outcomes[0], tt.contains)
		})
	}
}

func TestFallbackOutcomes_ReturnsCopy(t *testing.T) {
	a := FallbackOutcomes("en")
	a[0] = "mutated"
	b := FallbackOutcomes("en")
	assert.NotEqual(t, "mutated", b[0])
}

func TestBuildSystemPrompt(t *testing.T) {
	p := BuildSystemPrompt("theatrical", nil)
	assert.Contains(t, p, "SECOND PERSON")
	assert.Contains(t, p, "lavishly")
	assert.Contains(t, p, `"storyEvent"`)
	assert.NotContains(t, p, "Conversation mode")
}
