package prompts

import (
	"encoding/json"
	"fmt"

	"github.com/rodrgost/cronicas-carmesim/pkg/chat"
	"github.com/rodrgost/cronicas-carmesim/pkg/narrator"
	"github.com/rodrgost/cronicas-carmesim/pkg/state"
	"github.com/rodrgost/cronicas-carmesim/pkg/vtm"
)

// DefaultHistoryLimit is how many stored turns ride along with each
// request. Older turns are dropped from the window, not from storage.
const DefaultHistoryLimit = 20

const statePreamble = "Current game state (authoritative, do not contradict it):\n\n%s"

const lorePreamble = "Relevant world lore for this scene:\n\n%s"

// Builder assembles the ordered message list for a narrator call:
// system prompt, state payload, lore, windowed history, player action.
type Builder struct {
	snap         *state.Snapshot
	lore         string
	action       string
	language     string
	historyLimit int
}

func NewBuilder() *Builder {
	return &Builder{historyLimit: DefaultHistoryLimit}
}

func (b *Builder) WithSnapshot(snap *state.Snapshot) *Builder {
	b.snap = snap
	return b
}

func (b *Builder) WithLore(lore string) *Builder {
	b.lore = lore
	return b
}

func (b *Builder) WithUserAction(action, language string) *Builder {
	b.action = action
	b.language = language
	return b
}

func (b *Builder) WithHistoryLimit(n int) *Builder {
	if n >= 0 {
		b.historyLimit = n
	}
	return b
}

// Build produces the message list. The system prompt is returned as
// the first message with the system role; providers that take the
// system prompt out of band can peel it off.
func (b *Builder) Build() ([]chat.ChatMessage, error) {
	if b.snap == nil || b.snap.Character == nil || b.snap.Chronicle == nil {
		return nil, fmt.Errorf("prompt builder requires character and chronicle")
	}
	if b.action == "" {
		return nil, fmt.Errorf("prompt builder requires a player action")
	}

	chr := b.snap.Chronicle
	ps := ToPromptState(b.snap, b.language)
	ps.Lore = "" // lore travels as its own message
	payload, err := json.Marshal(ps)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal prompt state: %w", err)
	}

	var activeNPC *vtm.NPC
	if chr.ConversationMode == vtm.ModeNPC {
		activeNPC = findNPCByID(b.snap.NPCs, chr)
	}
	system := narrator.BuildSystemPrompt(chr.NarrativeStyle, activeNPC)

	messages := []chat.ChatMessage{
		{Role: chat.ChatRoleSystem, Content: system},
		{Role: chat.ChatRoleSystem, Content: fmt.Sprintf(statePreamble, payload)},
	}
	if b.lore != "" {
		messages = append(messages, chat.ChatMessage{
			Role:    chat.ChatRoleSystem,
			Content: fmt.Sprintf(lorePreamble, b.lore),
		})
	}

	history := chr.ChatHistory
	if b.historyLimit > 0 && len(history) > b.historyLimit {
		history = history[len(history)-b.historyLimit:]
	}
	for _, h := range history {
		messages = append(messages, chat.ChatMessage{Role: h.Role, Content: h.Content})
	}

	action := chat.FormatWithCharacterName(b.action, b.snap.Character.Name)
	messages = append(messages, chat.ChatMessage{Role: chat.ChatRoleUser, Content: action})
	return messages, nil
}
