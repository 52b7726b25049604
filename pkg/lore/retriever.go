// Package lore retrieves background fragments for a narrator turn.
// Retrieval is best effort: every failure degrades to "no lore" so a
// turn is never blocked on context.
package lore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/orsinium-labs/stopwords"

	"github.com/rodrgost/cronicas-carmesim/pkg/chat"
	"github.com/rodrgost/cronicas-carmesim/pkg/narrator"
	"github.com/rodrgost/cronicas-carmesim/pkg/vtm"
)

const (
	// MaxRelevant caps how many fragments the selector may pick.
	MaxRelevant = 5

	// MaxLoreChars bounds the joined lore block in the prompt.
	MaxLoreChars = 2000

	// prefilterThreshold is the index size above which the keyword
	// prefilter runs before the selector call.
	prefilterThreshold = 50

	fragmentDelimiter = "\n\n---\n\n"
	truncationMarker  = "\n[lore truncated]"
)

// LLM is the slice of the language model service retrieval needs.
type LLM interface {
	Chat(ctx context.Context, messages []chat.ChatMessage) (string, error)
}

// FragmentStore is the slice of storage retrieval needs.
type FragmentStore interface {
	ListLoreFragments(ctx context.Context, worldID string) ([]*vtm.LoreFragment, error)
	GetLoreFragment(ctx context.Context, id uuid.UUID) (*vtm.LoreFragment, error)
}

type Retriever struct {
	llm    LLM
	store  FragmentStore
	logger *slog.Logger
}

func NewRetriever(llm LLM, store FragmentStore, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{llm: llm, store: store, logger: logger}
}

// Retrieve returns the lore block for a player action, or "" when
// nothing is relevant or any step fails.
func (r *Retriever) Retrieve(ctx context.Context, worldID, action, language string) string {
	if r.llm == nil || r.store == nil {
		return ""
	}

	index, err := r.store.ListLoreFragments(ctx, worldID)
	if err != nil {
		r.logger.Warn("lore index listing failed", "world_id", worldID, "error", err)
		return ""
	}
	if len(index) == 0 {
		return ""
	}

	if len(index) > prefilterThreshold {
		index = prefilter(index, action, language)
		if len(index) == 0 {
			return ""
		}
	}

	ids, err := r.selectRelevant(ctx, index, action)
	if err != nil {
		r.logger.Warn("lore selector call failed", "world_id", worldID, "error", err)
		return ""
	}
	if len(ids) == 0 {
		return ""
	}

	var parts []string
	for _, id := range ids {
		frag, err := r.store.GetLoreFragment(ctx, id)
		if err != nil {
			r.logger.Warn("lore fragment load failed", "fragment_id", id, "error", err)
			continue
		}
		parts = append(parts, fmt.Sprintf("## %s\n%s", frag.Title, frag.Content))
	}
	return joinBudgeted(parts)
}

// selectorReply is the selector call's JSON contract.
type selectorReply struct {
	RelevantIDs []string `json:"relevantIds"`
}

func (r *Retriever) selectRelevant(ctx context.Context, index []*vtm.LoreFragment, action string) ([]uuid.UUID, error) {
	var sb strings.Builder
	sb.WriteString("Player action:\n")
	sb.WriteString(action)
	sb.WriteString("\n\nLore index:\n")
	for _, frag := range index {
		sb.WriteString(frag.ID.String())
		sb.WriteString(" | ")
		sb.WriteString(frag.Title)
		if frag.Category != "" {
			sb.WriteString(" | ")
			sb.WriteString(frag.Category)
		}
		if len(frag.Tags) > 0 {
			sb.WriteString(" | ")
			sb.WriteString(strings.Join(frag.Tags, ", "))
		}
		sb.WriteString("\n")
	}

	messages := []chat.ChatMessage{
		{Role: chat.ChatRoleSystem, Content: fmt.Sprintf(narrator.SelectorSystemPrompt, MaxRelevant)},
		{Role: chat.ChatRoleUser, Content: sb.String()},
	}
	raw, err := r.llm.Chat(ctx, messages)
	if err != nil {
		return nil, err
	}

	var reply selectorReply
	if err := json.Unmarshal([]byte(extractObject(raw)), &reply); err != nil {
		return nil, fmt.Errorf("unparseable selector reply: %w", err)
	}

	var ids []uuid.UUID
	for _, s := range reply.RelevantIDs {
		if len(ids) >= MaxRelevant {
			break
		}
		id, err := uuid.Parse(s)
		if err != nil {
			r.logger.Debug("selector returned invalid fragment id", "id", s)
			continue
		}
		if containsFragment(index, id) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// extractObject pulls the outermost JSON object out of a reply that
// may wrap it in prose or a code fence.
func extractObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return raw
	}
	return raw[start : end+1]
}

func containsFragment(index []*vtm.LoreFragment, id uuid.UUID) bool {
	for _, frag := range index {
		if frag.ID == id {
			return true
		}
	}
	return false
}

func joinBudgeted(parts []string) string {
	joined := strings.Join(parts, fragmentDelimiter)
	if len(joined) <= MaxLoreChars {
		return joined
	}
	cut := MaxLoreChars - len(truncationMarker)
	// Back off to a rune boundary.
	for cut > 0 && !isBoundary(joined[cut]) {
		cut--
	}
	return joined[:cut] + truncationMarker
}

func isBoundary(b byte) bool {
	return b < 0x80 || b >= 0xC0
}

// prefilter keeps fragments whose title, category, or tags share a
// keyword with the action. An empty keyword set keeps everything.
func prefilter(index []*vtm.LoreFragment, action, language string) []*vtm.LoreFragment {
	keywords := actionKeywords(action, language)
	if len(keywords) == 0 {
		return index
	}

	var kept []*vtm.LoreFragment
	for _, frag := range index {
		haystack := strings.ToLower(frag.Title + " " + frag.Category + " " + strings.Join(frag.Tags, " "))
		for kw := range keywords {
			if strings.Contains(haystack, kw) {
				kept = append(kept, frag)
				break
			}
		}
	}
	return kept
}

func actionKeywords(action, language string) map[string]bool {
	sw := stopwordsFor(language)
	keywords := make(map[string]bool)
	for _, word := range strings.FieldsFunc(strings.ToLower(action), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	}) {
		if len(word) < 3 {
			continue
		}
		if sw != nil && sw.Contains(word) {
			continue
		}
		keywords[word] = true
	}
	return keywords
}

func stopwordsFor(language string) *stopwords.Stopwords {
	switch {
	case strings.HasPrefix(language, "pt"):
		return stopwords.MustGet("pt")
	case strings.HasPrefix(language, "es"):
		return stopwords.MustGet("es")
	default:
		return stopwords.MustGet("en")
	}
}
