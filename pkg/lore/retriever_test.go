package lore

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rodrgost/cronicas-carmesim/pkg/chat"
	"github.com/rodrgost/cronicas-carmesim/pkg/vtm"
)

type stubLLM struct {
	reply    string
	err      error
	lastUser string
}

func (s *stubLLM) Chat(_ context.Context, messages []chat.ChatMessage) (string, error) {
	for _, m := range messages {
		if m.Role == chat.ChatRoleUser {
			s.lastUser = m.Content
		}
	}
	return s.reply, s.err
}

type stubStore struct {
	fragments []*vtm.LoreFragment
	listErr   error
	getErr    error
}

func (s *stubStore) ListLoreFragments(_ context.Context, _ string) ([]*vtm.LoreFragment, error) {
	return s.fragments, s.listErr
}

func (s *stubStore) GetLoreFragment(_ context.Context, id uuid.UUID) (*vtm.LoreFragment, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	for _, f := range s.fragments {
		if f.ID == id {
			return f, nil
		}
	}
	return nil, fmt.Errorf("fragment not found: %s", id)
}

func testFragment(title, content string, tags ...string) *vtm.LoreFragment {
	return &vtm.LoreFragment{
		ID:      uuid.New(),
		WorldID: "sao-paulo-by-night",
		Title:   title,
		Tags:    tags,
		Content: content,
	}
}

func newTestRetriever(llm LLM, store FragmentStore) *Retriever {
	return NewRetriever(llm, store, slog.New(slog.NewTextHandler(&strings.Builder{}, nil)))
}

func TestRetrieve_SelectsAndJoins(t *testing.T) {
	prince := testFragment("The Prince", "The Prince holds court downtown.")
	anarchs := testFragment("Anarch Barrens", "The Anarchs hold the east side.")
	store := &stubStore{fragments: []*vtm.LoreFragment{prince, anarchs}}
	llm := &stubLLM{reply: fmt.Sprintf(`{"relevantIds": ["%s"]}`, prince.ID)}

	got := newTestRetriever(llm, store).Retrieve(context.Background(), "sao-paulo-by-night", "I petition the Prince", "en")
	assert.Contains(t, got, "## The Prince")
	assert.Contains(t, got, "holds court downtown")
	assert.NotContains(t, got, "Anarch")
	assert.Contains(t, llm.lastUser, prince.ID.String())
}

func TestRetrieve_EmptyIndex(t *testing.T) {
	llm := &stubLLM{reply: `{"relevantIds": []}`}
	got := newTestRetriever(llm, &stubStore{}).Retrieve(context.Background(), "w", "act", "en")
	assert.Empty(t, got)
	assert.Empty(t, llm.lastUser, "selector must not be called for an empty index")
}

func TestRetrieve_SelectorErrorDegrades(t *testing.T) {
	store := &stubStore{fragments: []*vtm.LoreFragment{testFragment("A", "x")}}
	llm := &stubLLM{err: fmt.Errorf("provider down")}
	got := newTestRetriever(llm, store).Retrieve(context.Background(), "w", "act", "en")
	assert.Empty(t, got)
}

func TestRetrieve_ListErrorDegrades(t *testing.T) {
	store := &stubStore{listErr: fmt.Errorf("storage down")}
	got := newTestRetriever(&stubLLM{}, store).Retrieve(context.Background(), "w", "act", "en")
	assert.Empty(t, got)
}

func TestRetrieve_NothingRelevant(t *testing.T) {
	store := &stubStore{fragments: []*vtm.LoreFragment{testFragment("A", "x")}}
	llm := &stubLLM{reply: `{"relevantIds": []}`}
	got := newTestRetriever(llm, store).Retrieve(context.Background(), "w", "act", "en")
	assert.Empty(t, got)
}

func TestRetrieve_FencedReplyAndInvalidIDs(t *testing.T) {
	frag := testFragment("Elysium", "Neutral ground.")
	store := &stubStore{fragments: []*vtm.LoreFragment{frag}}
	llm := &stubLLM{reply: "```json\n" + fmt.Sprintf(`{"relevantIds": ["not-a-uuid", "%s", "%s"]}`, uuid.New(), frag.ID) + "\n```"}

	got := newTestRetriever(llm, store).Retrieve(context.Background(), "w", "act", "en")
	assert.Contains(t, got, "Elysium")
}

func TestRetrieve_Truncation(t *testing.T) {
	long := testFragment("Chronicle of the City", strings.Repeat("night ", 1000))
	store := &stubStore{fragments: []*vtm.LoreFragment{long}}
	llm := &stubLLM{reply: fmt.Sprintf(`{"relevantIds": ["%s"]}`, long.ID)}

	got := newTestRetriever(llm, store).Retrieve(context.Background(), "w", "act", "en")
	assert.LessOrEqual(t, len(got), MaxLoreChars)
	assert.True(t, strings.HasSuffix(got, truncationMarker))
}

func TestPrefilter(t *testing.T) {
	var index []*vtm.LoreFragment
	match := testFragment("The Sheriff", "enforcer", "sheriff", "camarilla")
	index = append(index, match)
	for i := 0; i < 60; i++ {
		index = append(index, testFragment(fmt.Sprintf("Fragment %d", i), "filler"))
	}

	kept := prefilter(index, "I ask the Sheriff about the murders", "en")
	require.Len(t, kept, 1)
	assert.Equal(t, "The Sheriff", kept[0].Title)
}

func TestActionKeywords_DropsStopwords(t *testing.T) {
	kw := actionKeywords("I go to the old cathedral with him", "en")
	assert.True(t, kw["cathedral"])
	assert.False(t, kw["the"])
	assert.False(t, kw["to"])
}
