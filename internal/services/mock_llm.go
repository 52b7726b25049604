package services

import (
	"context"
	"strings"
	"sync"

	"github.com/rodrgost/cronicas-carmesim/pkg/chat"
	"github.com/rodrgost/cronicas-carmesim/pkg/narrator"
)

// MockLLMAPI is a mock implementation of LLMService for testing
type MockLLMAPI struct {
	ChatFunc func(ctx context.Context, messages []chat.ChatMessage) (string, error)

	// Track calls for testing
	ChatCalls []ChatCall

	mu sync.Mutex // protects all fields above
}

type ChatCall struct {
	Messages []chat.ChatMessage
}

// NewMockLLMAPI creates a new mock LLM service
func NewMockLLMAPI() *MockLLMAPI {
	return &MockLLMAPI{
		ChatCalls: make([]ChatCall, 0),
	}
}

func (m *MockLLMAPI) Name() string {
	return "mock"
}

// Chat mocks completion generation. Without a ChatFunc it answers
// selector calls with an empty relevance list and everything else
// with a minimal valid narrator turn.
func (m *MockLLMAPI) Chat(ctx context.Context, messages []chat.ChatMessage) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ChatCalls = append(m.ChatCalls, ChatCall{Messages: messages})

	if m.ChatFunc != nil {
		return m.ChatFunc(ctx, messages)
	}

	if len(messages) > 0 && messages[0].Role == chat.ChatRoleSystem {
		selectorPrefix := narrator.SelectorSystemPrompt
		if len(selectorPrefix) > 50 {
			selectorPrefix = selectorPrefix[:50]
		}
		if strings.HasPrefix(messages[0].Content, selectorPrefix) {
			return `{"relevantIds": []}`, nil
		}
	}

	return `{"storyEvent": "The night is quiet.", "outcomes": ["Wait", "Move on"]}`, nil
}

// SetChatError sets up the mock to return an error on Chat
func (m *MockLLMAPI) SetChatError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ChatFunc = func(ctx context.Context, messages []chat.ChatMessage) (string, error) {
		return "", err
	}
}

// SetChatResponse sets up the mock to return a fixed completion
func (m *MockLLMAPI) SetChatResponse(reply string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ChatFunc = func(ctx context.Context, messages []chat.ChatMessage) (string, error) {
		return reply, nil
	}
}

// Reset clears all call tracking
func (m *MockLLMAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ChatFunc = nil
	m.ChatCalls = make([]ChatCall, 0)
}

// GetChatCalls returns a copy of the call tracking data in a thread-safe way
func (m *MockLLMAPI) GetChatCalls() []ChatCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	calls := make([]ChatCall, len(m.ChatCalls))
	copy(calls, m.ChatCalls)
	return calls
}
