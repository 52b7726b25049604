package services

import (
	"context"
	"strings"

	"github.com/rodrgost/cronicas-carmesim/pkg/chat"
)

// LLMService defines the interface for interacting with an LLM provider
type LLMService interface {
	// Name identifies the provider for logging
	Name() string

	// Chat generates a completion for the given conversation
	Chat(ctx context.Context, messages []chat.ChatMessage) (string, error)
}

// splitChatMessages extracts and combines all system messages into a single
// system prompt and returns the remaining non-system messages. Providers
// that take the system prompt out of band use this.
func splitChatMessages(messages []chat.ChatMessage) (string, []chat.ChatMessage) {
	var systemParts []string
	var nonSystemMessages []chat.ChatMessage

	for _, msg := range messages {
		if msg.Role == chat.ChatRoleSystem {
			systemParts = append(systemParts, msg.Content)
		} else {
			nonSystemMessages = append(nonSystemMessages, msg)
		}
	}

	return strings.Join(systemParts, "\n\n"), nonSystemMessages
}
