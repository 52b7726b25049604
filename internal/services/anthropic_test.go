package services

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rodrgost/cronicas-carmesim/pkg/chat"
)

func TestNewAnthropicService(t *testing.T) {
	apiKey := "test-api-key"
	modelName := "claude-sonnet-4-20250514"
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	service := NewAnthropicService(apiKey, modelName, 0, log)

	if service.apiKey != apiKey {
		t.Errorf("Expected API key %s, got %s", apiKey, service.apiKey)
	}

	if service.modelName != modelName {
		t.Errorf("Expected model name %s, got %s", modelName, service.modelName)
	}

	if service.maxTokens != DefaultAnthropicMaxTokens {
		t.Errorf("Expected default max tokens %d, got %d", DefaultAnthropicMaxTokens, service.maxTokens)
	}

	if service.httpClient == nil {
		t.Error("Expected HTTP client to be initialized")
	}
}

func TestSplitChatMessages(t *testing.T) {
	tests := []struct {
		name                   string
		messages               []chat.ChatMessage
		expectedSystem         string
		expectedNonSystemCount int
	}{
		{
			name: "single system message",
			messages: []chat.ChatMessage{
				{Role: chat.ChatRoleSystem, Content: "You are the Storyteller."},
				{Role: chat.ChatRoleUser, Content: "Hello"},
				{Role: chat.ChatRoleAssistant, Content: "Hi there!"},
			},
			expectedSystem:         "You are the Storyteller.",
			expectedNonSystemCount: 2,
		},
		{
			name: "multiple system messages",
			messages: []chat.ChatMessage{
				{Role: chat.ChatRoleSystem, Content: "You are the Storyteller."},
				{Role: chat.ChatRoleUser, Content: "Hello"},
				{Role: chat.ChatRoleSystem, Content: "Be concise."},
			},
			expectedSystem:         "You are the Storyteller.\n\nBe concise.",
			expectedNonSystemCount: 1,
		},
		{
			name: "no system messages",
			messages: []chat.ChatMessage{
				{Role: chat.ChatRoleUser, Content: "Hello"},
			},
			expectedSystem:         "",
			expectedNonSystemCount: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			system, rest := splitChatMessages(tt.messages)
			if system != tt.expectedSystem {
				t.Errorf("Expected system %q, got %q", tt.expectedSystem, system)
			}
			if len(rest) != tt.expectedNonSystemCount {
				t.Errorf("Expected %d non-system messages, got %d", tt.expectedNonSystemCount, len(rest))
			}
		})
	}
}

func TestAnthropicService_Chat(t *testing.T) {
	var gotReq AnthropicChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("Expected x-api-key header, got %q", r.Header.Get("x-api-key"))
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(AnthropicChatResponse{
			Content: []AnthropicContentBlock{
				{Type: "text", Text: `{"storyEvent": "The Elysium doors open."}`},
			},
		})
	}))
	defer server.Close()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := NewAnthropicService("test-key", "claude-sonnet-4-20250514", 1024, log)
	service.baseURL = server.URL

	reply, err := service.Chat(context.Background(), []chat.ChatMessage{
		{Role: chat.ChatRoleSystem, Content: "You are the Storyteller."},
		{Role: chat.ChatRoleUser, Content: "Lucien: I enter."},
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !strings.Contains(reply, "Elysium") {
		t.Errorf("Unexpected reply: %q", reply)
	}
	if gotReq.System != "You are the Storyteller." {
		t.Errorf("Expected system prompt out of band, got %q", gotReq.System)
	}
	if len(gotReq.Messages) != 1 {
		t.Errorf("Expected 1 conversation message, got %d", len(gotReq.Messages))
	}
	if gotReq.MaxTokens != 1024 {
		t.Errorf("Expected max tokens 1024, got %d", gotReq.MaxTokens)
	}
}

func TestAnthropicService_ChatAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"type": "rate_limit_error", "message": "slow down"}}`))
	}))
	defer server.Close()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := NewAnthropicService("test-key", "claude-sonnet-4-20250514", 0, log)
	service.baseURL = server.URL

	_, err := service.Chat(context.Background(), []chat.ChatMessage{
		{Role: chat.ChatRoleUser, Content: "hi"},
	})
	if err == nil {
		t.Fatal("Expected error for non-200 response")
	}
}
