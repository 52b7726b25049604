package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/rodrgost/cronicas-carmesim/pkg/chat"
)

// GeminiService implements LLMService on the Google Generative AI SDK.
type GeminiService struct {
	client    *genai.Client
	modelName string
	maxTokens int
	logger    *slog.Logger
}

func NewGeminiService(ctx context.Context, apiKey, modelName string, maxTokens int, logger *slog.Logger) (*GeminiService, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiService{
		client:    client,
		modelName: modelName,
		maxTokens: maxTokens,
		logger:    logger,
	}, nil
}

func (g *GeminiService) Name() string {
	return "gemini"
}

func (g *GeminiService) Close() error {
	return g.client.Close()
}

// Chat generates a completion. System messages become the model's
// system instruction; the rest of the conversation rides as chat
// history with the final user message sent as the turn.
func (g *GeminiService) Chat(ctx context.Context, messages []chat.ChatMessage) (string, error) {
	systemPrompt, conversation := splitChatMessages(messages)
	if len(conversation) == 0 {
		return "", fmt.Errorf("no conversation messages to send")
	}

	model := g.client.GenerativeModel(g.modelName)
	if g.maxTokens > 0 {
		maxTokens := int32(g.maxTokens)
		model.MaxOutputTokens = &maxTokens
	}
	if systemPrompt != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(systemPrompt)},
		}
	}

	session := model.StartChat()
	last := conversation[len(conversation)-1]
	for _, msg := range conversation[:len(conversation)-1] {
		role := "user"
		if msg.Role == chat.ChatRoleAssistant {
			role = "model"
		}
		session.History = append(session.History, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(msg.Content)},
		})
	}

	resp, err := session.SendMessage(ctx, genai.Text(last.Content))
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}

	var text string
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if txt, ok := part.(genai.Text); ok {
				text += string(txt)
			}
		}
	}
	if text == "" {
		return "", fmt.Errorf("empty completion from model %s", g.modelName)
	}

	if g.logger != nil {
		g.logger.Debug("gemini completion", "model", g.modelName, "chars", len(text))
	}
	return text, nil
}
