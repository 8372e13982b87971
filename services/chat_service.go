package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/kmish9685/Persona-AI/config"
	"github.com/kmish9685/Persona-AI/models"
	"github.com/kmish9685/Persona-AI/repository"

	openai "github.com/sashabaranov/go-openai"
)

// historyWindow is how many prior messages the persona sees.
const historyWindow = 10

// ChatService produces persona replies. Provider failures never surface as
// errors: they are converted into a human-readable reply so a model outage
// cannot crash a chat request.
type ChatService interface {
	GenerateReply(ctx context.Context, id models.Identity, userMessage string) string
}

type chatService struct {
	client  *openai.Client
	model   string
	persona config.PersonaRules
	history repository.ChatRepository
}

// NewChatService creates a ChatService against an OpenAI-compatible endpoint.
// With no API key configured the service degrades to a configuration-error
// reply instead of refusing to start.
func NewChatService(cfg *config.Config, history repository.ChatRepository) ChatService {
	var client *openai.Client
	if cfg.LLM.APIKey != "" {
		clientConfig := openai.DefaultConfig(cfg.LLM.APIKey)
		clientConfig.BaseURL = cfg.LLM.BaseURL
		client = openai.NewClientWithConfig(clientConfig)
	}
	return &chatService{
		client:  client,
		model:   cfg.LLM.Model,
		persona: cfg.Persona,
		history: history,
	}
}

func (s *chatService) GenerateReply(ctx context.Context, id models.Identity, userMessage string) string {
	if s.client == nil {
		return "Error: LLM API key not configured"
	}

	userMsg := models.ChatMessage{Role: "user", Content: userMessage, Timestamp: time.Now()}
	if err := s.history.SaveMessage(id.String(), userMsg); err != nil {
		log.Printf("WARN: [Chat] Failed to save user message for %s: %v", id, err)
	}

	systemPrompt := s.persona.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = "You are a helpful assistant."
	}

	llmMessages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
	}

	history, err := s.history.GetMessages(id.String())
	if err != nil {
		log.Printf("WARN: [Chat] Failed to load history for %s: %v", id, err)
		history = nil
	}
	// The freshest entry is the message just saved; replay the window
	// before it so the model is not shown the current turn twice.
	if len(history) > 0 {
		history = history[:len(history)-1]
	}
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	for _, msg := range history {
		role := openai.ChatMessageRoleUser
		if strings.EqualFold(msg.Role, "assistant") {
			role = openai.ChatMessageRoleAssistant
		}
		llmMessages = append(llmMessages, openai.ChatCompletionMessage{Role: role, Content: msg.Content})
	}
	llmMessages = append(llmMessages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userMessage,
	})

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		Messages:    llmMessages,
		Temperature: 0.4,
		MaxTokens:   300,
		TopP:        0.95,
	})
	if err != nil {
		log.Printf("ERROR: [Chat] Model call failed for %s: %v", id, err)
		return fmt.Sprintf("Error calling model: %v", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "Error: empty response from model"
	}

	reply := SanitizeResponse(resp.Choices[0].Message.Content, s.persona)

	aiMsg := models.ChatMessage{Role: "assistant", Content: reply, Timestamp: time.Now()}
	if err := s.history.SaveMessage(id.String(), aiMsg); err != nil {
		log.Printf("WARN: [Chat] Failed to save assistant message for %s: %v", id, err)
	}
	return reply
}
