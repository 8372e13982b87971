package repository

import (
	"sync"

	"github.com/kmish9685/Persona-AI/models"
)

// maxStoredMessages bounds per-identity history so an abusive caller cannot
// grow memory without limit.
const maxStoredMessages = 50

// ChatRepository keeps a short in-memory conversation history per identity.
// History only shapes the persona's context window; losing it on restart is
// acceptable.
type ChatRepository interface {
	SaveMessage(identityKey string, msg models.ChatMessage) error
	GetMessages(identityKey string) ([]models.ChatMessage, error)
}

type chatRepository struct {
	mu       sync.RWMutex
	messages map[string][]models.ChatMessage
}

// NewChatRepository creates a new in-memory ChatRepository.
func NewChatRepository() ChatRepository {
	return &chatRepository{messages: make(map[string][]models.ChatMessage)}
}

func (r *chatRepository) SaveMessage(identityKey string, msg models.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	history := append(r.messages[identityKey], msg)
	if len(history) > maxStoredMessages {
		history = history[len(history)-maxStoredMessages:]
	}
	r.messages[identityKey] = history
	return nil
}

func (r *chatRepository) GetMessages(identityKey string) ([]models.ChatMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	history := r.messages[identityKey]
	out := make([]models.ChatMessage, len(history))
	copy(out, history)
	return out, nil
}
