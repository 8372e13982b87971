package models

import "time"

// ChatMessage is one turn of a conversation, kept in memory per identity so
// the persona sees a short context window. History is best-effort and does
// not survive a restart.
type ChatMessage struct {
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}
