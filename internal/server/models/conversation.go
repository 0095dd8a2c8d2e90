package models

import "time"

type Conversation struct {
	ID        int64
	UserID    int64
	Title     string
	Summary   *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message belongs to one conversation; conversation order is CreatedAt
// ascending with ID as tie-breaker.
type Message struct {
	ID             int64
	ConversationID int64
	Role           MessageRole
	Content        string
	IsVoiceInput   bool
	ExtractedTasks []string
	Metadata       map[string]any
	CreatedAt      time.Time
}
