package models

import "time"

const (
	SenderUser      = "user"
	SenderAssistant = "assistant"
)

// ChatMessage is one turn of a subject's conversation with the assistant
type ChatMessage struct {
	ID        int64     `json:"-" db:"id"`
	UserID    int64     `json:"-" db:"user_id"`
	Sender    string    `json:"sender" db:"sender"`
	Message   string    `json:"message" db:"message"`
	CreatedAt time.Time `json:"timestamp" db:"created_at"`
}

// TableName returns the table name for the ChatMessage model
func (ChatMessage) TableName() string {
	return "chat_messages"
}
