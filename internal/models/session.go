package models

import (
	"database/sql/driver"
	"time"
)

// Message roles within a single-party session.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry in a session's append-only log. Messages are never
// mutated or reordered after creation; an edit is a new message.
type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// MessageList is the JSONB-backed ordered history of a session.
type MessageList []Message

func (l MessageList) Value() (driver.Value, error) {
	return jsonbValue([]Message(l))
}

func (l *MessageList) Scan(src any) error {
	return jsonbScan(src, (*[]Message)(l))
}

// ChatSession is the document-style record for one human talking to one
// character. The full history lives in the record and is persisted
// replace-on-write; there is exactly one session per (user, character) pair
// so returning users resume context instead of restarting.
type ChatSession struct {
	ID          string      `json:"id" gorm:"primarykey"`
	UserID      uint        `json:"user_id" gorm:"uniqueIndex:idx_sessions_user_character"`
	CharacterID uint        `json:"character_id" gorm:"uniqueIndex:idx_sessions_user_character"`
	History     MessageList `json:"messages" gorm:"type:jsonb"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}
