package models

import (
	"database/sql/driver"
	"time"
)

// Sender kinds for group messages.
const (
	SenderKindUser      = "user"
	SenderKindCharacter = "character"
)

// Group composition bounds. A group always has at least one character; the
// creator counts against the user bound.
const (
	GroupMaxUsers      = 10
	GroupMaxCharacters = 5
)

// GroupMessage is one entry in a group session's shared log. SenderID is
// interpreted against SenderKind; every sender must have been a member of
// the group at append time.
type GroupMessage struct {
	ID         string    `json:"id"`
	SenderID   uint      `json:"sender_id"`
	SenderKind string    `json:"sender_kind"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
}

// GroupMessageList is the JSONB-backed ordered history of a group session.
type GroupMessageList []GroupMessage

func (l GroupMessageList) Value() (driver.Value, error) {
	return jsonbValue([]GroupMessage(l))
}

func (l *GroupMessageList) Scan(src any) error {
	return jsonbScan(src, (*[]GroupMessage)(l))
}

// GroupSession is the shared log for N humans and M characters. Soft
// deactivation only; the core never hard-deletes a group.
type GroupSession struct {
	ID           string           `json:"id" gorm:"primarykey"`
	CreatorID    uint             `json:"creator_id" gorm:"index"`
	Name         string           `json:"name" gorm:"not null"`
	UserIDs      UintList         `json:"user_ids" gorm:"type:jsonb"`
	CharacterIDs UintList         `json:"character_ids" gorm:"type:jsonb"`
	History      GroupMessageList `json:"messages" gorm:"type:jsonb"`
	Active       bool             `json:"active" gorm:"default:true"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

type CreateGroupRequest struct {
	Name         string `json:"name" binding:"required"`
	UserIDs      []uint `json:"user_ids"`
	CharacterIDs []uint `json:"character_ids" binding:"required"`
}
