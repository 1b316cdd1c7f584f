package models

import (
	"time"
)

// Character is the persona record consumed by prompt assembly. It is
// immutable for the duration of a conversation turn; authoring happens
// through the admin API and is never touched by the session controllers.
type Character struct {
	ID               uint       `json:"id" gorm:"primarykey"`
	Name             string     `json:"name" gorm:"not null"`
	ContentSource    string     `json:"content_source"`
	Description      string     `json:"description" gorm:"not null;type:text"`
	Personality      string     `json:"personality" gorm:"not null;type:text"`
	Background       string     `json:"background" gorm:"type:text"`
	Lore             string     `json:"lore" gorm:"type:text"`
	Quotes           StringList `json:"quotes" gorm:"type:jsonb"`
	ExampleDialogues StringList `json:"example_dialogues" gorm:"type:jsonb"`
	AvatarURL        string     `json:"avatar_url"`
	Public           bool       `json:"public" gorm:"default:true"`
	Active           bool       `json:"active" gorm:"default:true"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

type CreateCharacterRequest struct {
	Name             string   `json:"name" binding:"required"`
	ContentSource    string   `json:"content_source"`
	Description      string   `json:"description" binding:"required"`
	Personality      string   `json:"personality" binding:"required"`
	Background       string   `json:"background"`
	Lore             string   `json:"lore"`
	Quotes           []string `json:"quotes"`
	ExampleDialogues []string `json:"example_dialogues"`
	AvatarURL        string   `json:"avatar_url"`
	Public           *bool    `json:"public"`
}
