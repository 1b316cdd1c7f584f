package repository

import (
	"ai-roleplay-platform/backend/internal/models"

	"gorm.io/gorm"
)

// SessionRepository is the session store adapter. Save replaces the whole
// record including its history (document-style update); callers own the
// ordering of what they write.
type SessionRepository interface {
	Create(session *models.ChatSession) error
	Save(session *models.ChatSession) error
	GetByID(id string) (*models.ChatSession, error)
	GetByUserAndCharacter(userID, characterID uint) (*models.ChatSession, error)
	ListByUser(userID uint) ([]models.ChatSession, error)
}

type GormSessionRepository struct {
	db *gorm.DB
}

func NewGormSessionRepository(db *gorm.DB) *GormSessionRepository {
	return &GormSessionRepository{db: db}
}

func (r *GormSessionRepository) Create(session *models.ChatSession) error {
	return r.db.Create(session).Error
}

func (r *GormSessionRepository) Save(session *models.ChatSession) error {
	return r.db.Save(session).Error
}

func (r *GormSessionRepository) GetByID(id string) (*models.ChatSession, error) {
	var session models.ChatSession
	if err := r.db.Where("id = ?", id).First(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *GormSessionRepository) GetByUserAndCharacter(userID, characterID uint) (*models.ChatSession, error) {
	var session models.ChatSession
	err := r.db.Where("user_id = ? AND character_id = ?", userID, characterID).First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *GormSessionRepository) ListByUser(userID uint) ([]models.ChatSession, error) {
	var sessions []models.ChatSession
	err := r.db.Where("user_id = ?", userID).Order("updated_at DESC").Find(&sessions).Error
	return sessions, err
}
