package repository

import (
	"ai-roleplay-platform/backend/internal/models"

	"gorm.io/gorm"
)

// CharacterRepository is the persona store adapter. The core only ever reads
// personas; Create exists for the authoring surface.
type CharacterRepository interface {
	Create(character *models.Character) error
	GetByID(id uint) (*models.Character, error)
	GetManyByIDs(ids []uint) ([]models.Character, error)
	ListPublicActive() ([]models.Character, error)
}

type GormCharacterRepository struct {
	db *gorm.DB
}

func NewGormCharacterRepository(db *gorm.DB) *GormCharacterRepository {
	return &GormCharacterRepository{db: db}
}

func (r *GormCharacterRepository) Create(character *models.Character) error {
	return r.db.Create(character).Error
}

func (r *GormCharacterRepository) GetByID(id uint) (*models.Character, error) {
	var character models.Character
	if err := r.db.First(&character, id).Error; err != nil {
		return nil, err
	}
	return &character, nil
}

func (r *GormCharacterRepository) GetManyByIDs(ids []uint) ([]models.Character, error) {
	var characters []models.Character
	err := r.db.Where("id IN ?", ids).Find(&characters).Error
	return characters, err
}

func (r *GormCharacterRepository) ListPublicActive() ([]models.Character, error) {
	var characters []models.Character
	err := r.db.Where("public = ? AND active = ?", true, true).
		Order("name ASC").
		Find(&characters).Error
	return characters, err
}
