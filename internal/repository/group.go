package repository

import (
	"fmt"

	"ai-roleplay-platform/backend/internal/models"

	"gorm.io/gorm"
)

// GroupRepository stores group sessions. Like single-party sessions these are
// document-style records whose history is replaced on write.
type GroupRepository interface {
	Create(group *models.GroupSession) error
	Save(group *models.GroupSession) error
	GetByID(id string) (*models.GroupSession, error)
	ListByMember(userID uint) ([]models.GroupSession, error)
}

type GormGroupRepository struct {
	db *gorm.DB
}

func NewGormGroupRepository(db *gorm.DB) *GormGroupRepository {
	return &GormGroupRepository{db: db}
}

func (r *GormGroupRepository) Create(group *models.GroupSession) error {
	return r.db.Create(group).Error
}

func (r *GormGroupRepository) Save(group *models.GroupSession) error {
	return r.db.Save(group).Error
}

func (r *GormGroupRepository) GetByID(id string) (*models.GroupSession, error) {
	var group models.GroupSession
	if err := r.db.Where("id = ?", id).First(&group).Error; err != nil {
		return nil, err
	}
	return &group, nil
}

// ListByMember returns active groups whose user set contains userID, using a
// JSONB containment query on the member column.
func (r *GormGroupRepository) ListByMember(userID uint) ([]models.GroupSession, error) {
	var groups []models.GroupSession
	err := r.db.
		Where("active = ? AND user_ids @> ?", true, fmt.Sprintf("[%d]", userID)).
		Order("updated_at DESC").
		Find(&groups).Error
	return groups, err
}
