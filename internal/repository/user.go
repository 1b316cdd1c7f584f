package repository

import (
	"ai-roleplay-platform/backend/internal/models"

	"gorm.io/gorm"
)

// UserRepository reads human accounts and the friendship graph.
type UserRepository interface {
	Create(user *models.User) error
	Save(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetManyByIDs(ids []uint) ([]models.User, error)
	ListAcceptedFriends(userID uint) ([]models.User, error)
	CreateFriendship(friendship *models.Friendship) error
	GetFriendship(userID, friendID uint) (*models.Friendship, error)
	SaveFriendship(friendship *models.Friendship) error
}

type GormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

func (r *GormUserRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

func (r *GormUserRepository) Save(user *models.User) error {
	return r.db.Save(user).Error
}

func (r *GormUserRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormUserRepository) GetByEmail(email string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormUserRepository) GetManyByIDs(ids []uint) ([]models.User, error) {
	var users []models.User
	err := r.db.Where("id IN ?", ids).Find(&users).Error
	return users, err
}

// ListAcceptedFriends returns the active users connected to userID by an
// accepted friendship edge in either direction.
func (r *GormUserRepository) ListAcceptedFriends(userID uint) ([]models.User, error) {
	var users []models.User
	err := r.db.
		Joins("JOIN friendships ON (friendships.user_id = ? AND friendships.friend_id = users.id) OR (friendships.friend_id = ? AND friendships.user_id = users.id)", userID, userID).
		Where("friendships.status = ? AND users.active = ?", models.FriendshipAccepted, true).
		Find(&users).Error
	return users, err
}

func (r *GormUserRepository) CreateFriendship(friendship *models.Friendship) error {
	return r.db.Create(friendship).Error
}

func (r *GormUserRepository) GetFriendship(userID, friendID uint) (*models.Friendship, error) {
	var friendship models.Friendship
	err := r.db.
		Where("(user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?)", userID, friendID, friendID, userID).
		First(&friendship).Error
	if err != nil {
		return nil, err
	}
	return &friendship, nil
}

func (r *GormUserRepository) SaveFriendship(friendship *models.Friendship) error {
	return r.db.Save(friendship).Error
}
