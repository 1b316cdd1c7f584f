package service

import (
	"errors"
	"time"

	"ai-roleplay-platform/backend/internal/models"
	"ai-roleplay-platform/backend/internal/repository"
	"ai-roleplay-platform/backend/pkg/jwt"

	"gorm.io/gorm"
)

// UserService handles accounts and the friendship graph.
type UserService struct {
	repo       repository.UserRepository
	jwtService *jwt.Service
}

func NewUserService(repo repository.UserRepository, jwtService *jwt.Service) *UserService {
	return &UserService{repo: repo, jwtService: jwtService}
}

// CreateUser registers a new account and returns it with a signed token.
func (s *UserService) CreateUser(req *models.CreateUserRequest) (*models.User, string, error) {
	if _, err := s.repo.GetByEmail(req.Email); err == nil {
		return nil, "", ErrUserAlreadyExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", err
	}

	role := req.Role
	if role == "" {
		role = string(jwt.RoleUser)
	}
	if role != string(jwt.RoleUser) && role != string(jwt.RoleAdmin) && role != string(jwt.RoleGuest) {
		return nil, "", ErrInvalidRole
	}

	user := &models.User{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     role,
		Active:   true,
	}

	if err := s.repo.Create(user); err != nil {
		return nil, "", err
	}

	token, err := s.jwtService.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, "", err
	}

	return user, token, nil
}

// Login authenticates a user and returns a signed token.
func (s *UserService) Login(req *models.LoginRequest) (*models.User, string, error) {
	user, err := s.repo.GetByEmail(req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}

	if !user.Active || !models.CheckPasswordHash(req.Password, user.Password) {
		return nil, "", ErrInvalidCredentials
	}

	user.LastLogin = time.Now()
	if err := s.repo.Save(user); err != nil {
		return nil, "", err
	}

	token, err := s.jwtService.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, "", err
	}

	return user, token, nil
}

func (s *UserService) GetUserByID(id uint) (*models.User, error) {
	user, err := s.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// UpdateUserRole changes a user's role; admin-only at the API boundary.
func (s *UserService) UpdateUserRole(id uint, role jwt.Role) error {
	if role != jwt.RoleUser && role != jwt.RoleAdmin && role != jwt.RoleGuest {
		return ErrInvalidRole
	}

	user, err := s.GetUserByID(id)
	if err != nil {
		return err
	}

	user.Role = string(role)
	return s.repo.Save(user)
}

// ListFriends returns the caller's accepted, active friends.
func (s *UserService) ListFriends(userID uint) ([]models.User, error) {
	return s.repo.ListAcceptedFriends(userID)
}

// RequestFriend creates a pending friendship edge towards friendID.
func (s *UserService) RequestFriend(userID, friendID uint) (*models.Friendship, error) {
	if userID == friendID {
		return nil, ErrValidation
	}

	if _, err := s.GetUserByID(friendID); err != nil {
		return nil, err
	}

	if existing, err := s.repo.GetFriendship(userID, friendID); err == nil {
		return existing, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	friendship := &models.Friendship{
		UserID:   userID,
		FriendID: friendID,
		Status:   models.FriendshipPending,
	}
	if err := s.repo.CreateFriendship(friendship); err != nil {
		return nil, err
	}
	return friendship, nil
}

// AcceptFriend accepts a pending request addressed to userID.
func (s *UserService) AcceptFriend(userID, requesterID uint) (*models.Friendship, error) {
	friendship, err := s.repo.GetFriendship(requesterID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	// Only the addressee of the request may accept it.
	if friendship.FriendID != userID {
		return nil, ErrForbidden
	}

	friendship.Status = models.FriendshipAccepted
	if err := s.repo.SaveFriendship(friendship); err != nil {
		return nil, err
	}
	return friendship, nil
}
