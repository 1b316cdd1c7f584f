package api

import (
	"net/http"
	"strconv"

	"ai-roleplay-platform/backend/internal/models"
	"ai-roleplay-platform/backend/internal/service"
	"ai-roleplay-platform/backend/pkg/jwt"
	"ai-roleplay-platform/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	users *service.UserService
	log   *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(users *service.UserService, log *logger.Logger) *AuthHandler {
	return &AuthHandler{users: users, log: log}
}

// Signup handles user registration
func (h *AuthHandler) Signup(c *gin.Context) {
	var req models.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Error binding JSON for signup", "error", err.Error())
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	user, token, err := h.users.CreateUser(&req)
	if err != nil {
		handleServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user":  user.ToResponse(),
		"token": token,
	})
}

// Login handles user authentication
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Error binding JSON for login", "error", err.Error())
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	user, token, err := h.users.Login(&req)
	if err != nil {
		handleServiceError(c, h.log, err)
		return
	}

	h.log.Info("User logged in successfully",
		"userID", user.ID,
		"email", user.Email,
		"role", user.Role,
	)

	c.JSON(http.StatusOK, gin.H{
		"user":  user.ToResponse(),
		"token": token,
	})
}

// Me returns the current authenticated user
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	user, err := h.users.GetUserByID(userID)
	if err != nil {
		handleServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, user.ToResponse())
}

// UpdateUserRole allows admins to update a user's role
func (h *AuthHandler) UpdateUserRole(c *gin.Context) {
	claims, exists := c.Get("claims")
	if !exists || !claims.(*jwt.JWTClaims).HasRole(jwt.RoleAdmin) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User ID must be a number"})
		return
	}

	var req struct {
		Role string `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	if err := h.users.UpdateUserRole(uint(id), jwt.Role(req.Role)); err != nil {
		handleServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User role updated successfully"})
}
