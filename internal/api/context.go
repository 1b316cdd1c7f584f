package api

import (
	"errors"
	"net/http"

	"ai-roleplay-platform/backend/internal/llm"
	"ai-roleplay-platform/backend/internal/service"
	"ai-roleplay-platform/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// currentUserID reads the authenticated user id set by the JWT middleware.
func currentUserID(c *gin.Context) (uint, bool) {
	value, exists := c.Get("userId")
	if !exists {
		return 0, false
	}
	id, ok := value.(uint)
	return id, ok
}

// requireUserID aborts with 401 when no identity is attached to the request.
func requireUserID(c *gin.Context) (uint, bool) {
	id, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
	}
	return id, ok
}

// handleServiceError translates service sentinel errors to the HTTP error
// taxonomy. Provider internals never leak to the caller.
func handleServiceError(c *gin.Context, log *logger.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrCharacterNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Character not found"})
	case errors.Is(err, service.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
	case errors.Is(err, service.ErrGroupNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Group not found"})
	case errors.Is(err, service.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have access to this resource"})
	case errors.Is(err, service.ErrNotAMember):
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not a member of this group"})
	case errors.Is(err, service.ErrEmptyMessage):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message text must not be empty"})
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidRole):
		c.JSON(http.StatusBadRequest, gin.H{"error": "The provided role is invalid"})
	case errors.Is(err, service.ErrUserAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": "A user with this email already exists"})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
	case errors.Is(err, llm.ErrProvider), errors.Is(err, llm.ErrEmptyResponse):
		log.LogError(err, "generation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate a reply"})
	default:
		log.LogError(err, "unexpected service error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "An unexpected error occurred"})
	}
}
