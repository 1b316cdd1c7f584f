package api

import (
	"net/http"
	"strconv"

	"ai-roleplay-platform/backend/internal/service"
	"ai-roleplay-platform/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// FriendHandler exposes the friendship graph: the selectable universe for
// group composition.
type FriendHandler struct {
	users *service.UserService
	log   *logger.Logger
}

func NewFriendHandler(users *service.UserService, log *logger.Logger) *FriendHandler {
	return &FriendHandler{users: users, log: log}
}

// List returns the caller's accepted, active friends.
func (h *FriendHandler) List(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	friends, err := h.users.ListFriends(userID)
	if err != nil {
		handleServiceError(c, h.log, err)
		return
	}

	responses := make([]any, len(friends))
	for i, friend := range friends {
		responses[i] = friend.ToResponse()
	}

	c.JSON(http.StatusOK, gin.H{"friends": responses})
}

// Request creates a pending friend request.
func (h *FriendHandler) Request(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req struct {
		FriendID uint `json:"friend_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	friendship, err := h.users.RequestFriend(userID, req.FriendID)
	if err != nil {
		handleServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, friendship)
}

// Accept accepts a pending request addressed to the caller.
func (h *FriendHandler) Accept(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	requesterID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Requester ID must be a number"})
		return
	}

	friendship, err := h.users.AcceptFriend(userID, uint(requesterID))
	if err != nil {
		handleServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, friendship)
}
