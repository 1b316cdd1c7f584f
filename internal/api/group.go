package api

import (
	"net/http"

	"ai-roleplay-platform/backend/internal/models"
	"ai-roleplay-platform/backend/internal/service"
	"ai-roleplay-platform/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// GroupHandler exposes multi-party group sessions.
type GroupHandler struct {
	groups *service.GroupService
	log    *logger.Logger
}

func NewGroupHandler(groups *service.GroupService, log *logger.Logger) *GroupHandler {
	return &GroupHandler{groups: groups, log: log}
}

// Create validates composition and creates a group owned by the caller.
func (h *GroupHandler) Create(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req models.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	group, err := h.groups.CreateGroup(c.Request.Context(), userID, &req)
	if err != nil {
		handleServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"group": group})
}

// ListAvailable returns the characters and friends the caller can build a
// group from.
func (h *GroupHandler) ListAvailable(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	available, err := h.groups.ListAvailableParticipants(userID)
	if err != nil {
		handleServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, available)
}

// List returns the caller's active groups.
func (h *GroupHandler) List(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	groups, err := h.groups.ListGroups(userID)
	if err != nil {
		handleServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

// Get returns one group with its history and resolved sender identities.
func (h *GroupHandler) Get(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	group, err := h.groups.GetGroup(c.Param("id"), userID)
	if err != nil {
		handleServiceError(c, h.log, err)
		return
	}

	participants, err := h.groups.ResolveParticipants(group)
	if err != nil {
		handleServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"group":        group,
		"participants": participants,
	})
}

// PostMessage appends the caller's message and the resulting character
// replies, returning the authoritative history.
func (h *GroupHandler) PostMessage(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	history, err := h.groups.PostGroupMessage(c.Request.Context(), c.Param("id"), userID, req.Text)
	if err != nil {
		handleServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": history})
}

// Deactivate soft-deletes a group; creator only.
func (h *GroupHandler) Deactivate(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	if err := h.groups.Deactivate(c.Request.Context(), c.Param("id"), userID); err != nil {
		handleServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Group deactivated"})
}
