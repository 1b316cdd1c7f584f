package api

import (
	"net/http"

	"ai-roleplay-platform/backend/internal/service"
	"ai-roleplay-platform/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// SessionHandler exposes single-party conversation sessions.
type SessionHandler struct {
	chat *service.ChatService
	log  *logger.Logger
}

func NewSessionHandler(chat *service.ChatService, log *logger.Logger) *SessionHandler {
	return &SessionHandler{chat: chat, log: log}
}

// Bootstrap creates or resumes the session between the caller and a
// character. Returning users resume context rather than restarting.
func (h *SessionHandler) Bootstrap(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req struct {
		CharacterID uint `json:"character_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	session, continued, err := h.chat.InitializeSession(c.Request.Context(), userID, req.CharacterID)
	if err != nil {
		handleServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id": session.ID,
		"messages":   session.History,
		"continued":  continued,
	})
}

// List returns the caller's sessions, most recently active first.
func (h *SessionHandler) List(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	sessions, err := h.chat.ListSessions(userID)
	if err != nil {
		handleServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// GetMessages returns the full history of one session.
func (h *SessionHandler) GetMessages(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	session, err := h.chat.GetSession(c.Param("id"), userID)
	if err != nil {
		handleServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id": session.ID,
		"messages":   session.History,
	})
}

// PostMessage runs one conversation turn and returns the reply together
// with the authoritative history.
func (h *SessionHandler) PostMessage(c *gin.Context) {
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

	reply, history, err := h.chat.PostMessage(c.Request.Context(), c.Param("id"), userID, req.Text)
	if err != nil {
		handleServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reply":   reply,
		"history": history,
	})
}
