package api

import (
	"net/http"
	"strconv"

	"ai-roleplay-platform/backend/internal/models"
	"ai-roleplay-platform/backend/internal/service"
	"ai-roleplay-platform/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// CharacterHandler exposes persona listing and authoring.
type CharacterHandler struct {
	characters *service.CharacterService
	log        *logger.Logger
}

func NewCharacterHandler(characters *service.CharacterService, log *logger.Logger) *CharacterHandler {
	return &CharacterHandler{characters: characters, log: log}
}

// List returns the public, active personas.
func (h *CharacterHandler) List(c *gin.Context) {
	characters, err := h.characters.ListPublicCharacters()
	if err != nil {
		handleServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"characters": characters})
}

// Get returns one active persona.
func (h *CharacterHandler) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid character ID"})
		return
	}

	character, err := h.characters.GetActiveCharacter(uint(id))
	if err != nil {
		handleServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, character)
}

// Create adds a new persona. Restricted to admins at the route level.
func (h *CharacterHandler) Create(c *gin.Context) {
	var req models.CreateCharacterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	character, err := h.characters.CreateCharacter(&req)
	if err != nil {
		handleServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, character)
}
