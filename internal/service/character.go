package service

import (
	"errors"

	"ai-roleplay-platform/backend/internal/models"
	"ai-roleplay-platform/backend/internal/prompt"
	"ai-roleplay-platform/backend/internal/repository"

	"gorm.io/gorm"
)

// CharacterService exposes persona reads to the session controllers and
// persona authoring to the admin surface.
type CharacterService struct {
	repo repository.CharacterRepository
}

func NewCharacterService(repo repository.CharacterRepository) *CharacterService {
	return &CharacterService{repo: repo}
}

func (s *CharacterService) CreateCharacter(req *models.CreateCharacterRequest) (*models.Character, error) {
	public := true
	if req.Public != nil {
		public = *req.Public
	}

	character := &models.Character{
		Name:             req.Name,
		ContentSource:    req.ContentSource,
		Description:      req.Description,
		Personality:      req.Personality,
		Background:       req.Background,
		Lore:             req.Lore,
		Quotes:           req.Quotes,
		ExampleDialogues: req.ExampleDialogues,
		AvatarURL:        req.AvatarURL,
		Public:           public,
		Active:           true,
	}

	if err := s.repo.Create(character); err != nil {
		return nil, err
	}
	return character, nil
}

// GetActiveCharacter returns the persona for id, treating a missing or
// deactivated record identically so callers cannot distinguish the two.
func (s *CharacterService) GetActiveCharacter(id uint) (*models.Character, error) {
	character, err := s.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCharacterNotFound
		}
		return nil, err
	}
	if !character.Active {
		return nil, ErrCharacterNotFound
	}
	return character, nil
}

// ListPublicCharacters returns the personas selectable for conversations and
// group composition.
func (s *CharacterService) ListPublicCharacters() ([]models.Character, error) {
	return s.repo.ListPublicActive()
}

// PromptPersona projects a character record onto the slice prompt assembly
// needs.
func PromptPersona(c *models.Character) prompt.Persona {
	return prompt.Persona{
		Name:             c.Name,
		ContentSource:    c.ContentSource,
		Description:      c.Description,
		Personality:      c.Personality,
		Background:       c.Background,
		Lore:             c.Lore,
		Quotes:           c.Quotes,
		ExampleDialogues: c.ExampleDialogues,
	}
}
