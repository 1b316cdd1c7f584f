package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"ai-roleplay-platform/backend/internal/models"
	"ai-roleplay-platform/backend/internal/notify"
	"ai-roleplay-platform/backend/internal/prompt"
	"ai-roleplay-platform/backend/internal/repository"
	"ai-roleplay-platform/backend/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Generator produces a character reply for an assembled prompt payload.
// Satisfied by llm.Gateway.
type Generator interface {
	Generate(ctx context.Context, payload string, speaker string) (string, error)
}

// ChatService orchestrates single-party turn-taking: one human, one
// character, one synchronous pipeline per inbound message.
type ChatService struct {
	sessions   repository.SessionRepository
	characters *CharacterService
	generator  Generator
	notifier   notify.Notifier
	log        *logger.Logger
	locks      *sessionLocks
}

func NewChatService(
	sessions repository.SessionRepository,
	characters *CharacterService,
	generator Generator,
	notifier notify.Notifier,
	log *logger.Logger,
) *ChatService {
	return &ChatService{
		sessions:   sessions,
		characters: characters,
		generator:  generator,
		notifier:   notifier,
		log:        log,
		locks:      newSessionLocks(),
	}
}

// InitializeSession returns the session between userID and characterID,
// creating an empty one on first contact. The continued flag tells the
// caller whether they are resuming earlier context.
func (s *ChatService) InitializeSession(ctx context.Context, userID, characterID uint) (*models.ChatSession, bool, error) {
	if _, err := s.characters.GetActiveCharacter(characterID); err != nil {
		return nil, false, err
	}

	session, err := s.sessions.GetByUserAndCharacter(userID, characterID)
	if err == nil {
		return session, true, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	session = &models.ChatSession{
		ID:          uuid.NewString(),
		UserID:      userID,
		CharacterID: characterID,
		History:     models.MessageList{},
	}
	if err := s.sessions.Create(session); err != nil {
		// A concurrent first contact may have won the unique-index race on
		// (user_id, character_id); resume its session instead of failing.
		if existing, lookupErr := s.sessions.GetByUserAndCharacter(userID, characterID); lookupErr == nil {
			return existing, true, nil
		}
		return nil, false, err
	}

	s.notifier.Emit(ctx, notify.Event{
		Type:      notify.EventSessionCreated,
		SessionID: session.ID,
		Payload:   map[string]any{"user_id": userID, "character_id": characterID},
		Timestamp: time.Now(),
	})

	return session, false, nil
}

// GetSession loads a session for shared-read display. Any listed participant
// may read; only the owner may post.
func (s *ChatService) GetSession(sessionID string, userID uint) (*models.ChatSession, error) {
	session, err := s.loadSession(sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, ErrForbidden
	}
	return session, nil
}

// ListSessions returns the caller's sessions, most recently updated first.
func (s *ChatService) ListSessions(userID uint) ([]models.ChatSession, error) {
	return s.sessions.ListByUser(userID)
}

// PostMessage runs one conversation turn: append the user message, assemble
// the prompt, call the provider, append the reply, persist the whole history
// once. On generation failure nothing is persisted, so the previously stored
// history is untouched and the caller can roll back its optimistic message.
func (s *ChatService) PostMessage(ctx context.Context, sessionID string, userID uint, text string) (*models.Message, models.MessageList, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil, ErrEmptyMessage
	}

	release := s.locks.acquire(sessionID)
	defer release()

	session, err := s.loadSession(sessionID)
	if err != nil {
		return nil, nil, err
	}
	if session.UserID != userID {
		return nil, nil, ErrForbidden
	}

	character, err := s.characters.GetActiveCharacter(session.CharacterID)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now()
	userMessage := models.Message{
		ID:        uuid.NewString(),
		Role:      models.RoleUser,
		Content:   text,
		Timestamp: now,
	}

	payload := prompt.Assemble(
		PromptPersona(character),
		singlePartyTurns(session.History),
		prompt.Turn{Speaker: prompt.FallbackAddressee, FromHuman: true, Content: text},
	)

	reply, err := s.generator.Generate(ctx, payload, character.Name)
	if err != nil {
		return nil, nil, err
	}

	assistantMessage := models.Message{
		ID:        uuid.NewString(),
		Role:      models.RoleAssistant,
		Content:   reply,
		Timestamp: time.Now(),
	}

	// The user message and the reply persist as one unit: a single
	// replace-on-write of the full history.
	session.History = append(session.History, userMessage, assistantMessage)
	if err := s.sessions.Save(session); err != nil {
		return nil, nil, err
	}

	s.notifier.Emit(ctx, notify.Event{
		Type:      notify.EventMessageAppended,
		SessionID: session.ID,
		Payload:   map[string]any{"messages": []models.Message{userMessage, assistantMessage}},
		Timestamp: time.Now(),
	})

	return &assistantMessage, session.History, nil
}

func (s *ChatService) loadSession(sessionID string) (*models.ChatSession, error) {
	session, err := s.sessions.GetByID(sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return session, nil
}

// singlePartyTurns renders a session history with the generic Human and
// Assistant display labels.
func singlePartyTurns(history models.MessageList) []prompt.Turn {
	turns := make([]prompt.Turn, len(history))
	for i, msg := range history {
		if msg.Role == models.RoleUser {
			turns[i] = prompt.Turn{Speaker: prompt.FallbackAddressee, FromHuman: true, Content: msg.Content}
		} else {
			turns[i] = prompt.Turn{Speaker: "Assistant", Content: msg.Content}
		}
	}
	return turns
}
