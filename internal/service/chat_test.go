package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"ai-roleplay-platform/backend/internal/models"
	"ai-roleplay-platform/backend/internal/notify"
	"ai-roleplay-platform/backend/internal/repository"
	"ai-roleplay-platform/backend/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeCharacterRepo struct {
	characters map[uint]*models.Character
}

func newFakeCharacterRepo(characters ...*models.Character) *fakeCharacterRepo {
	repo := &fakeCharacterRepo{characters: make(map[uint]*models.Character)}
	for _, c := range characters {
		repo.characters[c.ID] = c
	}
	return repo
}

func (r *fakeCharacterRepo) Create(character *models.Character) error {
	character.ID = uint(len(r.characters) + 1)
	r.characters[character.ID] = character
	return nil
}

func (r *fakeCharacterRepo) GetByID(id uint) (*models.Character, error) {
	character, ok := r.characters[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return character, nil
}

func (r *fakeCharacterRepo) GetManyByIDs(ids []uint) ([]models.Character, error) {
	var out []models.Character
	for _, id := range ids {
		if c, ok := r.characters[id]; ok {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *fakeCharacterRepo) ListPublicActive() ([]models.Character, error) {
	var out []models.Character
	for _, c := range r.characters {
		if c.Public && c.Active {
			out = append(out, *c)
		}
	}
	return out, nil
}

type fakeSessionRepo struct {
	sessions map[string]*models.ChatSession
	saves    int
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]*models.ChatSession)}
}

func (r *fakeSessionRepo) Create(session *models.ChatSession) error {
	copied := *session
	r.sessions[session.ID] = &copied
	return nil
}

func (r *fakeSessionRepo) Save(session *models.ChatSession) error {
	copied := *session
	copied.History = append(models.MessageList{}, session.History...)
	r.sessions[session.ID] = &copied
	r.saves++
	return nil
}

func (r *fakeSessionRepo) GetByID(id string) (*models.ChatSession, error) {
	session, ok := r.sessions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *session
	copied.History = append(models.MessageList{}, session.History...)
	return &copied, nil
}

func (r *fakeSessionRepo) GetByUserAndCharacter(userID, characterID uint) (*models.ChatSession, error) {
	for _, session := range r.sessions {
		if session.UserID == userID && session.CharacterID == characterID {
			copied := *session
			copied.History = append(models.MessageList{}, session.History...)
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeSessionRepo) ListByUser(userID uint) ([]models.ChatSession, error) {
	var out []models.ChatSession
	for _, session := range r.sessions {
		if session.UserID == userID {
			out = append(out, *session)
		}
	}
	return out, nil
}

type fakeGenerator struct {
	fn       func(payload, speaker string) (string, error)
	payloads []string
}

func (g *fakeGenerator) Generate(ctx context.Context, payload string, speaker string) (string, error) {
	g.payloads = append(g.payloads, payload)
	return g.fn(payload, speaker)
}

func echoGenerator() *fakeGenerator {
	return &fakeGenerator{fn: func(payload, speaker string) (string, error) {
		return "Reply from " + speaker, nil
	}}
}

func testCharacter(id uint) *models.Character {
	c := &models.Character{
		Name:        fmt.Sprintf("Character%d", id),
		Description: "a test persona",
		Personality: "friendly",
		Public:      true,
		Active:      true,
	}
	c.ID = id
	return c
}

func newTestChatService(sessions repository.SessionRepository, characters *fakeCharacterRepo, gen *fakeGenerator) *ChatService {
	log := logger.New(logger.DefaultConfig())
	return NewChatService(sessions, NewCharacterService(characters), gen, notify.Noop{}, log)
}

func TestInitializeSession(t *testing.T) {
	characters := newFakeCharacterRepo(testCharacter(1))
	sessions := newFakeSessionRepo()
	svc := newTestChatService(sessions, characters, echoGenerator())
	ctx := context.Background()

	t.Run("first contact creates an empty session", func(t *testing.T) {
		session, continued, err := svc.InitializeSession(ctx, 7, 1)
		require.NoError(t, err)
		assert.False(t, continued)
		assert.NotEmpty(t, session.ID)
		assert.Empty(t, session.History)
	})

	t.Run("second bootstrap resumes the same session", func(t *testing.T) {
		first, _, err := svc.InitializeSession(ctx, 8, 1)
		require.NoError(t, err)

		second, continued, err := svc.InitializeSession(ctx, 8, 1)
		require.NoError(t, err)
		assert.True(t, continued)
		assert.Equal(t, first.ID, second.ID)
	})

	t.Run("unknown character", func(t *testing.T) {
		_, _, err := svc.InitializeSession(ctx, 7, 99)
		assert.ErrorIs(t, err, ErrCharacterNotFound)
	})

	t.Run("inactive character looks missing", func(t *testing.T) {
		inactive := testCharacter(2)
		inactive.Active = false
		characters.characters[2] = inactive

		_, _, err := svc.InitializeSession(ctx, 7, 2)
		assert.ErrorIs(t, err, ErrCharacterNotFound)
	})
}

func TestPostMessageOrdering(t *testing.T) {
	characters := newFakeCharacterRepo(testCharacter(1))
	sessions := newFakeSessionRepo()
	svc := newTestChatService(sessions, characters, echoGenerator())
	ctx := context.Background()

	session, _, err := svc.InitializeSession(ctx, 7, 1)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, _, err := svc.PostMessage(ctx, session.ID, 7, fmt.Sprintf("message %d", i))
		require.NoError(t, err)
	}

	stored, err := sessions.GetByID(session.ID)
	require.NoError(t, err)
	require.Len(t, stored.History, 10)

	// Strict user/assistant alternation, in submission order.
	for i, msg := range stored.History {
		if i%2 == 0 {
			assert.Equal(t, models.RoleUser, msg.Role)
			assert.Equal(t, fmt.Sprintf("message %d", i/2), msg.Content)
		} else {
			assert.Equal(t, models.RoleAssistant, msg.Role)
		}
	}
}

func TestPostMessagePersistsPairAtomically(t *testing.T) {
	characters := newFakeCharacterRepo(testCharacter(1))
	sessions := newFakeSessionRepo()
	svc := newTestChatService(sessions, characters, echoGenerator())
	ctx := context.Background()

	session, _, err := svc.InitializeSession(ctx, 7, 1)
	require.NoError(t, err)

	_, _, err = svc.PostMessage(ctx, session.ID, 7, "hello")
	require.NoError(t, err)

	// One Save per turn: the pair lands together.
	assert.Equal(t, 1, sessions.saves)
}

func TestPostMessageGenerationFailure(t *testing.T) {
	characters := newFakeCharacterRepo(testCharacter(1))
	sessions := newFakeSessionRepo()
	failing := &fakeGenerator{fn: func(payload, speaker string) (string, error) {
		return "", fmt.Errorf("provider blew up")
	}}
	svc := newTestChatService(sessions, characters, failing)
	ctx := context.Background()

	session, _, err := svc.InitializeSession(ctx, 7, 1)
	require.NoError(t, err)

	_, _, err = svc.PostMessage(ctx, session.ID, 7, "hello")
	require.Error(t, err)

	// Nothing persisted for the failed turn.
	stored, err := sessions.GetByID(session.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.History)
	assert.Equal(t, 0, sessions.saves)
}

func TestPostMessageValidation(t *testing.T) {
	characters := newFakeCharacterRepo(testCharacter(1))
	sessions := newFakeSessionRepo()
	svc := newTestChatService(sessions, characters, echoGenerator())
	ctx := context.Background()

	session, _, err := svc.InitializeSession(ctx, 7, 1)
	require.NoError(t, err)

	t.Run("empty text", func(t *testing.T) {
		_, _, err := svc.PostMessage(ctx, session.ID, 7, "   ")
		assert.ErrorIs(t, err, ErrEmptyMessage)
	})

	t.Run("unknown session", func(t *testing.T) {
		_, _, err := svc.PostMessage(ctx, "nope", 7, "hello")
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("only the owner may post", func(t *testing.T) {
		_, _, err := svc.PostMessage(ctx, session.ID, 99, "hello")
		assert.ErrorIs(t, err, ErrForbidden)
	})
}

func TestPostMessagePromptCarriesHistory(t *testing.T) {
	characters := newFakeCharacterRepo(testCharacter(1))
	sessions := newFakeSessionRepo()
	gen := echoGenerator()
	svc := newTestChatService(sessions, characters, gen)
	ctx := context.Background()

	session, _, err := svc.InitializeSession(ctx, 7, 1)
	require.NoError(t, err)

	_, _, err = svc.PostMessage(ctx, session.ID, 7, "my name is Sam")
	require.NoError(t, err)
	_, _, err = svc.PostMessage(ctx, session.ID, 7, "what's my name?")
	require.NoError(t, err)

	require.Len(t, gen.payloads, 2)
	assert.Contains(t, gen.payloads[0], "speaking to Human.")
	assert.Contains(t, gen.payloads[1], "Human: my name is Sam")
	assert.Contains(t, gen.payloads[1], "speaking to Sam.")
}

func TestPostMessageConcurrentPostsAreSerialized(t *testing.T) {
	characters := newFakeCharacterRepo(testCharacter(1))
	sessions := newFakeSessionRepo()
	svc := newTestChatService(sessions, characters, echoGenerator())
	ctx := context.Background()

	session, _, err := svc.InitializeSession(ctx, 7, 1)
	require.NoError(t, err)

	const posts = 20
	var wg sync.WaitGroup
	for i := 0; i < posts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, err := svc.PostMessage(ctx, session.ID, 7, fmt.Sprintf("message %d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	// Replace-on-write persists must not lose updates: every accepted post
	// lands, paired with its reply, in strict alternation.
	stored, err := sessions.GetByID(session.ID)
	require.NoError(t, err)
	require.Len(t, stored.History, 2*posts)

	seen := make(map[string]bool)
	for i, msg := range stored.History {
		if i%2 == 0 {
			assert.Equal(t, models.RoleUser, msg.Role)
			seen[msg.Content] = true
		} else {
			assert.Equal(t, models.RoleAssistant, msg.Role)
		}
	}
	assert.Len(t, seen, posts)
}

// Simulates losing the unique-index race on first contact: the lookup misses,
// the insert collides, and the caller must still get the winner's session.
type racingSessionRepo struct {
	*fakeSessionRepo
	misses int
}

func (r *racingSessionRepo) GetByUserAndCharacter(userID, characterID uint) (*models.ChatSession, error) {
	if r.misses > 0 {
		r.misses--
		return nil, gorm.ErrRecordNotFound
	}
	return r.fakeSessionRepo.GetByUserAndCharacter(userID, characterID)
}

func (r *racingSessionRepo) Create(session *models.ChatSession) error {
	if _, err := r.fakeSessionRepo.GetByUserAndCharacter(session.UserID, session.CharacterID); err == nil {
		return gorm.ErrDuplicatedKey
	}
	return r.fakeSessionRepo.Create(session)
}

func TestInitializeSessionFirstContactRace(t *testing.T) {
	characters := newFakeCharacterRepo(testCharacter(1))
	inner := newFakeSessionRepo()
	winner := &models.ChatSession{ID: "winner", UserID: 7, CharacterID: 1, History: models.MessageList{}}
	require.NoError(t, inner.Create(winner))

	sessions := &racingSessionRepo{fakeSessionRepo: inner, misses: 1}
	svc := newTestChatService(sessions, characters, echoGenerator())

	session, continued, err := svc.InitializeSession(context.Background(), 7, 1)
	require.NoError(t, err)
	assert.True(t, continued)
	assert.Equal(t, "winner", session.ID)
}

func TestGetSession(t *testing.T) {
	characters := newFakeCharacterRepo(testCharacter(1))
	sessions := newFakeSessionRepo()
	svc := newTestChatService(sessions, characters, echoGenerator())
	ctx := context.Background()

	session, _, err := svc.InitializeSession(ctx, 7, 1)
	require.NoError(t, err)

	got, err := svc.GetSession(session.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)

	_, err = svc.GetSession(session.ID, 99)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.GetSession("missing", 7)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
