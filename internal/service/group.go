package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ai-roleplay-platform/backend/internal/models"
	"ai-roleplay-platform/backend/internal/notify"
	"ai-roleplay-platform/backend/internal/prompt"
	"ai-roleplay-platform/backend/internal/repository"
	"ai-roleplay-platform/backend/pkg/cache"
	"ai-roleplay-platform/backend/pkg/logger"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

// ParticipantInfo is the display identity of a message sender, resolved from
// either a persona or a user account.
type ParticipantInfo struct {
	ID        uint   `json:"id"`
	Kind      string `json:"kind"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

// AvailableParticipants is the selectable universe for group composition.
type AvailableParticipants struct {
	Characters []models.Character `json:"characters"`
	Friends    []models.User      `json:"users"`
}

// GroupService generalizes the chat controller to N humans and M characters
// sharing one ordered log.
type GroupService struct {
	groups       repository.GroupRepository
	characters   repository.CharacterRepository
	users        repository.UserRepository
	personas     *CharacterService
	userService  *UserService
	generator    Generator
	notifier     notify.Notifier
	participants *cache.Cache
	log          *logger.Logger
	locks        *sessionLocks
}

func NewGroupService(
	groups repository.GroupRepository,
	characters repository.CharacterRepository,
	users repository.UserRepository,
	personas *CharacterService,
	userService *UserService,
	generator Generator,
	notifier notify.Notifier,
	participants *cache.Cache,
	log *logger.Logger,
) *GroupService {
	return &GroupService{
		groups:       groups,
		characters:   characters,
		users:        users,
		personas:     personas,
		userService:  userService,
		generator:    generator,
		notifier:     notifier,
		participants: participants,
		log:          log,
		locks:        newSessionLocks(),
	}
}

// CreateGroup validates composition bounds and membership and creates the
// group. The creator always counts as a member.
func (s *GroupService) CreateGroup(ctx context.Context, creatorID uint, req *models.CreateGroupRequest) (*models.GroupSession, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: group name is required", ErrValidation)
	}

	characterIDs := lo.Uniq(req.CharacterIDs)
	if len(characterIDs) < 1 || len(characterIDs) > models.GroupMaxCharacters {
		return nil, fmt.Errorf("%w: a group needs between 1 and %d characters", ErrValidation, models.GroupMaxCharacters)
	}

	userIDs := lo.Uniq(append([]uint{creatorID}, req.UserIDs...))
	if len(userIDs) > models.GroupMaxUsers {
		return nil, fmt.Errorf("%w: a group can hold at most %d users", ErrValidation, models.GroupMaxUsers)
	}

	characters, err := s.characters.GetManyByIDs(characterIDs)
	if err != nil {
		return nil, err
	}
	for _, id := range characterIDs {
		found, ok := lo.Find(characters, func(c models.Character) bool { return c.ID == id })
		if !ok || !found.Active {
			return nil, fmt.Errorf("%w: character %d does not exist or is inactive", ErrValidation, id)
		}
	}

	members, err := s.users.GetManyByIDs(userIDs)
	if err != nil {
		return nil, err
	}
	for _, id := range userIDs {
		found, ok := lo.Find(members, func(u models.User) bool { return u.ID == id })
		if !ok || !found.Active {
			return nil, fmt.Errorf("%w: user %d does not exist or is inactive", ErrValidation, id)
		}
	}

	group := &models.GroupSession{
		ID:           uuid.NewString(),
		CreatorID:    creatorID,
		Name:         name,
		UserIDs:      userIDs,
		CharacterIDs: characterIDs,
		History:      models.GroupMessageList{},
		Active:       true,
	}
	if err := s.groups.Create(group); err != nil {
		return nil, err
	}

	s.notifier.Emit(ctx, notify.Event{
		Type:      notify.EventGroupCreated,
		SessionID: group.ID,
		Payload:   map[string]any{"creator_id": creatorID, "name": name},
		Timestamp: time.Now(),
	})

	return group, nil
}

// ListAvailableParticipants returns the characters and friends the caller
// can compose a group from.
func (s *GroupService) ListAvailableParticipants(userID uint) (*AvailableParticipants, error) {
	characters, err := s.personas.ListPublicCharacters()
	if err != nil {
		return nil, err
	}

	friends, err := s.userService.ListFriends(userID)
	if err != nil {
		return nil, err
	}

	return &AvailableParticipants{Characters: characters, Friends: friends}, nil
}

// GetGroup loads a group for shared-read display by one of its members.
func (s *GroupService) GetGroup(groupID string, userID uint) (*models.GroupSession, error) {
	group, err := s.loadActiveGroup(groupID)
	if err != nil {
		return nil, err
	}
	if !group.UserIDs.Contains(userID) {
		return nil, ErrNotAMember
	}
	return group, nil
}

// ListGroups returns the caller's active groups.
func (s *GroupService) ListGroups(userID uint) ([]models.GroupSession, error) {
	return s.groups.ListByMember(userID)
}

// Deactivate soft-deletes a group. Only the creator may do this.
func (s *GroupService) Deactivate(ctx context.Context, groupID string, userID uint) error {
	release := s.locks.acquire(groupID)
	defer release()

	group, err := s.loadActiveGroup(groupID)
	if err != nil {
		return err
	}
	if group.CreatorID != userID {
		return ErrForbidden
	}

	group.Active = false
	return s.groups.Save(group)
}

// PostGroupMessage appends the sender's message and then dispatches one
// reply per group character, in persona-list order. Each character's prompt
// is assembled from the history as it stands when their turn comes, so later
// characters see and can react to earlier replies from the same turn. The
// history is persisted after each completed generation step; a provider
// failure mid-turn leaves the completed prefix persisted and surfaces the
// error.
func (s *GroupService) PostGroupMessage(ctx context.Context, groupID string, senderID uint, text string) (models.GroupMessageList, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	release := s.locks.acquire(groupID)
	defer release()

	group, err := s.loadActiveGroup(groupID)
	if err != nil {
		return nil, err
	}
	if !group.UserIDs.Contains(senderID) {
		return nil, ErrNotAMember
	}

	userMessage := models.GroupMessage{
		ID:         uuid.NewString(),
		SenderID:   senderID,
		SenderKind: models.SenderKindUser,
		Content:    text,
		Timestamp:  time.Now(),
	}
	group.History = append(group.History, userMessage)
	persisted := false

	for _, characterID := range group.CharacterIDs {
		character, err := s.personas.GetActiveCharacter(characterID)
		if err != nil {
			if errors.Is(err, ErrCharacterNotFound) {
				// Deactivated since the group was composed; skip its turn.
				s.log.Warn("skipping inactive group character", "group_id", group.ID, "character_id", characterID)
				continue
			}
			return nil, err
		}

		turns, err := s.groupTurns(group.History)
		if err != nil {
			return nil, err
		}

		payload := prompt.Assemble(
			PromptPersona(character),
			turns[:len(turns)-1],
			turns[len(turns)-1],
		)

		reply, err := s.generator.Generate(ctx, payload, character.Name)
		if err != nil {
			// Nothing was persisted for this turn unless an earlier
			// character already completed; the stored prefix stays as-is
			// either way and the caller rolls back its optimistic message.
			return nil, err
		}

		group.History = append(group.History, models.GroupMessage{
			ID:         uuid.NewString(),
			SenderID:   character.ID,
			SenderKind: models.SenderKindCharacter,
			Content:    reply,
			Timestamp:  time.Now(),
		})

		if err := s.groups.Save(group); err != nil {
			return nil, err
		}
		persisted = true

		s.notifier.Emit(ctx, notify.Event{
			Type:      notify.EventGroupMessageAppended,
			SessionID: group.ID,
			Payload:   map[string]any{"messages": group.History[len(group.History)-2:]},
			Timestamp: time.Now(),
		})
	}

	if !persisted {
		// Every character was skipped; persist the human message alone so
		// the shared log still reflects it.
		if err := s.groups.Save(group); err != nil {
			return nil, err
		}
	}

	return group.History, nil
}

// ResolveParticipants maps every sender appearing in the group's history to
// its display identity, using the read-through cache.
func (s *GroupService) ResolveParticipants(group *models.GroupSession) (map[string]ParticipantInfo, error) {
	resolved := make(map[string]ParticipantInfo)
	for _, msg := range group.History {
		key := participantKey(msg.SenderKind, msg.SenderID)
		if _, ok := resolved[key]; ok {
			continue
		}
		info, err := s.participantInfo(msg.SenderKind, msg.SenderID)
		if err != nil {
			return nil, err
		}
		resolved[key] = info
	}
	return resolved, nil
}

// loadActiveGroup treats deactivated groups the same as missing ones.
func (s *GroupService) loadActiveGroup(groupID string) (*models.GroupSession, error) {
	group, err := s.groups.GetByID(groupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}
	if !group.Active {
		return nil, ErrGroupNotFound
	}
	return group, nil
}

// groupTurns renders the shared history with each sender's display name so
// characters can tell the participants apart.
func (s *GroupService) groupTurns(history models.GroupMessageList) ([]prompt.Turn, error) {
	turns := make([]prompt.Turn, len(history))
	for i, msg := range history {
		info, err := s.participantInfo(msg.SenderKind, msg.SenderID)
		if err != nil {
			return nil, err
		}
		turns[i] = prompt.Turn{
			Speaker:   info.Name,
			FromHuman: msg.SenderKind == models.SenderKindUser,
			Content:   msg.Content,
		}
	}
	return turns, nil
}

// participantInfo is a read-through lookup from (kind, id) to display
// identity, memoized so long histories with few senders stay cheap.
func (s *GroupService) participantInfo(kind string, id uint) (ParticipantInfo, error) {
	key := participantKey(kind, id)
	if cached, ok := s.participants.Get(key); ok {
		return cached.(ParticipantInfo), nil
	}

	var info ParticipantInfo
	switch kind {
	case models.SenderKindCharacter:
		character, err := s.characters.GetByID(id)
		if err != nil {
			return ParticipantInfo{}, err
		}
		info = ParticipantInfo{ID: id, Kind: kind, Name: character.Name, AvatarURL: character.AvatarURL}
	case models.SenderKindUser:
		user, err := s.users.GetByID(id)
		if err != nil {
			return ParticipantInfo{}, err
		}
		info = ParticipantInfo{ID: id, Kind: kind, Name: user.Name, AvatarURL: user.AvatarURL}
	default:
		return ParticipantInfo{}, fmt.Errorf("unknown sender kind %q", kind)
	}

	s.participants.Set(key, info)
	return info, nil
}

func participantKey(kind string, id uint) string {
	return fmt.Sprintf("%s:%d", kind, id)
}
