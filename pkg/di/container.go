package di

import (
	"context"
	"fmt"

	"ai-roleplay-platform/backend/internal/llm"
	"ai-roleplay-platform/backend/internal/notify"
	"ai-roleplay-platform/backend/internal/repository"
	"ai-roleplay-platform/backend/internal/service"
	"ai-roleplay-platform/backend/internal/ws"
	"ai-roleplay-platform/backend/pkg/cache"
	"ai-roleplay-platform/backend/pkg/config"
	"ai-roleplay-platform/backend/pkg/jwt"
	"ai-roleplay-platform/backend/pkg/logger"
	"ai-roleplay-platform/backend/pkg/secrets"

	"gorm.io/gorm"
)

// Container holds all the dependencies for the application
type Container struct {
	DB               *gorm.DB
	Logger           *logger.Logger
	JWTService       *jwt.Service
	CharacterService *service.CharacterService
	UserService      *service.UserService
	ChatService      *service.ChatService
	GroupService     *service.GroupService
	Gateway          *llm.Gateway
	Hub              *ws.Hub
	RedisNotifier    *notify.RedisNotifier
}

// New wires repositories, services and the event side-channel together.
func New(db *gorm.DB, cfg *config.Config, log *logger.Logger) (*Container, error) {
	secretManager, err := secrets.NewVaultManager(log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize secrets manager: %w", err)
	}
	ctx := context.Background()

	jwtSecret := secretManager.GetSecretWithDefault(ctx, "JWT_SECRET", cfg.JWT.Secret)
	jwtService := jwt.NewService(jwtSecret, cfg.JWT.Expiry)

	characterRepo := repository.NewGormCharacterRepository(db)
	userRepo := repository.NewGormUserRepository(db)
	sessionRepo := repository.NewGormSessionRepository(db)
	groupRepo := repository.NewGormGroupRepository(db)

	gateway, err := llm.New(llm.Config{
		APIKey:        secretManager.GetSecretWithDefault(ctx, "OPENAI_API_KEY", cfg.LLM.APIKey),
		BaseURL:       cfg.LLM.BaseURL,
		Model:         cfg.LLM.Model,
		UseLocalModel: cfg.LLM.UseLocalModel,
		LocalModelURL: cfg.LLM.LocalModelURL,
		Timeout:       cfg.LLM.Timeout,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create language model gateway: %w", err)
	}

	hub := ws.NewHub(log)

	sinks := notify.Fanout{hub}
	var redisNotifier *notify.RedisNotifier
	if cfg.Redis.Enabled {
		redisNotifier = notify.NewRedisNotifier(cfg.Redis.Addr, log)
		sinks = append(sinks, redisNotifier)
	}

	characterService := service.NewCharacterService(characterRepo)
	userService := service.NewUserService(userRepo, jwtService)
	chatService := service.NewChatService(sessionRepo, characterService, gateway, sinks, log)
	participantCache := cache.New(cfg.Cache.TTL, cfg.Cache.PurgeWindow, cfg.Cache.MaxSize)
	groupService := service.NewGroupService(groupRepo, characterRepo, userRepo, characterService, userService, gateway, sinks, participantCache, log)

	return &Container{
		DB:               db,
		Logger:           log,
		JWTService:       jwtService,
		CharacterService: characterService,
		UserService:      userService,
		ChatService:      chatService,
		GroupService:     groupService,
		Gateway:          gateway,
		Hub:              hub,
		RedisNotifier:    redisNotifier,
	}, nil
}
