package router

import (
	"ai-roleplay-platform/backend/internal/api"
	"ai-roleplay-platform/backend/pkg/config"
	"ai-roleplay-platform/backend/pkg/di"
	"ai-roleplay-platform/backend/pkg/errors"
	"ai-roleplay-platform/backend/pkg/jwt"
	"ai-roleplay-platform/backend/pkg/logger"
	"ai-roleplay-platform/backend/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// Router is the main router for the application
type Router struct {
	Engine    *gin.Engine
	Container *di.Container
	Logger    *logger.Logger
	Config    *config.Config
}

// New creates a new router with the given container
func New(container *di.Container, cfg *config.Config) *Router {
	logger.SetGlobal(container.Logger)

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// Logger middleware first so every request is captured
	engine.Use(logger.Middleware(container.Logger))
	engine.Use(errors.ErrorHandler())
	engine.Use(errors.RecoveryWithLogger())
	engine.Use(middleware.RequestIDMiddleware())

	rateLimiter := middleware.NewRateLimiter(container.Logger)
	engine.Use(rateLimiter.Middleware())

	go container.Hub.Run()

	return &Router{
		Engine:    engine,
		Container: container,
		Logger:    container.Logger,
		Config:    cfg,
	}
}

// SetupRoutes registers all application routes
func (r *Router) SetupRoutes() {
	r.Engine.Use(corsMiddleware())

	jwtAuth := middleware.JWTAuthMiddleware(r.Container.JWTService, r.Logger)

	authHandler := api.NewAuthHandler(r.Container.UserService, r.Logger)
	characterHandler := api.NewCharacterHandler(r.Container.CharacterService, r.Logger)
	sessionHandler := api.NewSessionHandler(r.Container.ChatService, r.Logger)
	groupHandler := api.NewGroupHandler(r.Container.GroupService, r.Logger)
	friendHandler := api.NewFriendHandler(r.Container.UserService, r.Logger)

	r.setupHealthRoutes()

	// API version 1 routes
	v1 := r.Engine.Group("/api/v1")

	// Public routes (no auth required)
	publicRoutes := v1.Group("/")
	{
		authRoutes := publicRoutes.Group("/auth")
		{
			authRoutes.POST("/signup", authHandler.Signup)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.GET("/me", jwtAuth, authHandler.Me)
		}
	}

	// Protected routes (require authentication)
	protectedRoutes := v1.Group("/")
	protectedRoutes.Use(jwtAuth)
	{
		// User management routes (admin only)
		adminRoutes := protectedRoutes.Group("/admin")
		adminRoutes.Use(middleware.RequireRole(jwt.RoleAdmin))
		{
			adminRoutes.PUT("/users/:id/role", authHandler.UpdateUserRole)
		}

		characterRoutes := protectedRoutes.Group("/characters")
		{
			characterRoutes.GET("", characterHandler.List)
			characterRoutes.GET("/:id", characterHandler.Get)
			characterRoutes.POST("", middleware.RequirePermission(jwt.PermissionManageCharacters), characterHandler.Create)
		}

		sessionRoutes := protectedRoutes.Group("/sessions")
		{
			sessionRoutes.POST("", sessionHandler.Bootstrap)
			sessionRoutes.GET("", sessionHandler.List)
			sessionRoutes.GET("/:id/messages", sessionHandler.GetMessages)
			sessionRoutes.POST("/:id/messages", sessionHandler.PostMessage)
		}

		groupRoutes := protectedRoutes.Group("/groups")
		{
			// "/available" must be registered before "/:id"
			groupRoutes.GET("/available", groupHandler.ListAvailable)
			groupRoutes.POST("", groupHandler.Create)
			groupRoutes.GET("", groupHandler.List)
			groupRoutes.GET("/:id", groupHandler.Get)
			groupRoutes.POST("/:id/messages", groupHandler.PostMessage)
			groupRoutes.DELETE("/:id", groupHandler.Deactivate)
		}

		friendRoutes := protectedRoutes.Group("/friends")
		{
			friendRoutes.GET("", friendHandler.List)
			friendRoutes.POST("/requests", friendHandler.Request)
			friendRoutes.PUT("/requests/:id/accept", friendHandler.Accept)
		}
	}

	// WebSocket event stream
	r.Engine.GET("/ws", r.Container.Hub.HandleConnection)
}

// corsMiddleware allows browser clients, including WebSocket upgrades
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept, Accept-Encoding, X-CSRF-Token, Authorization, Origin, Upgrade, Connection, Cache-Control")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Upgrade, Connection")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
