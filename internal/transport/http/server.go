package http

import (
	"time"

	"github.com/gin-gonic/gin"

	appsvc "thucydides/internal/app"
	"thucydides/internal/bootstrap"
	"thucydides/internal/cache"
	"thucydides/internal/platform/rabbitmq"
	"thucydides/internal/repository"
	"thucydides/internal/transport/http/handler"
	"thucydides/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	userRepo := repository.NewUserRepository(app.MySQL)
	projectRepo := repository.NewProjectRepository(app.MySQL)
	figureRepo := repository.NewFigureRepository(app.MySQL)
	sessionRepo := repository.NewDialogueSessionRepository(app.MySQL)
	messageRepo := repository.NewMessageRepository(app.MySQL)

	historyCache := cache.NewHistoryCache(
		app.Redis,
		time.Duration(app.Config.Redis.HistoryTTLSeconds)*time.Second,
		time.Duration(app.Config.Redis.HistoryDirtyTTLSeconds)*time.Second,
	)
	turnPublisher := rabbitmq.NewTurnPublisher(app.MQConn, app.Config.RabbitMQ.TurnPersistQueue)

	authService := appsvc.NewAuthService(
		userRepo,
		projectRepo,
		app.Config.Auth.JWTSecret,
		time.Duration(app.Config.Auth.JWTExpireMinute)*time.Minute,
	)
	responder := appsvc.NewResponder(app.AI, app.Vector, app.AI)
	resolver := appsvc.NewResolver(app.AI)
	dialogueService := appsvc.NewDialogueService(
		sessionRepo,
		messageRepo,
		figureRepo,
		userRepo,
		responder,
		turnPublisher,
		historyCache,
		20,
	)
	figureService := appsvc.NewFigureService(figureRepo, resolver)

	authHandler := handler.NewAuthHandler(authService)
	figureHandler := handler.NewFigureHandler(figureService)
	dialogueHandler := handler.NewDialogueHandler(dialogueService)

	v1 := router.Group("/api/v1")
	authGroup := v1.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/me", middleware.AuthJWT(app.Config.Auth.JWTSecret), authHandler.Me)

	figureGroup := v1.Group("/figures")
	figureGroup.Use(middleware.AuthJWT(app.Config.Auth.JWTSecret))
	figureGroup.GET("/featured", figureHandler.Featured)
	figureGroup.GET("/archive", figureHandler.Archive)
	figureGroup.GET("/:id", figureHandler.Detail)
	figureGroup.POST("/search", figureHandler.Search)

	dialogueGroup := v1.Group("/dialogues")
	dialogueGroup.Use(middleware.AuthJWT(app.Config.Auth.JWTSecret))
	dialogueGroup.POST("/start", dialogueHandler.Start)
	dialogueGroup.POST("/:id/chat", dialogueHandler.Chat)
	dialogueGroup.GET("", dialogueHandler.ListSessions)
	dialogueGroup.GET("/recent", dialogueHandler.Recent)
	dialogueGroup.GET("/:id/messages", dialogueHandler.Messages)

	return router
}
