package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"thucydides/internal/ai"
	"thucydides/internal/config"
	"thucydides/internal/model"
	mysqlClient "thucydides/internal/platform/mysql"
	rabbitmqClient "thucydides/internal/platform/rabbitmq"
	redisClient "thucydides/internal/platform/redis"
	"thucydides/internal/repository"
	"thucydides/internal/vectorstore/qdrant"
	"thucydides/internal/worker"
)

type App struct {
	Config     *config.Config
	MySQL      *gorm.DB
	Redis      *redis.Client
	MQConn     *amqp.Connection
	Vector     *qdrant.Store
	AI         *ai.Service
	TurnWorker *worker.TurnPersistWorker

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	mysqlDB, err := mysqlClient.New(ctx, cfg.MySQLDSN())
	if err != nil {
		return nil, err
	}
	if err := mysqlDB.AutoMigrate(
		&model.User{},
		&model.Project{},
		&model.Figure{},
		&model.DialogueSession{},
		&model.Message{},
		&model.Citation{},
	); err != nil {
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	redisCli, err := redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}

	mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
	if err != nil {
		return nil, err
	}

	vector := qdrant.New(qdrant.Config{
		URL:        cfg.Qdrant.URL,
		APIKey:     cfg.Qdrant.APIKey,
		Collection: cfg.Qdrant.Collection,
	})
	if err := vector.EnsureCollection(ctx); err != nil {
		return nil, fmt.Errorf("ensure qdrant collection failed: %w", err)
	}

	aiService := ai.NewService(
		ai.NewGeminiClient(),
		ai.GenerationConfig{
			BaseURL: cfg.Gemini.BaseURL,
			APIKey:  cfg.Gemini.APIKey,
			Model:   cfg.Gemini.Model,
		},
		ai.EmbeddingConfig{
			BaseURL: cfg.Gemini.BaseURL,
			APIKey:  cfg.Gemini.APIKey,
			Model:   cfg.Gemini.EmbeddingModel,
		},
	)

	messageRepo := repository.NewMessageRepository(mysqlDB)
	turnWorker := worker.NewTurnPersistWorker(mqConn, messageRepo, cfg.RabbitMQ.TurnPersistQueue)
	if err := turnWorker.Start(ctx); err != nil {
		return nil, fmt.Errorf("start turn persist worker failed: %w", err)
	}

	return &App{
		Config:     cfg,
		MySQL:      mysqlDB,
		Redis:      redisCli,
		MQConn:     mqConn,
		Vector:     vector,
		AI:         aiService,
		TurnWorker: turnWorker,
		StartedAt:  time.Now(),
	}, nil
}

func (a *App) Close() error {
	var closeErr error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.TurnWorker != nil {
		a.TurnWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
