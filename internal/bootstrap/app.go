package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"clonehub/internal/ai"
	appsvc "clonehub/internal/app"
	"clonehub/internal/apperr"
	"clonehub/internal/cache"
	"clonehub/internal/config"
	mysqlClient "clonehub/internal/platform/mysql"
	rabbitmqClient "clonehub/internal/platform/rabbitmq"
	redisClient "clonehub/internal/platform/redis"
	"clonehub/internal/repository"
	"clonehub/internal/worker"
)

type App struct {
	Config *config.Config
	Logger *zap.Logger
	MySQL  *gorm.DB
	Redis  *redis.Client
	MQConn *amqp.Connection

	StatusWorker *worker.DocumentStatusWorker

	Clones       *appsvc.CloneService
	Documents    *appsvc.DocumentService
	Chat         *appsvc.ChatService
	Interactions *appsvc.InteractionLog

	// HealthChecks probes each backing dependency by name.
	HealthChecks map[string]func(ctx context.Context) error

	StartedAt time.Time
}

func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger, StartedAt: time.Now()}

	gateway, err := ai.NewClient(ai.Config{
		BaseURL:     cfg.AIService.BaseURL,
		APIKey:      cfg.AIService.APIKey,
		Timeout:     cfg.AIService.Timeout(),
		MaxAttempts: cfg.AIService.MaxAttempts,
	}, logger)
	if err != nil {
		return nil, err
	}

	mysqlDB, err := mysqlClient.New(ctx, cfg.MySQLDSN(), cfg.App.GinMode == "debug")
	if err != nil {
		return nil, err
	}
	a.MySQL = mysqlDB
	if err := mysqlClient.Migrate(mysqlDB); err != nil {
		_ = a.Close()
		return nil, err
	}

	redisCli, err := redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Redis = redisCli

	mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.DocumentStatusQueue)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.MQConn = mqConn

	cloneRepo := repository.NewCloneRepository(mysqlDB)
	documentRepo := repository.NewCloneDocumentRepository(mysqlDB)
	interactionRepo := repository.NewInteractionRepository(mysqlDB)
	cloneCache := cache.NewCloneCache(redisCli, cfg.Clone.CacheTTL(), 5*time.Second)
	publisher := rabbitmqClient.NewStatusPublisher(mqConn, cfg.RabbitMQ.DocumentStatusQueue)

	a.Clones = appsvc.NewCloneService(cloneRepo, cloneCache, logger)
	a.Documents = appsvc.NewDocumentService(cloneRepo, documentRepo, gateway, cloneCache, publisher, appsvc.DocumentServiceConfig{
		IndexName:      cfg.AIService.IndexName,
		MaxUploadBytes: cfg.Clone.MaxUploadBytes(),
	}, logger)
	a.Interactions = appsvc.NewInteractionLog(interactionRepo)
	a.Chat = appsvc.NewChatService(a.Clones, gateway, a.Interactions, appsvc.ChatServiceConfig{
		IndexName:  cfg.AIService.IndexName,
		MaxHistory: cfg.Clone.MaxHistory,
	}, logger)

	a.StatusWorker = worker.NewDocumentStatusWorker(mqConn, a.Documents, cfg.RabbitMQ.DocumentStatusQueue, logger)
	if err := a.StatusWorker.Start(ctx); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("start document status worker failed: %w", err)
	}

	a.HealthChecks = map[string]func(ctx context.Context) error{
		"mysql": func(ctx context.Context) error { return mysqlClient.Ping(ctx, mysqlDB) },
		"redis": func(ctx context.Context) error { return redisClient.Ping(ctx, redisCli) },
		"rabbitmq": func(context.Context) error {
			return rabbitmqClient.Ping(mqConn)
		},
		"ai_service": func(ctx context.Context) error {
			if _, err := gateway.CheckHealth(ctx); err != nil {
				return errors.New(apperr.PublicMessage(err))
			}
			return nil
		},
	}
	return a, nil
}

func (a *App) Close() error {
	var closeErr error
	if a.StatusWorker != nil {
		a.StatusWorker.Close()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MQConn != nil && !a.MQConn.IsClosed() {
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
