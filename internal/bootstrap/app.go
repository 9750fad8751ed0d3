package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"kbagent/internal/app"
	"kbagent/internal/config"
	"kbagent/internal/embedding"
	"kbagent/internal/memory"
	"kbagent/internal/model"
	mysqlClient "kbagent/internal/platform/mysql"
	rabbitmqClient "kbagent/internal/platform/rabbitmq"
	redisClient "kbagent/internal/platform/redis"
	"kbagent/internal/repository"
	"kbagent/internal/retrieval"
	"kbagent/internal/worker"
)

type App struct {
	Config *config.Config
	MySQL  *gorm.DB
	Redis  *redis.Client
	MQConn *amqp.Connection

	Provider      embedding.Provider
	IngestService *app.IngestService
	AskService    *app.AskService
	ReindexWorker *worker.ReindexWorker

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
		&model.Manual{},
		&model.Answer{},
		&model.ProcessedManual{},
		&model.ManualImage{},
		&model.Conversation{},
		&model.Turn{},
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

	provider, err := NewProvider(cfg.Embedding)
	if err != nil {
		return nil, err
	}

	manualRepo := repository.NewManualRepository(mysqlDB)
	answerRepo := repository.NewAnswerRepository(mysqlDB)
	processedRepo := repository.NewProcessedManualRepository(mysqlDB)
	convRepo := repository.NewConversationRepository(mysqlDB)

	turnCache := memory.NewTurnCache(
		redisCli,
		time.Duration(cfg.Memory.TurnsTTLSeconds)*time.Second,
		time.Duration(cfg.Memory.DirtyTTLSeconds)*time.Second,
	)
	memoryService := memory.NewService(convRepo, turnCache)

	orchestrator := retrieval.NewOrchestrator(provider, answerRepo, processedRepo, manualRepo, retrieval.Options{
		MinSimilarity: cfg.Retrieval.MinSimilarity,
		TopK:          cfg.Retrieval.TopK,
	})

	ingestService := app.NewIngestService(manualRepo, answerRepo, processedRepo, provider)
	askService := app.NewAskService(orchestrator, memoryService, cfg.Memory.WindowPairs, cfg.Retrieval.ContextCharLimit)

	reindexWorker := worker.NewReindexWorker(mqConn, ingestService, cfg.RabbitMQ.ReindexQueue)
	if err := reindexWorker.Start(ctx); err != nil {
		return nil, fmt.Errorf("start reindex worker failed: %w", err)
	}

	return &App{
		Config:        cfg,
		MySQL:         mysqlDB,
		Redis:         redisCli,
		MQConn:        mqConn,
		Provider:      provider,
		IngestService: ingestService,
		AskService:    askService,
		ReindexWorker: reindexWorker,
		StartedAt:     time.Now(),
	}, nil
}

// NewProvider builds the configured embedding provider. The instance is
// owned by the orchestrator and services it is injected into; nothing here
// is a process global.
func NewProvider(cfg config.EmbeddingConfig) (embedding.Provider, error) {
	switch cfg.Provider {
	case "", "openai":
		return embedding.NewOpenAIProvider(embedding.OpenAIConfig{
			BaseURL:       cfg.BaseURL,
			APIKey:        cfg.APIKey,
			Model:         cfg.Model,
			Dimension:     cfg.Dimension,
			Timeout:       time.Duration(cfg.TimeoutSeconds) * time.Second,
			MaxInputChars: cfg.MaxInputChars,
		}), nil
	case "onnx":
		return embedding.NewONNXProvider(embedding.ONNXConfig{
			ModelPath:     cfg.ONNXModelPath,
			TokenizerPath: cfg.ONNXTokenizerPath,
			SharedLibPath: cfg.ONNXSharedLibPath,
			Dimension:     cfg.Dimension,
			MaxInputChars: cfg.MaxInputChars,
		}), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

func (a *App) Close() error {
	var closeErr error
	if a.ReindexWorker != nil {
		a.ReindexWorker.Close()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
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
