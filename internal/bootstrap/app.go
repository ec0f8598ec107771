package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"learnpilot-rag/internal/ai"
	"learnpilot-rag/internal/config"
	"learnpilot-rag/internal/extract"
	"learnpilot-rag/internal/index"
	"learnpilot-rag/internal/model"
	mysqlClient "learnpilot-rag/internal/platform/mysql"
	rabbitmqClient "learnpilot-rag/internal/platform/rabbitmq"
	redisClient "learnpilot-rag/internal/platform/redis"
	"learnpilot-rag/internal/repository"
	"learnpilot-rag/internal/storage"
	"learnpilot-rag/internal/worker"
)

type App struct {
	Config      *config.Config
	MySQL       *gorm.DB
	Redis       *redis.Client
	MQConn      *amqp.Connection
	Embedder    *ai.Embedder
	Store       *index.Store
	Router      *ai.Router
	Registry    *extract.Registry
	Stager      *storage.Stager
	EventWorker *worker.IngestEventWorker

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	mysqlDB, err := mysqlClient.New(ctx, cfg.MySQLDSN(), cfg.MySQL.MaxOpenConns, cfg.MySQL.MaxIdleConns)
	if err != nil {
		return nil, err
	}
	if err := mysqlDB.AutoMigrate(&model.Document{}, &model.IngestionEvent{}); err != nil {
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

	embedder, err := newEmbedder(cfg.Embedding)
	if err != nil {
		return nil, err
	}

	store, err := index.NewStore(cfg.RAG.DataDir, cfg.RAG.Collection, embedder)
	if err != nil {
		return nil, err
	}

	chain := ai.BuildChain(ctx, cfg.Providers)
	router := ai.NewBackendRouter(chain, time.Duration(cfg.RAG.GenerateTimeoutSeconds)*time.Second)

	// A nil OCR client means image uploads fail with a clear error
	// instead of blocking startup on a missing vision credential.
	var ocr extract.OCR
	if client := ai.NewOCRFromConfig(ctx, cfg.OCR, cfg.Providers); client != nil {
		ocr = client
	}
	registry := extract.NewRegistry(ocr)

	stager, err := storage.NewStager(cfg.Storage.UploadDir, cfg.Storage.MaxUploadBytes, registry.MediaTypes())
	if err != nil {
		return nil, err
	}

	eventRepo := repository.NewIngestionEventRepository(mysqlDB)
	eventWorker := worker.NewIngestEventWorker(mqConn, eventRepo, cfg.RabbitMQ.IngestEventQueue)
	if err := eventWorker.Start(ctx); err != nil {
		return nil, fmt.Errorf("start ingest event worker failed: %w", err)
	}

	return &App{
		Config:      cfg,
		MySQL:       mysqlDB,
		Redis:       redisCli,
		MQConn:      mqConn,
		Embedder:    embedder,
		Store:       store,
		Router:      router,
		Registry:    registry,
		Stager:      stager,
		EventWorker: eventWorker,
		StartedAt:   time.Now(),
	}, nil
}

func newEmbedder(cfg config.EmbeddingConfig) (*ai.Embedder, error) {
	switch cfg.Backend {
	case "openai":
		return ai.NewOpenAIEmbedder(cfg.BaseURL, cfg.APIKey, cfg.Model)
	case "ollama", "":
		return ai.NewOllamaEmbedder(cfg.BaseURL, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown embedding backend %q", cfg.Backend)
	}
}

func (a *App) Close() error {
	var closeErr error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.EventWorker != nil {
		a.EventWorker.Close()
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
