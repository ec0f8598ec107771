package http

import (
	"time"

	"github.com/gin-gonic/gin"

	appsvc "learnpilot-rag/internal/app"
	"learnpilot-rag/internal/bootstrap"
	"learnpilot-rag/internal/cache"
	"learnpilot-rag/internal/platform/rabbitmq"
	"learnpilot-rag/internal/repository"
	"learnpilot-rag/internal/retrieve"
	"learnpilot-rag/internal/transport/http/handler"
	"learnpilot-rag/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(middleware.RequestID(), gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	docRepo := repository.NewDocumentRepository(app.MySQL)
	eventRepo := repository.NewIngestionEventRepository(app.MySQL)
	publisher := rabbitmq.NewEventPublisher(app.MQConn, app.Config.RabbitMQ.IngestEventQueue)

	ingestService := appsvc.NewIngestService(
		app.Stager,
		app.Registry,
		app.Store,
		docRepo,
		eventRepo,
		publisher,
		app.Embedder.ID(),
		time.Duration(app.Config.RAG.ExtractTimeoutSeconds)*time.Second,
	)

	embedCache := cache.NewEmbeddingCache(
		app.Redis,
		time.Duration(app.Config.Redis.EmbeddingTTLSeconds)*time.Second,
	)
	retriever := retrieve.NewRetriever(app.Embedder, app.Store, embedCache, app.Config.RAG.TopK)
	queryService := appsvc.NewQueryService(retriever, app.Router, app.Config.RAG.TopK)
	chatService := appsvc.NewChatService(app.Router)

	documentHandler := handler.NewDocumentHandler(ingestService)
	chatHandler := handler.NewChatHandler(queryService, chatService)

	v1 := router.Group("/api/v1")
	docGroup := v1.Group("/documents")
	docGroup.POST("", documentHandler.Upload)
	docGroup.GET("", documentHandler.List)
	docGroup.DELETE("/:id", documentHandler.Delete)
	docGroup.POST("/:id/reindex", documentHandler.Reindex)
	docGroup.GET("/:id/events", documentHandler.Events)

	v1.POST("/chat", chatHandler.Send)

	return router
}
