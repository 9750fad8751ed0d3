package http

import (
	"github.com/gin-gonic/gin"

	"kbagent/internal/bootstrap"
	"kbagent/internal/platform/rabbitmq"
	"kbagent/internal/transport/http/handler"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	publisher := rabbitmq.NewReindexPublisher(app.MQConn, app.Config.RabbitMQ.ReindexQueue)
	askHandler := handler.NewAskHandler(app.AskService, app.Config.App.SupportCenterURL)
	manualHandler := handler.NewManualHandler(app.IngestService, publisher)
	conversationHandler := handler.NewConversationHandler(app.AskService)

	v1 := router.Group("/api/v1")
	v1.POST("/ask", askHandler.Ask)

	manuals := v1.Group("/manuals")
	manuals.POST("", manualHandler.Create)
	manuals.GET("", manualHandler.List)
	manuals.DELETE("/:id", manualHandler.Delete)
	manuals.POST("/:id/processed", manualHandler.CreateProcessed)
	manuals.POST("/:id/reindex", manualHandler.Reindex)

	conversations := v1.Group("/conversations")
	conversations.GET("/:session_id", conversationHandler.History)
	conversations.POST("/:session_id/answers", conversationHandler.RecordAnswer)

	return router
}
