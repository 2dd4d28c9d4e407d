package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/campusmarket/marketplace/services/messaging-api/internal/interfaces/httpserver/handlers"
)

func registerConversationRoutes(router *gin.RouterGroup, handler *handlers.ConversationHandler) {
	conversations := router.Group("/conversations")
	conversations.GET("", handler.List)
	conversations.POST("", handler.Create)
	conversations.GET("/:conversation_id/messages", handler.ListMessages)
	conversations.POST("/:conversation_id/messages", handler.CreateMessage)
	conversations.GET("/:conversation_id/summary", handler.Summary)
	conversations.DELETE("/:conversation_id", handler.Delete)
}
