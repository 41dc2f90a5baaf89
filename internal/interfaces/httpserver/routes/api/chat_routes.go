package api

import (
	"github.com/gin-gonic/gin"

	"companion-server/services/chat-api/internal/interfaces/httpserver/handlers"
)

func registerChatRoutes(router gin.IRoutes, handler *handlers.ChatHandler) {
	router.POST("/chat", handler.Chat)
	router.GET("/chat/history", handler.History)
}
