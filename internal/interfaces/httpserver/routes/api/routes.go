package api

import (
	"github.com/gin-gonic/gin"

	"companion-server/services/chat-api/internal/interfaces/httpserver/handlers"
)

// Routes encapsulates route registration under the /api prefix.
type Routes struct {
	handlers *handlers.Provider
}

// NewRoutes builds the api route registrar.
func NewRoutes(handlerProvider *handlers.Provider) *Routes {
	return &Routes{
		handlers: handlerProvider,
	}
}

// Register attaches all api routes under the /api prefix.
func (r *Routes) Register(engine *gin.Engine, middleware ...gin.HandlerFunc) {
	group := engine.Group("/api", middleware...)
	registerChatRoutes(group, r.handlers.Chat)
}
