package handlers

import (
	"github.com/rs/zerolog"

	"companion-server/services/chat-api/internal/config"
	"companion-server/services/chat-api/internal/domain/chat"
)

// Provider wires all HTTP handlers for dependency injection.
type Provider struct {
	Chat *ChatHandler
}

// NewProvider constructs the handler provider with domain services.
func NewProvider(chatService chat.Service, cfg *config.Config, log zerolog.Logger) *Provider {
	return &Provider{
		Chat: NewChatHandler(chatService, cfg, log),
	}
}
