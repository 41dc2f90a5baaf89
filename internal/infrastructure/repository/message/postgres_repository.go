package message

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"companion-server/services/chat-api/internal/domain/chat"
	"companion-server/services/chat-api/internal/infrastructure/database/entities"
)

// Repository persists chat messages.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a message repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// SaveMessage inserts one message row.
func (r *Repository) SaveMessage(ctx context.Context, msg *chat.Message) error {
	entity, err := entities.NewSchemaMessage(msg)
	if err != nil {
		return fmt.Errorf("map message: %w", err)
	}
	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// ListByConversationID returns a conversation's messages in insertion
// order.
func (r *Repository) ListByConversationID(ctx context.Context, conversationID string) ([]*chat.Message, error) {
	var rows []entities.Message
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	messages := make([]*chat.Message, 0, len(rows))
	for i := range rows {
		msg, err := rows[i].EtoD()
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, nil
}
