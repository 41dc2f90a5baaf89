package conversation

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	domain "companion-server/services/chat-api/internal/domain/conversation"
	"companion-server/services/chat-api/internal/infrastructure/database/entities"
)

// Repository persists conversation metadata.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a conversation repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByUserID fetches the user's conversation.
func (r *Repository) FindByUserID(ctx context.Context, userID string) (*domain.Conversation, error) {
	var entity entities.Conversation
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("fetch conversation: %w", err)
	}
	return entity.EtoD(), nil
}

// Create inserts the conversation row. The user_id unique index settles
// concurrent first-turn races: a duplicate-key insert re-reads and
// returns the row the winner created.
func (r *Repository) Create(ctx context.Context, conv *domain.Conversation) (*domain.Conversation, error) {
	entity := entities.NewSchemaConversation(conv)

	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return r.FindByUserID(ctx, conv.UserID)
		}
		return nil, fmt.Errorf("create conversation: %w", err)
	}

	conv.ID = entity.ID
	conv.CreatedAt = entity.CreatedAt
	conv.UpdatedAt = entity.UpdatedAt
	return conv, nil
}

var _ domain.Repository = (*Repository)(nil)
