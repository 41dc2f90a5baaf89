package conversation

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no conversation row exists for a user.
// It is the only lookup failure the resolver tolerates.
var ErrNotFound = errors.New("conversation not found")

// Repository persists conversation metadata.
type Repository interface {
	// FindByUserID fetches the user's conversation or ErrNotFound.
	FindByUserID(ctx context.Context, userID string) (*Conversation, error)

	// Create inserts the conversation row. The store enforces a unique
	// index on user_id; a duplicate-key insert means a concurrent first
	// turn won the race, and Create returns the winning row instead.
	Create(ctx context.Context, conv *Conversation) (*Conversation, error)
}
