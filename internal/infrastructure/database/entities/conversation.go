package entities

import (
	"time"

	"companion-server/services/chat-api/internal/domain/conversation"
)

// Conversation represents the database schema for conversations. The
// unique index on user_id backs the one-conversation-per-user rule and
// settles concurrent first-turn creation races at the store.
type Conversation struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	PublicID string `gorm:"type:varchar(50);uniqueIndex;not null"`
	UserID   string `gorm:"type:varchar(64);uniqueIndex;not null"`
	Title    string `gorm:"type:varchar(256)"`

	Messages []Message `gorm:"foreignKey:ConversationID;references:PublicID"`
}

// TableName specifies the table name for Conversation.
func (Conversation) TableName() string {
	return "conversations"
}

// EtoD converts the database entity to the domain model.
func (c *Conversation) EtoD() *conversation.Conversation {
	return &conversation.Conversation{
		ID:        c.ID,
		PublicID:  c.PublicID,
		UserID:    c.UserID,
		Title:     c.Title,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// NewSchemaConversation creates a database entity from the domain model.
func NewSchemaConversation(c *conversation.Conversation) *Conversation {
	return &Conversation{
		ID:       c.ID,
		PublicID: c.PublicID,
		UserID:   c.UserID,
		Title:    c.Title,
	}
}
