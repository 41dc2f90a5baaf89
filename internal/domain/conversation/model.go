package conversation

import "time"

// DefaultTitle is assigned to conversations created lazily on first turn.
const DefaultTitle = "New conversation"

// Conversation is the single chat thread owned by a user. The product
// keeps at most one active conversation per user; lookup is by user id,
// never by conversation id.
type Conversation struct {
	ID        uint   `json:"-"`
	PublicID  string `json:"id"`
	UserID    string `json:"-"`
	Title     string `json:"title,omitempty"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
