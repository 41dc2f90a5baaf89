package entities

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"companion-server/services/chat-api/internal/domain/chat"
)

// Message stores one side of a turn. Content, attachments and tool
// calls are kept as jsonb; attachment rows never contain raw file bytes.
type Message struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime"`

	PublicID        string         `gorm:"type:varchar(50);uniqueIndex;not null"`
	ConversationID  string         `gorm:"type:varchar(50);index;not null"`
	UserID          string         `gorm:"type:varchar(64);index;not null"`
	Role            string         `gorm:"type:varchar(16);not null"`
	Content         datatypes.JSON `gorm:"type:jsonb"`
	PlainText       string         `gorm:"type:text"`
	Attachments     datatypes.JSON `gorm:"type:jsonb"`
	ToolCalls       datatypes.JSON `gorm:"type:jsonb"`
	StructuredData  datatypes.JSON `gorm:"type:jsonb"`
	AudioURL        *string        `gorm:"type:text"`
	IntentType      *string        `gorm:"type:varchar(64)"`
	TTSInstructions *string        `gorm:"type:text"`
	Error           bool           `gorm:"not null;default:false"`
}

// TableName specifies the table name for Message.
func (Message) TableName() string {
	return "messages"
}

// NewSchemaMessage maps the in-memory message to the durable row shape,
// stripping transient attachment bytes along the way.
func NewSchemaMessage(m *chat.Message) (*Message, error) {
	content, err := json.Marshal(m.Content)
	if err != nil {
		return nil, fmt.Errorf("marshal content: %w", err)
	}

	entity := &Message{
		PublicID:       m.ID,
		ConversationID: m.ConversationID,
		UserID:         m.UserID,
		Role:           string(m.Role),
		Content:        datatypes.JSON(content),
		PlainText:      m.PlainText,
		Error:          m.Error,
		CreatedAt:      m.CreatedAt,
	}

	if len(m.Attachments) > 0 {
		data, err := json.Marshal(chat.SanitizeAttachments(m.Attachments))
		if err != nil {
			return nil, fmt.Errorf("marshal attachments: %w", err)
		}
		entity.Attachments = datatypes.JSON(data)
	}
	if len(m.ToolCalls) > 0 {
		data, err := json.Marshal(m.ToolCalls)
		if err != nil {
			return nil, fmt.Errorf("marshal tool calls: %w", err)
		}
		entity.ToolCalls = datatypes.JSON(data)
	}
	if len(m.StructuredData) > 0 {
		entity.StructuredData = datatypes.JSON(m.StructuredData)
	}
	if m.AudioURL != "" {
		entity.AudioURL = &m.AudioURL
	}
	if m.IntentType != "" {
		entity.IntentType = &m.IntentType
	}
	if m.TTSInstructions != "" {
		entity.TTSInstructions = &m.TTSInstructions
	}

	return entity, nil
}

// EtoD converts the database entity back to the domain model.
func (e *Message) EtoD() (*chat.Message, error) {
	msg := &chat.Message{
		ID:             e.PublicID,
		ConversationID: e.ConversationID,
		UserID:         e.UserID,
		Role:           chat.Role(e.Role),
		PlainText:      e.PlainText,
		Error:          e.Error,
		CreatedAt:      e.CreatedAt,
	}

	if len(e.Content) > 0 {
		if err := json.Unmarshal(e.Content, &msg.Content); err != nil {
			return nil, fmt.Errorf("unmarshal content: %w", err)
		}
	}
	if len(e.Attachments) > 0 {
		if err := json.Unmarshal(e.Attachments, &msg.Attachments); err != nil {
			return nil, fmt.Errorf("unmarshal attachments: %w", err)
		}
	}
	if len(e.ToolCalls) > 0 {
		if err := json.Unmarshal(e.ToolCalls, &msg.ToolCalls); err != nil {
			return nil, fmt.Errorf("unmarshal tool calls: %w", err)
		}
	}
	if len(e.StructuredData) > 0 {
		msg.StructuredData = json.RawMessage(e.StructuredData)
	}
	if e.AudioURL != nil {
		msg.AudioURL = *e.AudioURL
	}
	if e.IntentType != nil {
		msg.IntentType = *e.IntentType
	}
	if e.TTSInstructions != nil {
		msg.TTSInstructions = *e.TTSInstructions
	}

	return msg, nil
}
