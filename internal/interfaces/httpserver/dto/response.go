package dto

import (
	"encoding/json"
	"time"

	"companion-server/services/chat-api/internal/domain/chat"
)

// MessagePayload is the JSON shape of a persisted message on the
// history endpoint.
type MessagePayload struct {
	ID              string                `json:"id"`
	ConversationID  string                `json:"conversationId"`
	Role            string                `json:"role"`
	Content         []chat.ContentPart    `json:"content,omitempty"`
	PlainText       string                `json:"text,omitempty"`
	Attachments     []chat.Attachment     `json:"attachments,omitempty"`
	ToolCalls       []chat.ToolCallRecord `json:"toolCalls,omitempty"`
	StructuredData  json.RawMessage       `json:"structuredData,omitempty"`
	AudioURL        string                `json:"audioUrl,omitempty"`
	IntentType      string                `json:"intentType,omitempty"`
	TTSInstructions string                `json:"ttsInstructions,omitempty"`
	Error           bool                  `json:"error"`
	Timestamp       time.Time             `json:"timestamp"`
}

// FromDomain maps a domain message to its wire shape.
func FromDomain(m *chat.Message) MessagePayload {
	return MessagePayload{
		ID:              m.ID,
		ConversationID:  m.ConversationID,
		Role:            string(m.Role),
		Content:         m.Content,
		PlainText:       m.PlainText,
		Attachments:     chat.SanitizeAttachments(m.Attachments),
		ToolCalls:       m.ToolCalls,
		StructuredData:  m.StructuredData,
		AudioURL:        m.AudioURL,
		IntentType:      m.IntentType,
		TTSInstructions: m.TTSInstructions,
		Error:           m.Error,
		Timestamp:       m.CreatedAt,
	}
}

// FromDomainList maps a slice of domain messages.
func FromDomainList(msgs []*chat.Message) []MessagePayload {
	out := make([]MessagePayload, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, FromDomain(m))
	}
	return out
}
