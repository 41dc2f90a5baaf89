package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Role indicates who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ContentPartType discriminates the content part union.
type ContentPartType string

const (
	ContentPartText  ContentPartType = "text"
	ContentPartImage ContentPartType = "input_image"
)

// ContentPart is a tagged union of the message body fragments the
// pipeline understands: plain text or an image reference. All
// consumers switch on Type exhaustively; an unknown tag is an error,
// not a silent passthrough.
type ContentPart struct {
	Type     ContentPartType
	Text     string
	ImageURL string
	Detail   string
}

// TextPart builds a text content part.
func TextPart(text string) ContentPart {
	return ContentPart{Type: ContentPartText, Text: text}
}

// ImagePart builds an image content part.
func ImagePart(url, detail string) ContentPart {
	return ContentPart{Type: ContentPartImage, ImageURL: url, Detail: detail}
}

// MarshalJSON renders the wire shape of the union.
func (p ContentPart) MarshalJSON() ([]byte, error) {
	switch p.Type {
	case ContentPartText:
		return json.Marshal(struct {
			Type ContentPartType `json:"type"`
			Text string          `json:"text"`
		}{p.Type, p.Text})
	case ContentPartImage:
		return json.Marshal(struct {
			Type     ContentPartType `json:"type"`
			ImageURL string          `json:"image_url"`
			Detail   string          `json:"detail,omitempty"`
		}{p.Type, p.ImageURL, p.Detail})
	default:
		return nil, fmt.Errorf("unknown content part type: %q", p.Type)
	}
}

// UnmarshalJSON parses the wire shape of the union.
func (p *ContentPart) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type     ContentPartType `json:"type"`
		Text     string          `json:"text"`
		ImageURL string          `json:"image_url"`
		Detail   string          `json:"detail"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.Type {
	case ContentPartText:
		*p = ContentPart{Type: ContentPartText, Text: raw.Text}
	case ContentPartImage:
		*p = ContentPart{Type: ContentPartImage, ImageURL: raw.ImageURL, Detail: raw.Detail}
	default:
		return fmt.Errorf("unknown content part type: %q", raw.Type)
	}
	return nil
}

// AttachmentType classifies an uploaded file.
type AttachmentType string

const (
	AttachmentImage    AttachmentType = "image"
	AttachmentVideo    AttachmentType = "video"
	AttachmentAudio    AttachmentType = "audio"
	AttachmentDocument AttachmentType = "document"
)

// Attachment describes a file supplied with a turn. Data holds the raw
// bytes only while the request is being parsed; it is stripped before
// persistence and never echoed back to the client.
type Attachment struct {
	ID       string         `json:"id"`
	Type     AttachmentType `json:"type"`
	Name     string         `json:"name,omitempty"`
	MimeType string         `json:"mimeType,omitempty"`
	Size     int64          `json:"size,omitempty"`
	URL      string         `json:"url,omitempty"`
	Data     []byte         `json:"-"`
}

// Sanitized returns a copy safe to persist or emit: raw bytes removed.
func (a Attachment) Sanitized() Attachment {
	a.Data = nil
	return a
}

// SanitizeAttachments strips raw byte handles from a slice.
func SanitizeAttachments(in []Attachment) []Attachment {
	if len(in) == 0 {
		return nil
	}
	out := make([]Attachment, len(in))
	for i, a := range in {
		out[i] = a.Sanitized()
	}
	return out
}

// ToolCallRecord captures one tool invocation made by the engine during
// a turn. Arguments are kept as a serialized JSON string for storage.
type ToolCallRecord struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Message is the in-memory representation of one side of a turn. It is
// created per request and persisted once through the background writer.
type Message struct {
	ID              string
	ConversationID  string
	UserID          string
	Role            Role
	Content         []ContentPart
	PlainText       string
	Attachments     []Attachment
	ToolCalls       []ToolCallRecord
	StructuredData  json.RawMessage
	AudioURL        string
	IntentType      string
	TTSInstructions string
	Error           bool
	CreatedAt       time.Time
}

// EngineToolCall is the loose tool-call shape reported by the engine.
type EngineToolCall struct {
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// TurnResult is the aggregate outcome of one engine invocation. The
// pipeline consumes it as-is; it has no visibility into the engine's
// internal retries or tool orchestration.
type TurnResult struct {
	Response              string           `json:"response,omitempty"`
	StructuredData        json.RawMessage  `json:"structuredData,omitempty"`
	Attachments           []Attachment     `json:"attachments,omitempty"`
	ToolCalls             []EngineToolCall `json:"toolCalls,omitempty"`
	AudioURL              string           `json:"audioUrl,omitempty"`
	IntentType            string           `json:"intentType,omitempty"`
	TTSInstructions       string           `json:"ttsInstructions,omitempty"`
	Error                 string           `json:"error,omitempty"`
	ClarificationQuestion string           `json:"clarificationQuestion,omitempty"`
	DebugInfo             json.RawMessage  `json:"debugInfo,omitempty"`
	WorkflowFeedback      json.RawMessage  `json:"workflowFeedback,omitempty"`
}

// IsError reports whether the turn failed. A clarification question
// alongside an error means the engine needs user input, which is a
// successful turn, not a failure.
func (r *TurnResult) IsError() bool {
	return r.Error != "" && r.ClarificationQuestion == ""
}

// TurnRequest is the single call contract into the reasoning engine.
type TurnRequest struct {
	UserID      string          `json:"userId"`
	Input       []ContentPart   `json:"input"`
	PlainText   string          `json:"plainText,omitempty"`
	History     []WireMessage   `json:"history,omitempty"`
	Context     json.RawMessage `json:"context,omitempty"`
	Attachments []Attachment    `json:"attachments,omitempty"`
}

// WireMessage is the reduced history shape sent to the engine.
type WireMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Engine is the external reasoning engine, treated as atomic per turn.
type Engine interface {
	RunTurn(ctx context.Context, req TurnRequest) (*TurnResult, error)
	Ready() bool
}

// SSE event names on the chat stream.
const (
	EventTextChunk   = "text-chunk"
	EventUIComponent = "ui-component"
	EventAnnotations = "annotations"
	EventError       = "error"
	EventStreamEnd   = "stream-end"
)

// Emitter frames and writes one SSE event. Implementations own the
// transport and the close-exactly-once invariant; Emit after close must
// drop the event rather than fail the turn.
type Emitter interface {
	Emit(event string, payload any) error
	Close()
}

// NewPublicID generates a prefixed public identifier.
func NewPublicID(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, uuid.NewString())
}
