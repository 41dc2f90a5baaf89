package chat

import (
	"encoding/json"
	"time"
)

// Fallback contents for assistant messages without response text.
const (
	contentStructuredData = "[Structured Data Response]"
	contentNoResponse     = "[No text response]"
)

// Annotations is the out-of-band metadata event payload for a turn. It
// always names the persisted assistant message; everything else is
// optional and the event is suppressed when nothing optional is set.
type Annotations struct {
	MessageID             string          `json:"messageId"`
	IntentType            string          `json:"intentType,omitempty"`
	TTSInstructions       string          `json:"ttsInstructions,omitempty"`
	AudioURL              string          `json:"audioUrl,omitempty"`
	DebugInfo             json.RawMessage `json:"debugInfo,omitempty"`
	WorkflowFeedback      json.RawMessage `json:"workflowFeedback,omitempty"`
	ClarificationQuestion string          `json:"clarificationQuestion,omitempty"`
	Attachments           []Attachment    `json:"attachments,omitempty"`
}

// HasOptionalFields reports whether the payload carries anything beyond
// the message id.
func (a Annotations) HasOptionalFields() bool {
	return a.IntentType != "" ||
		a.TTSInstructions != "" ||
		a.AudioURL != "" ||
		len(a.DebugInfo) > 0 ||
		len(a.WorkflowFeedback) > 0 ||
		a.ClarificationQuestion != "" ||
		len(a.Attachments) > 0
}

// BuildAssistantMessage assembles the assistant-side message record and
// the annotations payload from a turn result.
func BuildAssistantMessage(result *TurnResult, conversationID, userID string) (*Message, Annotations) {
	content := result.Response
	if content == "" {
		if len(result.StructuredData) > 0 {
			content = contentStructuredData
		} else {
			content = contentNoResponse
		}
	}

	msg := &Message{
		ID:              NewPublicID("msg"),
		ConversationID:  conversationID,
		UserID:          userID,
		Role:            RoleAssistant,
		Content:         []ContentPart{TextPart(content)},
		PlainText:       content,
		Attachments:     SanitizeAttachments(result.Attachments),
		ToolCalls:       toolCallRecords(result.ToolCalls),
		StructuredData:  result.StructuredData,
		AudioURL:        result.AudioURL,
		IntentType:      result.IntentType,
		TTSInstructions: result.TTSInstructions,
		Error:           result.Error != "",
		CreatedAt:       time.Now(),
	}

	ann := Annotations{
		MessageID:             msg.ID,
		IntentType:            result.IntentType,
		TTSInstructions:       result.TTSInstructions,
		AudioURL:              result.AudioURL,
		DebugInfo:             result.DebugInfo,
		WorkflowFeedback:      result.WorkflowFeedback,
		ClarificationQuestion: result.ClarificationQuestion,
		Attachments:           SanitizeAttachments(result.Attachments),
	}

	return msg, ann
}

// toolCallRecords flattens the engine's tool invocation log, serializing
// argument objects and synthesizing ids the source omitted.
func toolCallRecords(calls []EngineToolCall) []ToolCallRecord {
	if len(calls) == 0 {
		return nil
	}
	records := make([]ToolCallRecord, 0, len(calls))
	for _, call := range calls {
		id := call.ID
		if id == "" {
			id = NewPublicID("call")
		}
		args := "{}"
		if len(call.Arguments) > 0 {
			args = string(call.Arguments)
		}
		records = append(records, ToolCallRecord{
			ID:        id,
			Name:      call.Name,
			Arguments: args,
		})
	}
	return records
}
