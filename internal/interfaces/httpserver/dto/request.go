package dto

import "encoding/json"

// ChatRequest models the POST /api/chat JSON envelope. Messages stays
// raw here; the normalizer owns its interpretation. Data is opaque
// caller context forwarded to the engine.
type ChatRequest struct {
	Messages json.RawMessage `json:"messages" binding:"required"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// Multipart form field names for the same contract.
const (
	FormFieldMessages = "messages"
	FormFieldPrompt   = "prompt"
	FormFieldData     = "data"

	// File fields carrying attachments are named attachment_<n>.
	AttachmentFieldPrefix = "attachment_"
)
