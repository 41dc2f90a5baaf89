package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Normalizer errors surfaced to the HTTP layer as 400s.
var (
	ErrMalformedMessages = errors.New("malformed messages payload")
	ErrContentRequired   = errors.New("message content is required")
)

// FilePart is one raw file lifted out of a multipart form. The bytes
// live only for the duration of request parsing.
type FilePart struct {
	FieldName string
	FileName  string
	MimeType  string
	Size      int64
	Data      []byte
}

// NormalizeOptions tune normalization behaviour.
type NormalizeOptions struct {
	// DefaultImageDetail fills image parts that omit a detail level.
	DefaultImageDetail string
}

// NormalizedTurn is the canonical form of one inbound turn.
type NormalizedTurn struct {
	History     []Message
	Parts       []ContentPart
	PlainText   string
	Attachments []Attachment
}

// inboundMessage is the loose wire shape of one entry in the messages
// array. Content is either a JSON string or an array of content parts.
type inboundMessage struct {
	Role        string          `json:"role"`
	Content     json.RawMessage `json:"content"`
	Attachments []Attachment    `json:"attachments,omitempty"`
}

// Normalize converts the raw messages payload plus any multipart file
// parts into the canonical turn shape. The last entry of the messages
// array is the current turn only when its role is user; otherwise the
// caller supplied history with no turn and the request is rejected.
func Normalize(messagesJSON []byte, files []FilePart, opts NormalizeOptions) (*NormalizedTurn, error) {
	var inbound []inboundMessage
	if err := json.Unmarshal(messagesJSON, &inbound); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessages, err)
	}
	if len(inbound) == 0 {
		return nil, ErrContentRequired
	}

	last := inbound[len(inbound)-1]
	if Role(last.Role) != RoleUser {
		return nil, ErrContentRequired
	}

	history, err := buildHistory(inbound[:len(inbound)-1], opts)
	if err != nil {
		return nil, err
	}

	parts, plain, err := normalizeContent(last.Content, opts)
	if err != nil {
		return nil, err
	}

	attachments := mergeAttachments(last.Attachments, files)

	if !hasTextPart(parts) {
		if len(attachments) == 0 {
			return nil, ErrContentRequired
		}
		placeholder := attachmentPlaceholder(len(attachments))
		parts = append(parts, TextPart(placeholder))
		if plain == "" {
			plain = placeholder
		}
	}

	return &NormalizedTurn{
		History:     history,
		Parts:       parts,
		PlainText:   plain,
		Attachments: attachments,
	}, nil
}

func buildHistory(inbound []inboundMessage, opts NormalizeOptions) ([]Message, error) {
	if len(inbound) == 0 {
		return nil, nil
	}
	history := make([]Message, 0, len(inbound))
	for _, m := range inbound {
		parts, plain, err := normalizeContent(m.Content, opts)
		if err != nil {
			return nil, err
		}
		role := Role(m.Role)
		if role != RoleUser && role != RoleAssistant {
			continue
		}
		history = append(history, Message{
			Role:        role,
			Content:     parts,
			PlainText:   plain,
			Attachments: SanitizeAttachments(m.Attachments),
		})
	}
	return history, nil
}

// normalizeContent accepts either a bare string or an array of typed
// parts, returning the ordered part list plus a plain-text mirror for
// engines that only consume text.
func normalizeContent(raw json.RawMessage, opts NormalizeOptions) ([]ContentPart, string, error) {
	if len(raw) == 0 {
		return nil, "", nil
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		if text == "" {
			return nil, "", nil
		}
		return []ContentPart{TextPart(text)}, text, nil
	}

	var rawParts []json.RawMessage
	if err := json.Unmarshal(raw, &rawParts); err != nil {
		return nil, "", fmt.Errorf("%w: content must be a string or an array of parts", ErrMalformedMessages)
	}

	var (
		parts   []ContentPart
		builder strings.Builder
	)
	for _, rp := range rawParts {
		var part ContentPart
		if err := part.UnmarshalJSON(rp); err != nil {
			// Unknown part types are dropped rather than failing the turn.
			continue
		}
		switch part.Type {
		case ContentPartText:
			if part.Text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(part.Text)
			parts = append(parts, part)
		case ContentPartImage:
			if part.Detail == "" {
				part.Detail = opts.DefaultImageDetail
			}
			parts = append(parts, part)
		}
	}
	return parts, builder.String(), nil
}

// mergeAttachments reconciles attachment metadata supplied inline with
// raw files from the multipart form. A file matching inline metadata by
// (name, size) enriches that entry instead of duplicating it; leftover
// files are appended with synthesized identifiers.
func mergeAttachments(inline []Attachment, files []FilePart) []Attachment {
	merged := make([]Attachment, 0, len(inline)+len(files))
	for _, a := range inline {
		if a.ID == "" {
			a.ID = NewPublicID("att")
		}
		merged = append(merged, a)
	}

	for _, f := range files {
		matched := false
		for i := range merged {
			if merged[i].Data == nil && merged[i].Name == f.FileName && merged[i].Size == f.Size {
				merged[i].Data = f.Data
				if merged[i].MimeType == "" {
					merged[i].MimeType = f.MimeType
				}
				if merged[i].Type == "" {
					merged[i].Type = attachmentTypeForMime(f.MimeType)
				}
				matched = true
				break
			}
		}
		if matched {
			continue
		}
		merged = append(merged, Attachment{
			ID:       NewPublicID("att"),
			Type:     attachmentTypeForMime(f.MimeType),
			Name:     f.FileName,
			MimeType: f.MimeType,
			Size:     f.Size,
			Data:     f.Data,
		})
	}

	if len(merged) == 0 {
		return nil
	}
	return merged
}

func attachmentTypeForMime(mime string) AttachmentType {
	switch {
	case strings.HasPrefix(mime, "image/"):
		return AttachmentImage
	case strings.HasPrefix(mime, "video/"):
		return AttachmentVideo
	case strings.HasPrefix(mime, "audio/"):
		return AttachmentAudio
	default:
		return AttachmentDocument
	}
}

func hasTextPart(parts []ContentPart) bool {
	for _, p := range parts {
		if p.Type == ContentPartText {
			return true
		}
	}
	return false
}

func attachmentPlaceholder(count int) string {
	return fmt.Sprintf("[Processing %d attachment(s)]", count)
}
