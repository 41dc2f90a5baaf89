package chat

import (
	"errors"
	"testing"
)

func TestNormalizeStringContent(t *testing.T) {
	turn, err := Normalize([]byte(`[{"role":"user","content":"hello there"}]`), nil, NormalizeOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(turn.Parts) != 1 || turn.Parts[0].Type != ContentPartText {
		t.Fatalf("expected one text part, got %+v", turn.Parts)
	}
	if turn.Parts[0].Text != "hello there" {
		t.Errorf("unexpected part text: %q", turn.Parts[0].Text)
	}
	if turn.PlainText != "hello there" {
		t.Errorf("unexpected plain text: %q", turn.PlainText)
	}
	if len(turn.History) != 0 {
		t.Errorf("expected empty history, got %d entries", len(turn.History))
	}
}

func TestNormalizeArrayContent(t *testing.T) {
	payload := []byte(`[{"role":"user","content":[
		{"type":"text","text":"look at this"},
		{"type":"input_image","image_url":"https://example.com/cat.png"},
		{"type":"text","text":"what breed is it?"}
	]}]`)

	turn, err := Normalize(payload, nil, NormalizeOptions{DefaultImageDetail: "auto"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(turn.Parts) != 3 {
		t.Fatalf("expected 3 parts, got %d", len(turn.Parts))
	}
	if turn.Parts[1].Type != ContentPartImage {
		t.Errorf("expected image part second, got %+v", turn.Parts[1])
	}
	if turn.Parts[1].Detail != "auto" {
		t.Errorf("expected default detail to apply, got %q", turn.Parts[1].Detail)
	}
	if turn.PlainText != "look at this\nwhat breed is it?" {
		t.Errorf("unexpected plain text mirror: %q", turn.PlainText)
	}
}

func TestNormalizePreservesExplicitImageDetail(t *testing.T) {
	payload := []byte(`[{"role":"user","content":[
		{"type":"text","text":"zoom in"},
		{"type":"input_image","image_url":"https://example.com/x.png","detail":"high"}
	]}]`)

	turn, err := Normalize(payload, nil, NormalizeOptions{DefaultImageDetail: "auto"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if turn.Parts[1].Detail != "high" {
		t.Errorf("explicit detail overwritten: %q", turn.Parts[1].Detail)
	}
}

func TestNormalizeRejections(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr error
	}{
		{"not json", `{"role":`, ErrMalformedMessages},
		{"object instead of array", `{"role":"user","content":"hi"}`, ErrMalformedMessages},
		{"empty array", `[]`, ErrContentRequired},
		{"last message not user", `[{"role":"assistant","content":"hi"}]`, ErrContentRequired},
		{"empty string content", `[{"role":"user","content":""}]`, ErrContentRequired},
		{"no text no attachments", `[{"role":"user","content":[]}]`, ErrContentRequired},
		{"content not string or array", `[{"role":"user","content":42}]`, ErrMalformedMessages},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize([]byte(tt.payload), nil, NormalizeOptions{})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNormalizeUnknownPartTypesDropped(t *testing.T) {
	payload := []byte(`[{"role":"user","content":[
		{"type":"tool_result","text":"ignored"},
		{"type":"text","text":"kept"}
	]}]`)

	turn, err := Normalize(payload, nil, NormalizeOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(turn.Parts) != 1 || turn.Parts[0].Text != "kept" {
		t.Fatalf("expected only the text part to survive, got %+v", turn.Parts)
	}
}

func TestNormalizeHistory(t *testing.T) {
	payload := []byte(`[
		{"role":"user","content":"first question"},
		{"role":"assistant","content":"first answer"},
		{"role":"system","content":"ignored"},
		{"role":"user","content":"second question"}
	]`)

	turn, err := Normalize(payload, nil, NormalizeOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(turn.History) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(turn.History))
	}
	if turn.History[0].Role != RoleUser || turn.History[0].PlainText != "first question" {
		t.Errorf("unexpected first history entry: %+v", turn.History[0])
	}
	if turn.History[1].Role != RoleAssistant || turn.History[1].PlainText != "first answer" {
		t.Errorf("unexpected second history entry: %+v", turn.History[1])
	}
	if turn.PlainText != "second question" {
		t.Errorf("current turn text wrong: %q", turn.PlainText)
	}
}

func TestNormalizeAttachmentOnlyTurn(t *testing.T) {
	files := []FilePart{
		{FieldName: "attachment_0", FileName: "report.pdf", MimeType: "application/pdf", Size: 4, Data: []byte("%PDF")},
	}

	turn, err := Normalize([]byte(`[{"role":"user","content":[]}]`), files, NormalizeOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if turn.PlainText != "[Processing 1 attachment(s)]" {
		t.Errorf("expected placeholder text, got %q", turn.PlainText)
	}
	if !hasTextPart(turn.Parts) {
		t.Error("expected synthesized text part")
	}
	if len(turn.Attachments) != 1 {
		t.Fatalf("expected 1 attachment, got %d", len(turn.Attachments))
	}
	att := turn.Attachments[0]
	if att.Type != AttachmentDocument {
		t.Errorf("expected document type, got %q", att.Type)
	}
	if att.ID == "" {
		t.Error("expected synthesized attachment id")
	}
}

func TestNormalizeMergesInlineAttachmentMetadata(t *testing.T) {
	payload := []byte(`[{"role":"user","content":"see attached","attachments":[
		{"id":"att_known","type":"image","name":"photo.jpg","size":3}
	]}]`)
	files := []FilePart{
		{FieldName: "attachment_0", FileName: "photo.jpg", MimeType: "image/jpeg", Size: 3, Data: []byte("jpg")},
		{FieldName: "attachment_1", FileName: "extra.mp3", MimeType: "audio/mpeg", Size: 5, Data: []byte("audio")},
	}

	turn, err := Normalize(payload, files, NormalizeOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(turn.Attachments) != 2 {
		t.Fatalf("expected 2 merged attachments, got %d", len(turn.Attachments))
	}
	if turn.Attachments[0].ID != "att_known" {
		t.Errorf("inline entry replaced instead of enriched: %+v", turn.Attachments[0])
	}
	if string(turn.Attachments[0].Data) != "jpg" {
		t.Error("matched file bytes not attached to inline entry")
	}
	if turn.Attachments[0].MimeType != "image/jpeg" {
		t.Errorf("mime type not filled from file: %q", turn.Attachments[0].MimeType)
	}
	if turn.Attachments[1].Type != AttachmentAudio {
		t.Errorf("leftover file type wrong: %q", turn.Attachments[1].Type)
	}
}

func TestAttachmentTypeForMime(t *testing.T) {
	tests := []struct {
		mime string
		want AttachmentType
	}{
		{"image/png", AttachmentImage},
		{"video/mp4", AttachmentVideo},
		{"audio/ogg", AttachmentAudio},
		{"application/pdf", AttachmentDocument},
		{"", AttachmentDocument},
	}
	for _, tt := range tests {
		if got := attachmentTypeForMime(tt.mime); got != tt.want {
			t.Errorf("attachmentTypeForMime(%q) = %q, want %q", tt.mime, got, tt.want)
		}
	}
}
