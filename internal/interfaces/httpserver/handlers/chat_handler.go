package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"companion-server/services/chat-api/internal/config"
	"companion-server/services/chat-api/internal/domain/chat"
	"companion-server/services/chat-api/internal/infrastructure/auth"
	"companion-server/services/chat-api/internal/infrastructure/observability"
	"companion-server/services/chat-api/internal/interfaces/httpserver/dto"
	"companion-server/services/chat-api/internal/interfaces/httpserver/middlewares"
)

// maxAttachmentBytes bounds a single uploaded file.
const maxAttachmentBytes = 32 << 20

// ChatHandler exposes the chat turn endpoint.
type ChatHandler struct {
	service chat.Service
	cfg     *config.Config
	log     zerolog.Logger
}

// NewChatHandler constructs the handler.
func NewChatHandler(service chat.Service, cfg *config.Config, log zerolog.Logger) *ChatHandler {
	return &ChatHandler{
		service: service,
		cfg:     cfg,
		log:     log.With().Str("handler", "chat").Logger(),
	}
}

// Chat handles POST /api/chat
// @Summary Run one conversational turn
// @Description Accepts a turn as JSON or multipart form and streams the assistant response as Server-Sent Events.
// @Tags Chat
// @Accept json
// @Accept multipart/form-data
// @Produce text/event-stream
// @Param request body dto.ChatRequest true "Turn request"
// @Success 200 {string} string "SSE stream"
// @Failure 400 {object} map[string]string
// @Failure 415 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /api/chat [post]
func (h *ChatHandler) Chat(c *gin.Context) {
	if !h.service.Ready() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "chat service is not configured"})
		return
	}

	userID := auth.Subject(c)
	if userID == "" {
		userID = "guest"
	}

	messagesJSON, data, files, ok := h.extractRequest(c)
	if !ok {
		return
	}

	turn, err := chat.Normalize(messagesJSON, files, chat.NormalizeOptions{
		DefaultImageDetail: h.cfg.DefaultImageDetail,
	})
	if err != nil {
		writeNormalizeError(c, err)
		return
	}

	conv, err := h.service.ResolveConversation(c.Request.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("conversation resolution failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve conversation"})
		return
	}

	flusher, ok := middlewares.PrepareSSE(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming not supported"})
		return
	}

	ctx, span := observability.StartTurnSpan(c.Request.Context(), userID, conv.PublicID)
	defer span.End()

	emitter := newSSEEmitter(c.Writer, flusher, h.log)
	emitter.span = span
	defer emitter.Close()

	h.service.StreamTurn(ctx, conv, chat.TurnParams{
		UserID:  userID,
		Turn:    turn,
		Context: data,
	}, emitter)
}

// History handles GET /api/chat/history
// @Summary Fetch the caller's conversation transcript
// @Tags Chat
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/chat/history [get]
func (h *ChatHandler) History(c *gin.Context) {
	userID := auth.Subject(c)
	if userID == "" {
		userID = "guest"
	}

	msgs, err := h.service.History(c.Request.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("history fetch failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": dto.FromDomainList(msgs)})
}

// extractRequest pulls the raw messages payload, opaque context data and
// file parts out of either a JSON body or a multipart form. A false
// return means the response has already been written.
func (h *ChatHandler) extractRequest(c *gin.Context) (json.RawMessage, json.RawMessage, []chat.FilePart, bool) {
	contentType := c.ContentType()
	switch {
	case contentType == "application/json":
		var req dto.ChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return nil, nil, nil, false
		}
		return req.Messages, req.Data, nil, true

	case strings.HasPrefix(contentType, "multipart/form-data"):
		return h.extractMultipart(c)

	default:
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": fmt.Sprintf("unsupported content type: %s", contentType)})
		return nil, nil, nil, false
	}
}

func (h *ChatHandler) extractMultipart(c *gin.Context) (json.RawMessage, json.RawMessage, []chat.FilePart, bool) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, nil, nil, false
	}

	messagesJSON := json.RawMessage(formValue(form.Value, dto.FormFieldMessages))
	if len(messagesJSON) == 0 {
		// Plain-text fallback for clients that only send a prompt field.
		prompt := formValue(form.Value, dto.FormFieldPrompt)
		if prompt == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Message content is required"})
			return nil, nil, nil, false
		}
		synthesized, err := json.Marshal([]map[string]any{{"role": "user", "content": prompt}})
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return nil, nil, nil, false
		}
		messagesJSON = synthesized
	}

	var data json.RawMessage
	if raw := formValue(form.Value, dto.FormFieldData); raw != "" {
		data = json.RawMessage(raw)
	}

	var files []chat.FilePart
	for field, headers := range form.File {
		if !strings.HasPrefix(field, dto.AttachmentFieldPrefix) {
			continue
		}
		for _, header := range headers {
			part, err := readFilePart(field, header)
			if err != nil {
				h.log.Warn().Err(err).Str("field", field).Msg("skipping unreadable attachment")
				continue
			}
			files = append(files, part)
		}
	}

	return messagesJSON, data, files, true
}

func readFilePart(field string, header *multipart.FileHeader) (chat.FilePart, error) {
	f, err := header.Open()
	if err != nil {
		return chat.FilePart{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxAttachmentBytes+1))
	if err != nil {
		return chat.FilePart{}, err
	}
	if len(data) > maxAttachmentBytes {
		return chat.FilePart{}, errors.New("attachment exceeds size limit")
	}

	return chat.FilePart{
		FieldName: field,
		FileName:  header.Filename,
		MimeType:  header.Header.Get("Content-Type"),
		Size:      int64(len(data)),
		Data:      data,
	}, nil
}

func formValue(values map[string][]string, key string) string {
	if v, ok := values[key]; ok && len(v) > 0 {
		return strings.TrimSpace(v[0])
	}
	return ""
}

func writeNormalizeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, chat.ErrContentRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message content is required"})
	case errors.Is(err, chat.ErrMalformedMessages):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}
