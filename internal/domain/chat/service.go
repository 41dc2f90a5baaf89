package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"companion-server/services/chat-api/internal/domain/conversation"
	"companion-server/services/chat-api/internal/infrastructure/metrics"
)

// MessageWriter accepts messages for best-effort background persistence.
type MessageWriter interface {
	Enqueue(msg *Message)
}

// MessageReader loads persisted messages for a conversation.
type MessageReader interface {
	ListByConversationID(ctx context.Context, conversationID string) ([]*Message, error)
}

// StreamOptions tune the paced text emission on the SSE stream.
type StreamOptions struct {
	ChunkSize  int
	ChunkDelay time.Duration
}

// TurnParams carries one normalized turn through the pipeline.
type TurnParams struct {
	UserID  string
	Turn    *NormalizedTurn
	Context json.RawMessage
}

// Service orchestrates one conversational turn end to end.
type Service interface {
	// ResolveConversation maps a caller identity to exactly one
	// conversation, creating it lazily on first turn. Failures here are
	// fatal for the request; no stream is opened.
	ResolveConversation(ctx context.Context, userID string) (*conversation.Conversation, error)

	// StreamTurn persists the user message, invokes the engine, and
	// drives the full emission sequence on the emitter. All failures
	// past this point travel as error events, never as return values.
	StreamTurn(ctx context.Context, conv *conversation.Conversation, params TurnParams, em Emitter)

	// History returns the caller's persisted messages, oldest first. A
	// user without a conversation gets an empty history, not an error.
	History(ctx context.Context, userID string) ([]*Message, error)

	// Ready reports whether the service can accept turns.
	Ready() bool
}

// ServiceImpl provides the domain implementation.
type ServiceImpl struct {
	conversations conversation.Repository
	messages      MessageReader
	engine        Engine
	writer        MessageWriter
	opts          StreamOptions
	log           zerolog.Logger

	resolveGroup singleflight.Group
}

// NewService wires dependencies.
func NewService(
	conversations conversation.Repository,
	messages MessageReader,
	engine Engine,
	writer MessageWriter,
	opts StreamOptions,
	log zerolog.Logger,
) *ServiceImpl {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 30
	}
	return &ServiceImpl{
		conversations: conversations,
		messages:      messages,
		engine:        engine,
		writer:        writer,
		opts:          opts,
		log:           log.With().Str("component", "chat-service").Logger(),
	}
}

// History loads the persisted transcript for the user's conversation.
func (s *ServiceImpl) History(ctx context.Context, userID string) ([]*Message, error) {
	conv, err := s.conversations.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, conversation.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return s.messages.ListByConversationID(ctx, conv.PublicID)
}

// Ready reports whether the engine handle is configured.
func (s *ServiceImpl) Ready() bool {
	return s.engine != nil && s.engine.Ready()
}

// ResolveConversation returns the user's conversation, creating one on
// first turn. Concurrent first turns from the same user collapse into a
// single create through singleflight; a create losing the store-level
// race is answered with the winning row by the repository.
func (s *ServiceImpl) ResolveConversation(ctx context.Context, userID string) (*conversation.Conversation, error) {
	v, err, _ := s.resolveGroup.Do(userID, func() (any, error) {
		conv, err := s.conversations.FindByUserID(ctx, userID)
		if err == nil {
			return conv, nil
		}
		if !errors.Is(err, conversation.ErrNotFound) {
			return nil, fmt.Errorf("lookup conversation: %w", err)
		}
		created, err := s.conversations.Create(ctx, &conversation.Conversation{
			PublicID: NewPublicID("conv"),
			UserID:   userID,
			Title:    conversation.DefaultTitle,
		})
		if err != nil {
			return nil, fmt.Errorf("create conversation: %w", err)
		}
		return created, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*conversation.Conversation), nil
}

type textChunkPayload struct {
	Text string `json:"text"`
}

type uiComponentPayload struct {
	Data json.RawMessage `json:"data"`
}

type errorPayload struct {
	Error      string `json:"error"`
	StatusCode int    `json:"statusCode"`
}

type streamEndPayload struct {
	SessionID          string `json:"sessionId"`
	AssistantMessageID string `json:"assistantMessageId"`
}

// StreamTurn runs the turn. Emission order: user persist, engine call,
// assistant persist, then either the error event or text chunks,
// ui-component, annotations, and the terminal stream-end. The terminal
// event is always the last event on the wire.
func (s *ServiceImpl) StreamTurn(ctx context.Context, conv *conversation.Conversation, params TurnParams, em Emitter) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Str("conversation_id", conv.PublicID).Msg("panic during turn streaming")
			s.emit(em, EventError, errorPayload{Error: "internal error", StatusCode: 500})
		}
	}()

	userMsg := s.buildUserMessage(conv, params)
	s.writer.Enqueue(userMsg)

	engineStart := time.Now()
	result, err := s.engine.RunTurn(ctx, TurnRequest{
		UserID:      params.UserID,
		Input:       params.Turn.Parts,
		PlainText:   params.Turn.PlainText,
		History:     wireHistory(params.Turn.History),
		Context:     params.Context,
		Attachments: params.Turn.Attachments,
	})
	engineSeconds := time.Since(engineStart).Seconds()
	if err != nil {
		s.log.Error().Err(err).Str("conversation_id", conv.PublicID).Msg("engine invocation failed")
		result = &TurnResult{Error: err.Error()}
	}
	metrics.RecordTurn(turnOutcome(result), engineSeconds)

	assistantMsg, annotations := BuildAssistantMessage(result, conv.PublicID, params.UserID)
	s.writer.Enqueue(assistantMsg)

	if result.IsError() {
		s.emit(em, EventError, errorPayload{Error: result.Error, StatusCode: 500})
		return
	}

	if result.Response != "" {
		s.streamChunks(ctx, em, result.Response)
	}

	if len(result.StructuredData) > 0 {
		s.emit(em, EventUIComponent, uiComponentPayload{Data: result.StructuredData})
	}

	if annotations.HasOptionalFields() {
		s.emit(em, EventAnnotations, annotations)
	}

	s.emit(em, EventStreamEnd, streamEndPayload{
		SessionID:          conv.PublicID,
		AssistantMessageID: assistantMsg.ID,
	})
}

// streamChunks emits the response text in fixed-size chunks with a
// small pacing delay. Boundaries are length-based only; a chunk may
// split mid-word but never mid-rune.
func (s *ServiceImpl) streamChunks(ctx context.Context, em Emitter, text string) {
	runes := []rune(text)
	for start := 0; start < len(runes); start += s.opts.ChunkSize {
		end := start + s.opts.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		s.emit(em, EventTextChunk, textChunkPayload{Text: string(runes[start:end])})

		if s.opts.ChunkDelay <= 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.opts.ChunkDelay):
		}
	}
}

// emit forwards one event and logs delivery failures without aborting
// the sequence; a disconnected client must not leak the stream.
func (s *ServiceImpl) emit(em Emitter, event string, payload any) {
	if err := em.Emit(event, payload); err != nil {
		s.log.Warn().Err(err).Str("event", event).Msg("dropped stream event")
	}
}

func (s *ServiceImpl) buildUserMessage(conv *conversation.Conversation, params TurnParams) *Message {
	return &Message{
		ID:             NewPublicID("msg"),
		ConversationID: conv.PublicID,
		UserID:         params.UserID,
		Role:           RoleUser,
		Content:        params.Turn.Parts,
		PlainText:      params.Turn.PlainText,
		Attachments:    SanitizeAttachments(params.Turn.Attachments),
		CreatedAt:      time.Now(),
	}
}

// turnOutcome classifies a turn result for the turns_total metric.
func turnOutcome(result *TurnResult) string {
	switch {
	case result.IsError():
		return "error"
	case result.ClarificationQuestion != "":
		return "clarification"
	default:
		return "completed"
	}
}

func wireHistory(history []Message) []WireMessage {
	if len(history) == 0 {
		return nil
	}
	wire := make([]WireMessage, 0, len(history))
	for _, m := range history {
		wire = append(wire, WireMessage{Role: m.Role, Content: m.PlainText})
	}
	return wire
}

var _ Service = (*ServiceImpl)(nil)
