package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "companion-server/chat-api"

// GetTracer returns the tracer for the chat-api service.
func GetTracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartTurnSpan starts a span covering one conversational turn.
func StartTurnSpan(ctx context.Context, userID, conversationID string) (context.Context, trace.Span) {
	return GetTracer().Start(ctx, "chat.turn",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("chat.user_id", userID),
			attribute.String("chat.conversation_id", conversationID),
		),
	)
}

// StartEngineSpan starts a span covering the engine invocation.
func StartEngineSpan(ctx context.Context, userID string) (context.Context, trace.Span) {
	return GetTracer().Start(ctx, "chat.engine.invoke",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("chat.user_id", userID),
		),
	)
}

// RecordError records an error on a span.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// AddStreamEvent notes an emitted SSE event on the turn span.
func AddStreamEvent(span trace.Span, event string) {
	span.AddEvent("stream.emit",
		trace.WithAttributes(attribute.String("stream.event", event)),
	)
}
