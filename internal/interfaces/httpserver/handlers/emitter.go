package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"companion-server/services/chat-api/internal/infrastructure/metrics"
	"companion-server/services/chat-api/internal/infrastructure/observability"
)

// sseEmitter frames chat events as text/event-stream records and owns
// the close-exactly-once invariant for the outbound stream. Emits after
// close or on a broken transport are dropped, never propagated: once
// headers are committed the only error channel left is the error event
// itself.
type sseEmitter struct {
	w     io.Writer
	flush func()
	log   zerolog.Logger
	span  trace.Span

	mu     sync.Mutex
	closed bool
	broken bool
}

func newSSEEmitter(w http.ResponseWriter, flusher http.Flusher, log zerolog.Logger) *sseEmitter {
	return &sseEmitter{
		w:     w,
		flush: flusher.Flush,
		log:   log,
	}
}

// newSSEEmitterWriter builds an emitter over a bare writer, used in tests.
func newSSEEmitterWriter(w io.Writer, log zerolog.Logger) *sseEmitter {
	return &sseEmitter{w: w, log: log}
}

// Emit writes one event frame and flushes it to the client.
func (e *sseEmitter) Emit(event string, payload any) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		e.log.Debug().Str("event", event).Msg("emit after close, dropping event")
		return nil
	}
	if e.broken {
		return errors.New("stream transport broken")
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	if _, err := fmt.Fprintf(e.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		// Client likely disconnected; the terminal close still runs.
		e.broken = true
		return fmt.Errorf("write event: %w", err)
	}
	if e.flush != nil {
		e.flush()
	}

	metrics.RecordStreamEvent(event)
	if e.span != nil {
		observability.AddStreamEvent(e.span, event)
	}
	return nil
}

// Close seals the stream. Safe to call on every exit path; only the
// first call transitions the state.
func (e *sseEmitter) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
}
