package handlers

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestSSEEmitterFraming(t *testing.T) {
	var buf bytes.Buffer
	em := newSSEEmitterWriter(&buf, zerolog.Nop())

	if err := em.Emit("text-chunk", map[string]string{"text": "hi"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "event: text-chunk\ndata: {\"text\":\"hi\"}\n\n"
	if buf.String() != want {
		t.Errorf("frame = %q, want %q", buf.String(), want)
	}
}

func TestSSEEmitterSequentialFrames(t *testing.T) {
	var buf bytes.Buffer
	em := newSSEEmitterWriter(&buf, zerolog.Nop())

	em.Emit("text-chunk", map[string]string{"text": "a"})
	em.Emit("stream-end", map[string]string{"sessionId": "conv_1"})

	frames := strings.Split(strings.TrimSuffix(buf.String(), "\n\n"), "\n\n")
	if len(frames) != 2 {
		t.Fatalf("expected 2 frames, got %d: %q", len(frames), buf.String())
	}
	if !strings.HasPrefix(frames[1], "event: stream-end\n") {
		t.Errorf("second frame = %q", frames[1])
	}
}

func TestSSEEmitterDropsAfterClose(t *testing.T) {
	var buf bytes.Buffer
	em := newSSEEmitterWriter(&buf, zerolog.Nop())

	em.Close()
	if err := em.Emit("text-chunk", map[string]string{"text": "late"}); err != nil {
		t.Fatalf("emit after close must not error, got %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("event written after close: %q", buf.String())
	}
}

func TestSSEEmitterCloseIdempotent(t *testing.T) {
	em := newSSEEmitterWriter(&bytes.Buffer{}, zerolog.Nop())
	em.Close()
	em.Close()
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, errors.New("broken pipe")
}

func TestSSEEmitterBrokenTransport(t *testing.T) {
	em := newSSEEmitterWriter(failingWriter{}, zerolog.Nop())

	if err := em.Emit("text-chunk", map[string]string{"text": "x"}); err == nil {
		t.Fatal("expected write failure to surface")
	}
	// Subsequent emits fail fast without touching the writer again.
	if err := em.Emit("stream-end", map[string]string{}); err == nil {
		t.Fatal("expected broken transport to stay broken")
	}
}

func TestSSEEmitterUnmarshalablePayload(t *testing.T) {
	var buf bytes.Buffer
	em := newSSEEmitterWriter(&buf, zerolog.Nop())

	if err := em.Emit("text-chunk", make(chan int)); err == nil {
		t.Fatal("expected marshal error")
	}
	if buf.Len() != 0 {
		t.Errorf("partial frame written: %q", buf.String())
	}
}
