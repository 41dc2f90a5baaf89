package persist

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"companion-server/services/chat-api/internal/domain/chat"
)

type mockSink struct {
	mu       sync.Mutex
	saved    []*chat.Message
	SaveFunc func(ctx context.Context, msg *chat.Message) error
}

func (m *mockSink) SaveMessage(ctx context.Context, msg *chat.Message) error {
	if m.SaveFunc != nil {
		if err := m.SaveFunc(ctx, msg); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, msg)
	return nil
}

func (m *mockSink) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saved)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestWriterPersistsEnqueuedMessages(t *testing.T) {
	sink := &mockSink{}
	writer := NewWriter(NewQueue(8), sink, Config{WorkerCount: 2}, zerolog.Nop())
	writer.Start(context.Background())
	defer writer.Stop()

	writer.Enqueue(&chat.Message{ID: "msg_1", ConversationID: "conv_1", Role: chat.RoleUser})
	writer.Enqueue(&chat.Message{ID: "msg_2", ConversationID: "conv_1", Role: chat.RoleAssistant})

	waitFor(t, func() bool { return sink.count() == 2 })
}

func TestWriterDropsWhenQueueFull(t *testing.T) {
	// No workers started: nothing drains the queue.
	sink := &mockSink{}
	queue := NewQueue(1)
	writer := NewWriter(queue, sink, Config{WorkerCount: 1}, zerolog.Nop())

	writer.Enqueue(&chat.Message{ID: "msg_1"})
	writer.Enqueue(&chat.Message{ID: "msg_2"})

	if queue.Depth() != 1 {
		t.Errorf("queue depth = %d, want 1", queue.Depth())
	}
}

func TestWriterSurvivesSinkFailure(t *testing.T) {
	sink := &mockSink{
		SaveFunc: func(ctx context.Context, msg *chat.Message) error {
			if msg.ID == "msg_bad" {
				return errors.New("constraint violation")
			}
			return nil
		},
	}
	writer := NewWriter(NewQueue(8), sink, Config{WorkerCount: 1}, zerolog.Nop())
	writer.Start(context.Background())
	defer writer.Stop()

	writer.Enqueue(&chat.Message{ID: "msg_bad"})
	writer.Enqueue(&chat.Message{ID: "msg_good"})

	waitFor(t, func() bool { return sink.count() == 1 })
	if sink.saved[0].ID != "msg_good" {
		t.Errorf("saved wrong message: %s", sink.saved[0].ID)
	}
}

func TestWriterStopDrainsQueue(t *testing.T) {
	sink := &mockSink{}
	queue := NewQueue(8)
	writer := NewWriter(queue, sink, Config{WorkerCount: 1}, zerolog.Nop())

	// Queue before the workers run so Stop has something to drain.
	writer.Enqueue(&chat.Message{ID: "msg_1"})
	writer.Enqueue(&chat.Message{ID: "msg_2"})

	writer.Start(context.Background())
	writer.Stop()

	if sink.count() != 2 {
		t.Errorf("drained %d messages, want 2", sink.count())
	}
}

func TestWriterDrainsAfterContextCancel(t *testing.T) {
	sink := &mockSink{}
	queue := NewQueue(8)
	writer := NewWriter(queue, sink, Config{WorkerCount: 2}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	writer.Enqueue(&chat.Message{ID: "msg_1", ConversationID: "conv_1"})
	writer.Enqueue(&chat.Message{ID: "msg_2", ConversationID: "conv_1"})

	writer.Start(ctx)
	cancel()
	writer.Stop()

	if sink.count() != 2 {
		t.Errorf("drained %d of 2 queued messages after shutdown", sink.count())
	}
}

func TestWriterStopIdempotent(t *testing.T) {
	writer := NewWriter(NewQueue(1), &mockSink{}, Config{WorkerCount: 1}, zerolog.Nop())
	writer.Start(context.Background())
	writer.Stop()
	writer.Stop()
}
