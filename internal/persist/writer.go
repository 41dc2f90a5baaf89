package persist

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"companion-server/services/chat-api/internal/domain/chat"
	"companion-server/services/chat-api/internal/infrastructure/metrics"
)

// Sink is the durable store the writer drains into.
type Sink interface {
	SaveMessage(ctx context.Context, msg *chat.Message) error
}

// Config contains writer pool configuration.
type Config struct {
	WorkerCount int
	TaskTimeout time.Duration
}

// Writer persists messages off the response path. Failures are logged
// and counted, never surfaced to the client; the conversational
// experience is prioritized over write durability.
type Writer struct {
	queue       *Queue
	sink        Sink
	workerCount int
	taskTimeout time.Duration
	log         zerolog.Logger
	wg          sync.WaitGroup
	stopChan    chan struct{}
	stopOnce    sync.Once
}

// NewWriter creates a background message writer.
func NewWriter(queue *Queue, sink Sink, cfg Config, log zerolog.Logger) *Writer {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 1
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = 10 * time.Second
	}
	return &Writer{
		queue:       queue,
		sink:        sink,
		workerCount: cfg.WorkerCount,
		taskTimeout: cfg.TaskTimeout,
		log:         log.With().Str("component", "persist-writer").Logger(),
		stopChan:    make(chan struct{}),
	}
}

// Start launches the worker pool.
func (w *Writer) Start(ctx context.Context) {
	w.log.Info().Int("worker_count", w.workerCount).Msg("starting persistence writer")
	for i := 0; i < w.workerCount; i++ {
		w.wg.Add(1)
		go func(id int) {
			defer w.wg.Done()
			w.run(ctx, id)
		}(i + 1)
	}
}

// Stop drains the queue and waits for workers to finish, bounded by a
// shutdown timeout.
func (w *Writer) Stop() {
	w.stopOnce.Do(func() { close(w.stopChan) })

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.log.Info().Msg("persistence writer stopped")
	case <-time.After(30 * time.Second):
		w.log.Warn().Msg("persistence writer shutdown timed out")
	}
}

// Enqueue hands a message to the background writer. A full queue drops
// the write; the turn proceeds regardless.
func (w *Writer) Enqueue(msg *chat.Message) {
	task := &Task{Message: msg, QueuedAt: time.Now()}
	if !w.queue.Enqueue(task) {
		w.log.Error().
			Str("message_id", msg.ID).
			Str("conversation_id", msg.ConversationID).
			Msg("persistence queue full, dropping message")
		metrics.RecordPersistTask("dropped")
		return
	}
	metrics.SetPersistQueueDepth(w.queue.Depth())
}

func (w *Writer) run(ctx context.Context, id int) {
	log := w.log.With().Int("worker_id", id).Logger()
	log.Debug().Msg("persistence worker started")

	for {
		select {
		case <-ctx.Done():
			w.drain(log)
			return
		case <-w.stopChan:
			w.drain(log)
			return
		case task := <-w.queue.Tasks():
			w.process(log, task)
		}
	}
}

// drain flushes whatever is still queued at shutdown.
func (w *Writer) drain(log zerolog.Logger) {
	for {
		select {
		case task := <-w.queue.Tasks():
			w.process(log, task)
		default:
			log.Debug().Msg("persistence worker drained")
			return
		}
	}
}

// process runs each save under its own bounded context rather than the
// pool's lifecycle context, so queued messages still land during
// shutdown after the parent has been cancelled.
func (w *Writer) process(log zerolog.Logger, task *Task) {
	taskCtx, cancel := context.WithTimeout(context.Background(), w.taskTimeout)
	defer cancel()

	if err := w.sink.SaveMessage(taskCtx, task.Message); err != nil {
		log.Error().Err(err).
			Str("message_id", task.Message.ID).
			Str("conversation_id", task.Message.ConversationID).
			Msg("message persistence failed")
		metrics.RecordPersistTask("failed")
	} else {
		metrics.RecordPersistTask("saved")
	}
	metrics.SetPersistQueueDepth(w.queue.Depth())
}

var _ chat.MessageWriter = (*Writer)(nil)
