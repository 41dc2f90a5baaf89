package persist

import (
	"time"

	"companion-server/services/chat-api/internal/domain/chat"
)

// Task is one message waiting to be written to the store.
type Task struct {
	Message  *chat.Message
	QueuedAt time.Time
}

// Queue is a bounded in-process task queue feeding the writer pool.
// Enqueue never blocks the response path: a full queue drops the task
// and reports the drop to the caller.
type Queue struct {
	tasks chan *Task
}

// NewQueue creates a queue with the given capacity.
func NewQueue(size int) *Queue {
	if size <= 0 {
		size = 256
	}
	return &Queue{tasks: make(chan *Task, size)}
}

// Enqueue offers a task to the queue. Returns false when the queue is
// full and the task was dropped.
func (q *Queue) Enqueue(task *Task) bool {
	select {
	case q.tasks <- task:
		return true
	default:
		return false
	}
}

// Tasks exposes the consumer side of the queue.
func (q *Queue) Tasks() <-chan *Task {
	return q.tasks
}

// Depth returns the number of queued tasks.
func (q *Queue) Depth() int {
	return len(q.tasks)
}
