package followup

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-interactions/core"
)

// MemoryQueue is a process local job queue. Messages with an idempotency
// key already waiting in the queue are dropped. Dead letters are kept for
// inspection.
type MemoryQueue struct {
	mu      sync.Mutex
	items   chan *core.JobExecutionMessage
	pending map[string]struct{}
	dead    []*core.JobExecutionMessage
	closed  bool
}

func NewMemoryQueue(capacity int) *MemoryQueue {
	if capacity <= 0 {
		capacity = 128
	}
	return &MemoryQueue{
		items:   make(chan *core.JobExecutionMessage, capacity),
		pending: map[string]struct{}{},
	}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, msg *core.JobExecutionMessage) error {
	if q == nil {
		return fmt.Errorf("followup: queue is nil")
	}
	if msg == nil {
		return fmt.Errorf("followup: execution message is required")
	}
	key := strings.TrimSpace(msg.IdempotencyKey)

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return fmt.Errorf("followup: queue is closed")
	}
	if key != "" {
		if _, exists := q.pending[key]; exists {
			return nil
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case q.items <- cloneMessage(msg):
	default:
		return fmt.Errorf("followup: queue is full")
	}
	if key != "" {
		q.pending[key] = struct{}{}
	}
	return nil
}

// Dequeue blocks until a message is available or ctx is done.
func (q *MemoryQueue) Dequeue(ctx context.Context) (core.JobDelivery, error) {
	if q == nil {
		return nil, fmt.Errorf("followup: queue is nil")
	}
	select {
	case msg, ok := <-q.items:
		if !ok {
			return nil, fmt.Errorf("followup: queue is closed")
		}
		return &memoryDelivery{queue: q, msg: msg}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *MemoryQueue) Len() int {
	if q == nil {
		return 0
	}
	return len(q.items)
}

func (q *MemoryQueue) DeadLetters() []*core.JobExecutionMessage {
	if q == nil {
		return nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*core.JobExecutionMessage, 0, len(q.dead))
	for _, msg := range q.dead {
		out = append(out, cloneMessage(msg))
	}
	return out
}

func (q *MemoryQueue) Close() {
	if q == nil {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.items)
}

func (q *MemoryQueue) release(key string) {
	if key == "" {
		return
	}
	q.mu.Lock()
	delete(q.pending, key)
	q.mu.Unlock()
}

func (q *MemoryQueue) requeue(msg *core.JobExecutionMessage) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	select {
	case q.items <- msg:
	default:
		q.deadLetterLocked(msg)
	}
}

func (q *MemoryQueue) deadLetter(msg *core.JobExecutionMessage) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.deadLetterLocked(msg)
}

func (q *MemoryQueue) deadLetterLocked(msg *core.JobExecutionMessage) {
	q.dead = append(q.dead, msg)
	delete(q.pending, strings.TrimSpace(msg.IdempotencyKey))
}

type memoryDelivery struct {
	queue *MemoryQueue
	msg   *core.JobExecutionMessage
	once  sync.Once
}

func (d *memoryDelivery) Message() *core.JobExecutionMessage {
	return cloneMessage(d.msg)
}

func (d *memoryDelivery) Ack(context.Context) error {
	d.once.Do(func() {
		d.queue.release(strings.TrimSpace(d.msg.IdempotencyKey))
	})
	return nil
}

// Nack requeues after opts.Delay, or dead letters the message. The
// idempotency key stays claimed while a retry is scheduled.
func (d *memoryDelivery) Nack(_ context.Context, opts core.JobNackOptions) error {
	d.once.Do(func() {
		if opts.DeadLetter || !opts.Requeue {
			d.queue.deadLetter(d.msg)
			return
		}
		if opts.Delay <= 0 {
			d.queue.requeue(d.msg)
			return
		}
		msg := d.msg
		time.AfterFunc(opts.Delay, func() { d.queue.requeue(msg) })
	})
	return nil
}

func cloneMessage(msg *core.JobExecutionMessage) *core.JobExecutionMessage {
	if msg == nil {
		return nil
	}
	cloned := *msg
	cloned.Parameters = make(map[string]any, len(msg.Parameters))
	for key, value := range msg.Parameters {
		cloned.Parameters[key] = value
	}
	return &cloned
}

var (
	_ core.JobEnqueuer = (*MemoryQueue)(nil)
	_ core.JobDequeuer = (*MemoryQueue)(nil)
	_ core.JobDelivery = (*memoryDelivery)(nil)
)
