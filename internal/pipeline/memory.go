package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kestrelhq/kestrel/pkg/models"
)

// queueCapacity bounds each in-memory role queue.
const queueCapacity = 256

// MemoryTransport is a channel-backed Transport for single-process mode and
// tests. Queues are FIFO per role; enqueue fails rather than blocks when a
// queue is full so a stuck worker cannot deadlock the orchestrator.
type MemoryTransport struct {
	mu          sync.Mutex
	queues      map[models.RoleID]chan models.WorkflowMessage
	completions chan models.WorkflowCompletion
	closed      bool
}

// NewMemoryTransport creates an empty in-memory transport.
func NewMemoryTransport() *MemoryTransport {
	return &MemoryTransport{
		queues:      make(map[models.RoleID]chan models.WorkflowMessage),
		completions: make(chan models.WorkflowCompletion, queueCapacity),
	}
}

func (t *MemoryTransport) queue(role models.RoleID) chan models.WorkflowMessage {
	t.mu.Lock()
	defer t.mu.Unlock()

	q, ok := t.queues[role]
	if !ok {
		q = make(chan models.WorkflowMessage, queueCapacity)
		t.queues[role] = q
	}
	return q
}

// Enqueue publishes a message to its role's queue.
func (t *MemoryTransport) Enqueue(ctx context.Context, msg models.WorkflowMessage) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return fmt.Errorf("transport closed")
	}
	t.mu.Unlock()

	select {
	case t.queue(msg.Role) <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fmt.Errorf("queue for role %s is full", msg.Role)
	}
}

// Pop blocks up to wait for the next message on the role's queue.
func (t *MemoryTransport) Pop(ctx context.Context, role models.RoleID, wait time.Duration) (*models.WorkflowMessage, error) {
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case msg := <-t.queue(role):
		return &msg, nil
	case <-timer.C:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// PublishCompletion reports a role outcome.
func (t *MemoryTransport) PublishCompletion(ctx context.Context, c models.WorkflowCompletion) error {
	select {
	case t.completions <- c:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PopCompletion blocks up to wait for the next completion.
func (t *MemoryTransport) PopCompletion(ctx context.Context, wait time.Duration) (*models.WorkflowCompletion, error) {
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case c := <-t.completions:
		return &c, nil
	case <-timer.C:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close marks the transport closed. Queued messages remain readable so
// in-flight workflows can drain.
func (t *MemoryTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}
