// Package pipeline is the queue-driven execution substrate for multi-role
// workflows: per-role queues, blocking workers, retry bookkeeping, and
// dead-letter preservation.
package pipeline

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/kestrelhq/kestrel/pkg/models"
)

// debugEnabled gates verbose pipeline logging.
var debugEnabled = os.Getenv("KESTREL_DEBUG") != ""

func debugLog(format string, args ...interface{}) {
	if debugEnabled {
		log.Printf(format, args...)
	}
}

// Transport is the queue broker contract: per-role named queues with
// blocking pop and enqueue, plus a completion channel. The exact technology
// is a deployment choice; this package ships an in-memory transport for
// single-process mode and a NATS JetStream transport for distributed mode.
type Transport interface {
	// Enqueue publishes a message to its role's queue.
	Enqueue(ctx context.Context, msg models.WorkflowMessage) error
	// Pop blocks up to wait for the next message on the role's queue.
	// A timeout returns (nil, nil) so workers can re-check shutdown signals.
	Pop(ctx context.Context, role models.RoleID, wait time.Duration) (*models.WorkflowMessage, error)
	// PublishCompletion reports a role outcome to the orchestrator.
	PublishCompletion(ctx context.Context, c models.WorkflowCompletion) error
	// PopCompletion blocks up to wait for the next completion.
	// A timeout returns (nil, nil).
	PopCompletion(ctx context.Context, wait time.Duration) (*models.WorkflowCompletion, error)
	// Close releases transport resources.
	Close() error
}

// DeadLetterSink preserves messages that exhausted their retry budget.
// *recorder.Store satisfies it.
type DeadLetterSink interface {
	DeadLetter(msg models.WorkflowMessage, reason string) error
}
