package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/kestrelhq/kestrel/pkg/models"
)

// popTimeout bounds each blocking pop so workers can re-check shutdown.
const popTimeout = 2 * time.Second

// RoleHandler is the analysis logic for one role. The returned enriched map
// is merged into the workflow context under the handler's findings; the
// result string is the role's summary.
type RoleHandler interface {
	Handle(ctx context.Context, msg models.WorkflowMessage) (result string, enriched map[string]string, err error)
}

// RoleHandlerFunc adapts a function to RoleHandler.
type RoleHandlerFunc func(ctx context.Context, msg models.WorkflowMessage) (string, map[string]string, error)

// Handle implements RoleHandler.
func (f RoleHandlerFunc) Handle(ctx context.Context, msg models.WorkflowMessage) (string, map[string]string, error) {
	return f(ctx, msg)
}

// Router tells a worker which role follows the current one in a workflow.
// The Runtime implements it from its workflow registry.
type Router interface {
	NextRole(workflowID string, current models.RoleID) (models.RoleID, bool)
}

// Worker is a single blocking consumer loop for one role's queue. Multiple
// workers per role are permitted; a message is processed by exactly one.
type Worker struct {
	role      models.RoleID
	transport Transport
	handler   RoleHandler
	router    Router
	retry     RetryConfig
	dead      DeadLetterSink
}

// NewWorker creates a worker for the given role.
func NewWorker(role models.RoleID, transport Transport, handler RoleHandler, router Router, retry RetryConfig, dead DeadLetterSink) *Worker {
	return &Worker{
		role:      role,
		transport: transport,
		handler:   handler,
		router:    router,
		retry:     retry,
		dead:      dead,
	}
}

// Run consumes the role queue until ctx is canceled.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msg, err := w.transport.Pop(ctx, w.role, popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			debugLog("[worker %s] pop error: %v", w.role, err)
			continue
		}
		if msg == nil {
			continue
		}
		w.process(ctx, *msg)
	}
}

// process runs one delivery attempt and handles the success, retry,
// dead-letter, and deadline outcomes.
func (w *Worker) process(ctx context.Context, msg models.WorkflowMessage) {
	// An expired workflow deadline is fatal for the workflow regardless of
	// remaining retry budget.
	if !msg.Deadline.IsZero() && time.Now().After(msg.Deadline) {
		w.emit(ctx, models.WorkflowCompletion{
			WorkflowID:  msg.WorkflowID,
			Role:        msg.Role,
			Status:      models.StatusError,
			Error:       "workflow deadline exceeded",
			RetryCount:  msg.RetryCount,
			CompletedAt: time.Now(),
		})
		return
	}

	roleCtx := ctx
	if w.retry.RoleTimeout > 0 {
		var cancel context.CancelFunc
		roleCtx, cancel = context.WithTimeout(ctx, w.retry.RoleTimeout)
		defer cancel()
	}

	result, enriched, err := w.handler.Handle(roleCtx, msg)
	if err != nil {
		w.fail(ctx, msg, err)
		return
	}

	// Context only grows across the pipeline: merge the handler's findings
	// into a copy of the inbound context.
	input := msg.Input.Clone()
	if input.Context == nil {
		input.Context = make(map[string]string)
	}
	for k, v := range enriched {
		input.Context[k] = v
	}
	if result != "" {
		input.Context[string(msg.Role)] = result
	}

	done := models.WorkflowCompletion{
		WorkflowID:      msg.WorkflowID,
		Role:            msg.Role,
		Status:          models.StatusComplete,
		Result:          result,
		EnrichedContext: input.Context,
		RetryCount:      msg.RetryCount,
		CompletedAt:     time.Now(),
	}

	if next, ok := w.router.NextRole(msg.WorkflowID, msg.Role); ok {
		done.NextRole = next
		nextMsg := models.WorkflowMessage{
			WorkflowID: msg.WorkflowID,
			Role:       next,
			Step:       msg.Step + 1,
			TotalSteps: msg.TotalSteps,
			Input:      input,
			MaxRetries: msg.MaxRetries,
			Priority:   msg.Priority,
			Deadline:   msg.Deadline,
		}
		if err := w.transport.Enqueue(ctx, nextMsg); err != nil {
			debugLog("[worker %s] enqueue next role %s failed: %v", w.role, next, err)
			done.Status = models.StatusError
			done.Error = fmt.Sprintf("handoff to %s failed: %v", next, err)
			done.NextRole = ""
		}
	}

	w.emit(ctx, done)
}

// fail re-enqueues with backoff while budget remains, then dead-letters.
// A failed re-enqueue counts as retry exhaustion: the message must end up
// either back on the queue or in the dead-letter store, never dropped.
func (w *Worker) fail(ctx context.Context, msg models.WorkflowMessage, cause error) {
	msg.RetryCount++
	debugLog("[worker %s] workflow %s attempt failed (retry %d/%d): %v",
		w.role, msg.WorkflowID, msg.RetryCount, msg.MaxRetries, cause)

	if msg.RetryCount <= msg.MaxRetries {
		delay := w.retry.Delay(msg.RetryCount)
		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return
			}
		}
		err := w.transport.Enqueue(ctx, msg)
		if err == nil {
			return
		}
		debugLog("[worker %s] re-enqueue failed, dead-lettering: %v", w.role, err)
		cause = fmt.Errorf("re-enqueue after failure: %v (attempt error: %v)", err, cause)
	}

	if w.dead != nil {
		if err := w.dead.DeadLetter(msg, cause.Error()); err != nil {
			debugLog("[worker %s] dead-letter store failed: %v", w.role, err)
		}
	}

	w.emit(ctx, models.WorkflowCompletion{
		WorkflowID:  msg.WorkflowID,
		Role:        msg.Role,
		Status:      models.StatusError,
		Error:       cause.Error(),
		RetryCount:  msg.RetryCount,
		CompletedAt: time.Now(),
	})
}

func (w *Worker) emit(ctx context.Context, done models.WorkflowCompletion) {
	if err := w.transport.PublishCompletion(ctx, done); err != nil {
		debugLog("[worker %s] publish completion failed: %v", w.role, err)
	}
}
