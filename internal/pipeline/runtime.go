package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kestrelhq/kestrel/pkg/models"
)

// WorkflowStatus is the lifecycle state of one pipeline run.
type WorkflowStatus string

const (
	// WorkflowRunning means at least one role has work outstanding.
	WorkflowRunning WorkflowStatus = "running"
	// WorkflowCompleted means the last role finished successfully.
	WorkflowCompleted WorkflowStatus = "completed"
	// WorkflowFailed means a role exhausted its retries or the deadline
	// passed. Earlier roles' results remain inspectable.
	WorkflowFailed WorkflowStatus = "failed"
)

// WorkflowOptions tunes one workflow run.
type WorkflowOptions struct {
	// MaxRetries overrides the retry budget per role. Negative means 0;
	// zero means the runtime default.
	MaxRetries int
	// Deadline is the overall workflow budget. Zero means none.
	Deadline time.Duration
	// Priority orders messages within role queues.
	Priority int
}

// workflowState tracks one running workflow.
type workflowState struct {
	id          string
	pipeline    []models.RoleID
	status      WorkflowStatus
	completions []models.WorkflowCompletion
	watch       chan models.WorkflowCompletion
}

// workerSpec is a registered role handler awaiting Start.
type workerSpec struct {
	role      models.RoleID
	handler   RoleHandler
	instances int
}

// Runtime owns the workers, the workflow registry, and completion routing.
type Runtime struct {
	transport Transport
	dead      DeadLetterSink
	retry     RetryConfig

	mu        sync.RWMutex
	workflows map[string]*workflowState
	specs     []workerSpec
	started   bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRuntime creates a runtime over the given transport. dead may be nil,
// in which case exhausted messages are only reported, not preserved.
func NewRuntime(transport Transport, dead DeadLetterSink, retry RetryConfig) *Runtime {
	if retry.MaxRetries == 0 && retry.BackoffBase == 0 {
		retry = DefaultRetryConfig
	}
	return &Runtime{
		transport: transport,
		dead:      dead,
		retry:     retry,
		workflows: make(map[string]*workflowState),
	}
}

// RegisterWorkers registers instances of a role handler. Must be called
// before Start.
func (r *Runtime) RegisterWorkers(role models.RoleID, handler RoleHandler, instances int) error {
	if instances < 1 {
		instances = 1
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return fmt.Errorf("runtime already started")
	}
	r.specs = append(r.specs, workerSpec{role: role, handler: handler, instances: instances})
	return nil
}

// Start launches the registered workers and the completion dispatcher.
func (r *Runtime) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return fmt.Errorf("runtime already started")
	}
	r.started = true
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	specs := r.specs
	r.mu.Unlock()

	for _, spec := range specs {
		for i := 0; i < spec.instances; i++ {
			worker := NewWorker(spec.role, r.transport, spec.handler, r, r.retry, r.dead)
			r.wg.Add(1)
			go func() {
				defer r.wg.Done()
				worker.Run(runCtx)
			}()
		}
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.dispatch(runCtx)
	}()
	return nil
}

// Stop cancels all workers and waits for them to drain.
func (r *Runtime) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	r.wg.Wait()
}

// StartWorkflow enqueues the first role of the plan's pipeline and returns
// the workflow ID plus a channel of its completions. The channel closes when
// the workflow reaches a terminal state.
func (r *Runtime) StartWorkflow(ctx context.Context, plan models.OrchestrationPlan, input models.WorkflowInput, opts WorkflowOptions) (string, <-chan models.WorkflowCompletion, error) {
	pipeline := plan.RoleIDs()
	if len(pipeline) == 0 {
		return "", nil, fmt.Errorf("orchestration plan has no roles")
	}

	maxRetries := opts.MaxRetries
	if maxRetries == 0 {
		maxRetries = r.retry.MaxRetries
	}
	if maxRetries < 0 {
		maxRetries = 0
	}

	id := uuid.New().String()[:8]
	state := &workflowState{
		id:       id,
		pipeline: pipeline,
		status:   WorkflowRunning,
		watch:    make(chan models.WorkflowCompletion, len(pipeline)*2+4),
	}

	r.mu.Lock()
	r.workflows[id] = state
	r.mu.Unlock()

	msg := models.WorkflowMessage{
		WorkflowID: id,
		Role:       pipeline[0],
		Step:       1,
		TotalSteps: len(pipeline),
		Input:      input,
		MaxRetries: maxRetries,
		Priority:   opts.Priority,
	}
	if opts.Deadline > 0 {
		msg.Deadline = time.Now().Add(opts.Deadline)
	}

	if err := r.transport.Enqueue(ctx, msg); err != nil {
		r.mu.Lock()
		delete(r.workflows, id)
		r.mu.Unlock()
		return "", nil, fmt.Errorf("enqueue first role: %w", err)
	}

	debugLog("[runtime] workflow %s started: pipeline=%v retries=%d", id, pipeline, maxRetries)
	return id, state.watch, nil
}

// NextRole implements Router from the workflow registry.
func (r *Runtime) NextRole(workflowID string, current models.RoleID) (models.RoleID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.workflows[workflowID]
	if !ok {
		return "", false
	}
	for i, role := range state.pipeline {
		if role == current && i+1 < len(state.pipeline) {
			return state.pipeline[i+1], true
		}
	}
	return "", false
}

// dispatch routes completions to workflow watchers and resolves terminal
// states.
func (r *Runtime) dispatch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		done, err := r.transport.PopCompletion(ctx, popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			debugLog("[runtime] completion pop error: %v", err)
			continue
		}
		if done == nil {
			continue
		}
		r.route(*done)
	}
}

func (r *Runtime) route(done models.WorkflowCompletion) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.workflows[done.WorkflowID]
	if !ok {
		debugLog("[runtime] completion for unknown workflow %s dropped", done.WorkflowID)
		return
	}
	if state.status != WorkflowRunning {
		debugLog("[runtime] completion for terminal workflow %s dropped", done.WorkflowID)
		return
	}

	state.completions = append(state.completions, done)

	terminal := false
	switch done.Status {
	case models.StatusError:
		state.status = WorkflowFailed
		terminal = true
	case models.StatusComplete:
		if done.Role == state.pipeline[len(state.pipeline)-1] {
			state.status = WorkflowCompleted
			terminal = true
		}
	}

	select {
	case state.watch <- done:
	default:
		debugLog("[runtime] watcher for workflow %s is full, dropping update", done.WorkflowID)
	}
	if terminal {
		close(state.watch)
		debugLog("[runtime] workflow %s finished: %s", done.WorkflowID, state.status)
	}
}

// WorkflowView is a point-in-time snapshot of one workflow.
type WorkflowView struct {
	ID          string
	Pipeline    []models.RoleID
	Status      WorkflowStatus
	Completions []models.WorkflowCompletion
}

// Status returns a snapshot of the workflow, and false for unknown IDs.
func (r *Runtime) Status(workflowID string) (WorkflowView, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.workflows[workflowID]
	if !ok {
		return WorkflowView{}, false
	}
	view := WorkflowView{
		ID:          state.id,
		Pipeline:    append([]models.RoleID{}, state.pipeline...),
		Status:      state.status,
		Completions: append([]models.WorkflowCompletion{}, state.completions...),
	}
	return view, true
}
