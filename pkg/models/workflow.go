package models

import "time"

// WorkflowInput is the payload carried through a pipeline. Context
// accumulates across roles: each role appends its findings and never removes
// prior entries.
type WorkflowInput struct {
	// Query is the original task description.
	Query string `json:"query"`
	// ProjectPath is the repository or directory being analyzed.
	ProjectPath string `json:"project_path,omitempty"`
	// Context accumulates role findings keyed by role ID.
	Context map[string]string `json:"context,omitempty"`
}

// Clone returns a deep copy so a role can enrich its own copy without
// mutating the message already acknowledged upstream.
func (in WorkflowInput) Clone() WorkflowInput {
	out := in
	if in.Context != nil {
		out.Context = make(map[string]string, len(in.Context))
		for k, v := range in.Context {
			out.Context[k] = v
		}
	}
	return out
}

// WorkflowMessage is the unit of work delivered to one role worker.
type WorkflowMessage struct {
	// WorkflowID identifies the pipeline run this message belongs to.
	WorkflowID string `json:"workflow_id"`
	// Role is the role this message is addressed to.
	Role RoleID `json:"role"`
	// Step is this role's 1-indexed position in the pipeline.
	Step int `json:"step"`
	// TotalSteps is the pipeline length.
	TotalSteps int `json:"total_steps"`
	// Input carries the query plus accumulated context.
	Input WorkflowInput `json:"input"`
	// RetryCount is the number of failed attempts so far.
	RetryCount int `json:"retry_count"`
	// MaxRetries is the retry budget before dead-lettering.
	MaxRetries int `json:"max_retries"`
	// Priority is a scheduling hint carried with the message. Whether it
	// affects dequeue order is transport-dependent; the in-memory and
	// JetStream transports are FIFO per role.
	Priority int `json:"priority"`
	// Deadline is the overall workflow deadline, zero if none.
	Deadline time.Time `json:"deadline,omitzero"`
}

// CompletionStatus is the outcome class of a role invocation.
type CompletionStatus string

const (
	// StatusProgress is an intermediate status update.
	StatusProgress CompletionStatus = "progress"
	// StatusComplete means the role finished successfully.
	StatusComplete CompletionStatus = "complete"
	// StatusError means the role failed terminally (retries exhausted or
	// workflow deadline exceeded).
	StatusError CompletionStatus = "error"
)

// WorkflowCompletion is a role's status report back to the orchestrator.
type WorkflowCompletion struct {
	// WorkflowID identifies the pipeline run.
	WorkflowID string `json:"workflow_id"`
	// Role is the reporting role.
	Role RoleID `json:"role"`
	// Status is the outcome class.
	Status CompletionStatus `json:"status"`
	// Result is the role's finding on success.
	Result string `json:"result,omitempty"`
	// Error is the failure message on error.
	Error string `json:"error,omitempty"`
	// EnrichedContext is the accumulated context after this role.
	EnrichedContext map[string]string `json:"enriched_context,omitempty"`
	// NextRole is the role queued after this one, empty when terminal.
	NextRole RoleID `json:"next_role,omitempty"`
	// RetryCount is the number of failed attempts before this outcome.
	RetryCount int `json:"retry_count"`
	// CompletedAt is when the role finished.
	CompletedAt time.Time `json:"completed_at"`
}
