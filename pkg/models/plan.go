package models

// ExecutionStrategy is how a plan's tools are scheduled.
type ExecutionStrategy string

const (
	// StrategyParallel runs every tool concurrently.
	StrategyParallel ExecutionStrategy = "parallel"
	// StrategySequential runs tools one at a time in rank order.
	StrategySequential ExecutionStrategy = "sequential"
	// StrategyAdaptive runs independent tools concurrently per dependency level.
	StrategyAdaptive ExecutionStrategy = "adaptive"
)

// ExecutionGroup is one scheduling unit of a plan: tools in the same group
// may run concurrently, groups run in order.
type ExecutionGroup struct {
	// Tools are the tool names in this group.
	Tools []string `json:"tools"`
}

// ExecutionPlan is the executable form of a ToolSelection.
type ExecutionPlan struct {
	// Selection is the selection this plan was derived from.
	Selection ToolSelection `json:"selection"`
	// Strategy is the scheduling strategy.
	Strategy ExecutionStrategy `json:"strategy"`
	// Groups is the ordered grouping of tools. For parallel plans there is a
	// single group; for sequential plans one tool per group.
	Groups []ExecutionGroup `json:"groups"`
	// EstimatedTokens is the summed token cost of all selected tools.
	EstimatedTokens int `json:"estimated_tokens"`
	// EstimatedDurationMs is the estimated wall-clock duration.
	EstimatedDurationMs int64 `json:"estimated_duration_ms"`
	// FallbackChain lists tools to try if the primary selection underperforms.
	// Non-empty only when the selection confidence is below 0.8.
	FallbackChain []string `json:"fallback_chain,omitempty"`
}

// ToolExecutionStatus reports one tool's outcome within a plan run.
type ToolExecutionStatus string

const (
	// ToolStatusOK means the tool completed successfully.
	ToolStatusOK ToolExecutionStatus = "ok"
	// ToolStatusFailed means the tool returned an error.
	ToolStatusFailed ToolExecutionStatus = "failed"
	// ToolStatusSkipped means the tool was not run (unknown name, or its
	// dependency level failed entirely).
	ToolStatusSkipped ToolExecutionStatus = "skipped"
)

// ToolResult is the outcome of one tool invocation.
type ToolResult struct {
	// Tool is the tool name.
	Tool string `json:"tool"`
	// Status is the invocation outcome.
	Status ToolExecutionStatus `json:"status"`
	// Output is the tool's result payload, if any.
	Output string `json:"output,omitempty"`
	// Error is the failure message when Status is failed.
	Error string `json:"error,omitempty"`
	// DurationMs is the observed wall-clock duration.
	DurationMs int64 `json:"duration_ms"`
}
