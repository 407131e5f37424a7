package models

import "time"

// PerformanceRecord is one historical observation of a tool or role.
// Records are append-only; effectiveness is derived from them, never edited.
type PerformanceRecord struct {
	// Subject is the tool or role name the record is about.
	Subject string `json:"subject"`
	// ResponseTimeMs is the observed wall-clock duration.
	ResponseTimeMs int64 `json:"response_time_ms"`
	// Success is whether the invocation succeeded.
	Success bool `json:"success"`
	// Relevance scores how useful the output was, in [0,1].
	Relevance float64 `json:"relevance"`
	// RecordedAt is when the observation was made.
	RecordedAt time.Time `json:"recorded_at"`
}

// Decision is a persisted record of one selection or plan decision, kept so
// effectiveness can be evaluated after the fact.
type Decision struct {
	// ID is the unique decision identifier.
	ID string `json:"id"`
	// Task is the task text the decision was made for.
	Task string `json:"task"`
	// Goal is the optimization goal in effect.
	Goal OptimizationGoal `json:"goal"`
	// Tools are the selected tool names in rank order.
	Tools []string `json:"tools"`
	// Confidence is the selection confidence.
	Confidence float64 `json:"confidence"`
	// Heuristic is true when the keyword fallback produced the selection.
	Heuristic bool `json:"heuristic"`
	// Orchestrated is true when the decision led to a multi-role pipeline.
	Orchestrated bool `json:"orchestrated"`
	// CreatedAt is when the decision was recorded.
	CreatedAt time.Time `json:"created_at"`
}
