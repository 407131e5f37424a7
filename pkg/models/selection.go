package models

// OptimizationGoal steers the selection engine's trade-offs.
type OptimizationGoal string

const (
	// OptimizeSpeed prefers fast, parallelizable tools.
	OptimizeSpeed OptimizationGoal = "speed"
	// OptimizeAccuracy prefers reliable, thorough tools regardless of cost.
	OptimizeAccuracy OptimizationGoal = "accuracy"
	// OptimizeBalanced is the default middle ground.
	OptimizeBalanced OptimizationGoal = "balanced"
	// OptimizeCost prefers low-token tools.
	OptimizeCost OptimizationGoal = "cost"
	// OptimizeOrchestration requests the multi-role pipeline explicitly.
	OptimizeOrchestration OptimizationGoal = "orchestration"
)

// Valid returns true if the goal is a known value.
func (g OptimizationGoal) Valid() bool {
	switch g {
	case OptimizeSpeed, OptimizeAccuracy, OptimizeBalanced, OptimizeCost, OptimizeOrchestration:
		return true
	default:
		return false
	}
}

// SelectedTool is one ranked entry in a ToolSelection.
type SelectedTool struct {
	// Name is the tool's catalog name.
	Name string `json:"name"`
	// Confidence is the per-tool selection confidence in [0,1].
	Confidence float64 `json:"confidence"`
	// Reasoning explains why the tool was chosen.
	Reasoning string `json:"reasoning,omitempty"`
	// Parameters are the typed parameters to pass to the tool's executor.
	Parameters ToolParameters `json:"parameters,omitempty"`
}

// ToolParameters is the parameter set for one tool invocation.
// Keys and value shapes are validated by the executor registry per tool name;
// unknown keys are a typed parse error, never silently accepted.
type ToolParameters map[string]string

// ToolSelection is the ranked outcome of the selection engine for one request.
type ToolSelection struct {
	// Tools is the ordered, ranked tool list. Never empty.
	Tools []SelectedTool `json:"tools"`
	// Confidence is the overall selection confidence in [0,1].
	Confidence float64 `json:"confidence"`
	// Goal is the optimization goal the selection was made under.
	Goal OptimizationGoal `json:"goal"`
	// Alternatives lists fallback tool names not already selected.
	// Populated whenever Confidence < 0.8.
	Alternatives []string `json:"alternatives,omitempty"`
	// TokenBudget is the budget the selection was sized against.
	TokenBudget int `json:"token_budget,omitempty"`
	// Heuristic is true when the keyword fallback path produced the selection
	// (reasoning collaborator unavailable or its response unparseable).
	Heuristic bool `json:"heuristic,omitempty"`
}

// Names returns the selected tool names in rank order.
func (s *ToolSelection) Names() []string {
	names := make([]string, len(s.Tools))
	for i, t := range s.Tools {
		names[i] = t.Name
	}
	return names
}

// Contains returns true if the selection already includes the named tool.
func (s *ToolSelection) Contains(name string) bool {
	for _, t := range s.Tools {
		if t.Name == name {
			return true
		}
	}
	return false
}
