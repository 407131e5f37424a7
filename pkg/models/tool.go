package models

// TokenCost classifies a tool's token consumption.
type TokenCost string

const (
	// TokenCostLow is roughly 500 tokens per invocation.
	TokenCostLow TokenCost = "low"
	// TokenCostMedium is roughly 1000 tokens per invocation.
	TokenCostMedium TokenCost = "medium"
	// TokenCostHigh is roughly 2000 tokens per invocation.
	TokenCostHigh TokenCost = "high"
)

// Valid returns true if the cost class is a known value.
func (c TokenCost) Valid() bool {
	switch c {
	case TokenCostLow, TokenCostMedium, TokenCostHigh:
		return true
	default:
		return false
	}
}

// Tokens returns the estimated token count for this cost class.
func (c TokenCost) Tokens() int {
	switch c {
	case TokenCostLow:
		return 500
	case TokenCostHigh:
		return 2000
	default:
		return 1000
	}
}

// ExecutionTime classifies how long a tool typically runs.
type ExecutionTime string

const (
	// ExecutionTimeFast is roughly one second.
	ExecutionTimeFast ExecutionTime = "fast"
	// ExecutionTimeMedium is roughly two seconds.
	ExecutionTimeMedium ExecutionTime = "medium"
	// ExecutionTimeSlow is roughly five seconds.
	ExecutionTimeSlow ExecutionTime = "slow"
)

// Valid returns true if the time class is a known value.
func (t ExecutionTime) Valid() bool {
	switch t {
	case ExecutionTimeFast, ExecutionTimeMedium, ExecutionTimeSlow:
		return true
	default:
		return false
	}
}

// DurationMs returns the estimated duration in milliseconds for this class.
func (t ExecutionTime) DurationMs() int64 {
	switch t {
	case ExecutionTimeFast:
		return 1000
	case ExecutionTimeSlow:
		return 5000
	default:
		return 2000
	}
}

// ToolDescriptor describes a single analysis tool registered in the catalog.
// Descriptors are registered once at startup (or appended at runtime) and are
// never mutated afterward.
type ToolDescriptor struct {
	// Name is the unique key for this tool.
	Name string `json:"name" yaml:"name"`
	// Capabilities tags what the tool can do (e.g. "duplication", "search").
	Capabilities []string `json:"capabilities" yaml:"capabilities"`
	// TokenCost is the token consumption class.
	TokenCost TokenCost `json:"token_cost" yaml:"token_cost"`
	// ExecutionTime is the wall-clock duration class.
	ExecutionTime ExecutionTime `json:"execution_time" yaml:"execution_time"`
	// Dependencies lists tool names that must run before or alongside this tool.
	Dependencies []string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	// Parallelizable indicates the tool can run concurrently with others.
	Parallelizable bool `json:"parallelizable" yaml:"parallelizable"`
	// Reliability is the historical success rate in [0,1].
	Reliability float64 `json:"reliability" yaml:"reliability"`
	// AutoRunTriggers lists request-type tags that auto-select this tool.
	AutoRunTriggers []string `json:"auto_run_triggers,omitempty" yaml:"auto_run_triggers,omitempty"`
	// Description is the human-readable summary used in reasoning prompts.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// HasCapability returns true if the descriptor carries the given tag.
func (d *ToolDescriptor) HasCapability(tag string) bool {
	for _, c := range d.Capabilities {
		if c == tag {
			return true
		}
	}
	return false
}
