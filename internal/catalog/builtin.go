package catalog

import "github.com/kestrelhq/kestrel/pkg/models"

// builtinTools is the descriptor set compiled into every installation.
// Additional tools can be loaded from YAML files (see file.go) but the
// built-ins are always present so a selection is never empty.
var builtinTools = []models.ToolDescriptor{
	{
		Name:           "context-optimizer",
		Capabilities:   []string{"context", "optimization"},
		TokenCost:      models.TokenCostLow,
		ExecutionTime:  models.ExecutionTimeFast,
		Parallelizable: true,
		Reliability:    0.97,
		AutoRunTriggers: []string{
			"analysis", "bug-fix", "review",
		},
		Description: "Prunes and prioritizes project context before analysis.",
	},
	{
		Name:           "semantic-search",
		Capabilities:   []string{"search", "context"},
		TokenCost:      models.TokenCostMedium,
		ExecutionTime:  models.ExecutionTimeFast,
		Parallelizable: true,
		Reliability:    0.92,
		Description:    "Finds code relevant to a query by embedding similarity.",
	},
	{
		Name:           "duplication-detector",
		Capabilities:   []string{"duplication", "quality"},
		TokenCost:      models.TokenCostMedium,
		ExecutionTime:  models.ExecutionTimeMedium,
		Parallelizable: true,
		Reliability:    0.9,
		Description:    "Detects duplicated and near-duplicated code blocks.",
	},
	{
		Name:           "tree-navigator",
		Capabilities:   []string{"architecture", "structure"},
		TokenCost:      models.TokenCostMedium,
		ExecutionTime:  models.ExecutionTimeMedium,
		Parallelizable: true,
		Reliability:    0.93,
		Description:    "Walks the project tree and summarizes structure.",
	},
	{
		Name:           "dependency-mapper",
		Capabilities:   []string{"architecture", "dependencies"},
		TokenCost:      models.TokenCostMedium,
		ExecutionTime:  models.ExecutionTimeSlow,
		Dependencies:   []string{"tree-navigator"},
		Parallelizable: false,
		Reliability:    0.88,
		Description:    "Maps import and call dependencies across modules.",
	},
	{
		Name:           "graph-querier",
		Capabilities:   []string{"architecture", "graph"},
		TokenCost:      models.TokenCostMedium,
		ExecutionTime:  models.ExecutionTimeFast,
		Dependencies:   []string{"dependency-mapper"},
		Parallelizable: false,
		Reliability:    0.9,
		Description:    "Answers structural questions against the knowledge graph.",
	},
	{
		Name:           "security-auditor",
		Capabilities:   []string{"security", "audit"},
		TokenCost:      models.TokenCostHigh,
		ExecutionTime:  models.ExecutionTimeSlow,
		Parallelizable: true,
		Reliability:    0.85,
		Description:    "Audits code paths for insecure patterns and secrets.",
	},
	{
		Name:           "vulnerability-scanner",
		Capabilities:   []string{"security", "vulnerability-scan"},
		TokenCost:      models.TokenCostHigh,
		ExecutionTime:  models.ExecutionTimeSlow,
		Parallelizable: true,
		Reliability:    0.87,
		Description:    "Scans dependencies and code for known vulnerabilities.",
	},
	{
		Name:           "quality-analyzer",
		Capabilities:   []string{"quality", "best-practices"},
		TokenCost:      models.TokenCostMedium,
		ExecutionTime:  models.ExecutionTimeMedium,
		Parallelizable: true,
		Reliability:    0.91,
		AutoRunTriggers: []string{
			"review",
		},
		Description: "Scores code against style and maintainability rules.",
	},
	{
		Name:           "test-coverage-checker",
		Capabilities:   []string{"quality", "testing"},
		TokenCost:      models.TokenCostLow,
		ExecutionTime:  models.ExecutionTimeFast,
		Parallelizable: true,
		Reliability:    0.95,
		AutoRunTriggers: []string{
			"bug-fix",
		},
		Description: "Reports test coverage for the touched packages.",
	},
	{
		Name:           "compilation-checker",
		Capabilities:   []string{"verification", "testing"},
		TokenCost:      models.TokenCostLow,
		ExecutionTime:  models.ExecutionTimeFast,
		Parallelizable: true,
		Reliability:    0.96,
		AutoRunTriggers: []string{
			"bug-fix",
		},
		Description: "Verifies the project still compiles after changes.",
	},
	{
		Name:           "error-tracer",
		Capabilities:   []string{"debugging", "tracing"},
		TokenCost:      models.TokenCostMedium,
		ExecutionTime:  models.ExecutionTimeFast,
		Parallelizable: true,
		Reliability:    0.89,
		AutoRunTriggers: []string{
			"bug-fix",
		},
		Description: "Traces error propagation paths from a failure site.",
	},
	{
		Name:           "performance-profiler",
		Capabilities:   []string{"performance", "profiling"},
		TokenCost:      models.TokenCostHigh,
		ExecutionTime:  models.ExecutionTimeSlow,
		Parallelizable: true,
		Reliability:    0.84,
		Description:    "Profiles hot paths and allocation behavior.",
	},
	{
		Name:           "doc-generator",
		Capabilities:   []string{"documentation"},
		TokenCost:      models.TokenCostMedium,
		ExecutionTime:  models.ExecutionTimeMedium,
		Parallelizable: true,
		Reliability:    0.93,
		Description:    "Generates and checks package documentation.",
	},
}

// NewDefault creates a catalog preloaded with the built-in tool set.
// Panics on a built-in registration or cycle error since that is a
// compile-time configuration bug.
func NewDefault() *Catalog {
	c := New()
	for i := range builtinTools {
		if err := c.Register(&builtinTools[i]); err != nil {
			panic("catalog: invalid built-in tool set: " + err.Error())
		}
	}
	if err := c.CheckAcyclic(); err != nil {
		panic("catalog: built-in tool set has a dependency cycle: " + err.Error())
	}
	return c
}
