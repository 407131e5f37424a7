package models

// RoleID identifies a specialized pipeline stage.
type RoleID string

const (
	// RoleContextOptimization is the cross-cutting first stage of every pipeline.
	RoleContextOptimization RoleID = "context-optimization"
	// RoleArchitect analyzes structure and design.
	RoleArchitect RoleID = "architect"
	// RoleSecurity analyzes vulnerabilities and hardening.
	RoleSecurity RoleID = "security"
	// RoleQuality analyzes code quality and test coverage.
	RoleQuality RoleID = "quality"
	// RoleRefactoring proposes restructuring work.
	RoleRefactoring RoleID = "refactoring"
	// RolePerformance analyzes hot paths and resource use.
	RolePerformance RoleID = "performance"
	// RoleDocumentation analyzes and produces documentation.
	RoleDocumentation RoleID = "documentation"
	// RoleCoordinator synthesizes prior roles' findings. Always last.
	RoleCoordinator RoleID = "coordinator"
)

// RoleDefinition binds a role to the catalog tools relevant to it.
type RoleDefinition struct {
	// ID is the role identifier.
	ID RoleID `json:"id"`
	// Tools are the catalog tool names this role runs.
	Tools []string `json:"tools"`
	// TerminalOnly marks roles that may only appear at the end of a pipeline.
	TerminalOnly bool `json:"terminal_only,omitempty"`
}

// OrchestrationPlan is the multi-role pipeline derived for complex tasks.
type OrchestrationPlan struct {
	// Pipeline is the ordered role sequence.
	Pipeline []RoleDefinition `json:"pipeline"`
	// AnalysisMapping maps each role to the tools it will run.
	AnalysisMapping map[RoleID][]string `json:"analysis_mapping"`
	// CoordinationRequired is true when the pipeline has more than two roles.
	CoordinationRequired bool `json:"coordination_required"`
	// EstimatedTokens is the summed token estimate across roles.
	EstimatedTokens int `json:"estimated_tokens"`
	// EstimatedDurationMs is the summed duration estimate across roles,
	// including coordination overhead when required.
	EstimatedDurationMs int64 `json:"estimated_duration_ms"`
}

// RoleIDs returns the pipeline's role IDs in order.
func (p *OrchestrationPlan) RoleIDs() []RoleID {
	ids := make([]RoleID, len(p.Pipeline))
	for i, r := range p.Pipeline {
		ids[i] = r.ID
	}
	return ids
}
