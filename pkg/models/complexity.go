package models

// Scope classifies how much of a codebase a task touches.
type Scope string

const (
	// ScopeNarrow is a single file or function.
	ScopeNarrow Scope = "narrow"
	// ScopeMedium is the default when no scope signal is present.
	ScopeMedium Scope = "medium"
	// ScopeBroad covers a whole project or system.
	ScopeBroad Scope = "broad"
	// ScopeComprehensive is an exhaustive, everything-included analysis.
	ScopeComprehensive Scope = "comprehensive"
)

// Rank returns the ordinal position of the scope, narrow first.
// Used for monotonicity checks and ordering.
func (s Scope) Rank() int {
	switch s {
	case ScopeNarrow:
		return 0
	case ScopeMedium:
		return 1
	case ScopeBroad:
		return 2
	case ScopeComprehensive:
		return 3
	default:
		return 1
	}
}

// Effort classifies the estimated effort for a task.
type Effort string

const (
	// EffortLow is a quick fix.
	EffortLow Effort = "low"
	// EffortMedium is the default effort class.
	EffortMedium Effort = "medium"
	// EffortHigh is substantial work such as a refactor.
	EffortHigh Effort = "high"
	// EffortVeryHigh is a rewrite, migration, or full redesign.
	EffortVeryHigh Effort = "very_high"
)

// Domain tags an analysis domain a task touches.
type Domain string

const (
	DomainArchitecture  Domain = "architecture"
	DomainDebugging     Domain = "debugging"
	DomainRefactoring   Domain = "refactoring"
	DomainQuality       Domain = "quality"
	DomainSecurity      Domain = "security"
	DomainPerformance   Domain = "performance"
	DomainDocumentation Domain = "documentation"
)

// ComplexityProfile is the derived complexity analysis of one task request.
// It is ephemeral: computed per request, never stored as the source of truth.
type ComplexityProfile struct {
	// KeywordCount is the number of complexity-keyword hits in the task text.
	KeywordCount int `json:"keyword_count"`
	// Scope is the breadth of the task.
	Scope Scope `json:"scope"`
	// Domains lists the analysis domains the task touches. May be empty.
	Domains []Domain `json:"domains"`
	// RequiresMultiplePerspectives is true when the task asks for review-style
	// analysis from more than one angle.
	RequiresMultiplePerspectives bool `json:"requires_multiple_perspectives"`
	// Effort is the estimated effort class.
	Effort Effort `json:"effort"`
	// Score is the weighted combination of the fields above, clamped to [0,1].
	Score float64 `json:"score"`
}

// OrchestrationRecommended reports whether the task is complex enough to
// warrant the multi-role pipeline instead of single-stage execution.
func (p *ComplexityProfile) OrchestrationRecommended() bool {
	return p.Score > 0.6
}

// HasDomain returns true if the profile includes the given domain.
func (p *ComplexityProfile) HasDomain(d Domain) bool {
	for _, got := range p.Domains {
		if got == d {
			return true
		}
	}
	return false
}
