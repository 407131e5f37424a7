// Package roles maps complex tasks onto multi-role analysis pipelines.
package roles

import (
	"sort"

	"github.com/kestrelhq/kestrel/internal/catalog"
	"github.com/kestrelhq/kestrel/pkg/models"
)

// domainRoles is the fixed domain-to-role table.
var domainRoles = map[models.Domain]models.RoleID{
	models.DomainArchitecture:  models.RoleArchitect,
	models.DomainSecurity:      models.RoleSecurity,
	models.DomainQuality:       models.RoleQuality,
	models.DomainRefactoring:   models.RoleRefactoring,
	models.DomainPerformance:   models.RolePerformance,
	models.DomainDocumentation: models.RoleDocumentation,
	// Debugging has no dedicated role; the quality role owns test and
	// verification tooling, so debugging-flavored pipelines route there.
	models.DomainDebugging: models.RoleQuality,
}

// roleCapabilities maps each role to the catalog capability tags whose tools
// it runs.
var roleCapabilities = map[models.RoleID][]string{
	models.RoleContextOptimization: {"context", "optimization"},
	models.RoleArchitect:           {"architecture"},
	models.RoleSecurity:            {"security"},
	models.RoleQuality:             {"quality", "verification"},
	models.RoleRefactoring:         {"quality", "duplication"},
	models.RolePerformance:         {"performance"},
	models.RoleDocumentation:       {"documentation"},
	// The coordinator synthesizes prior findings rather than running raw
	// analysis; it only re-reads context.
	models.RoleCoordinator: {"context"},
}

// rolePriority is the fixed tie-break ordering for pipeline positions.
// Roles absent from this list sort last in discovery order.
var rolePriority = []models.RoleID{
	models.RoleContextOptimization,
	models.RoleArchitect,
	models.RoleQuality,
	models.RoleRefactoring,
	models.RoleDocumentation,
}

// coordinationOverheadMs is the fixed per-role estimate overhead added when
// a coordinator is present.
const coordinationOverheadMs = 500

// coordinationOverheadTokens is its token counterpart.
const coordinationOverheadTokens = 200

// Mapper builds orchestration plans from complexity profiles.
type Mapper struct {
	catalog *catalog.Catalog
}

// NewMapper creates a Mapper over the given catalog.
func NewMapper(cat *catalog.Catalog) *Mapper {
	return &Mapper{catalog: cat}
}

// Plan maps the profile's domains onto an ordered role pipeline.
//
// The context-optimization role always runs first. Each identified domain
// appends its mapped role. When more than two distinct roles result, a
// terminal coordinator role is appended and coordination overhead is added
// to the estimates.
func (m *Mapper) Plan(profile models.ComplexityProfile) models.OrchestrationPlan {
	discovered := []models.RoleID{models.RoleContextOptimization}
	seen := map[models.RoleID]bool{models.RoleContextOptimization: true}

	for _, domain := range profile.Domains {
		role, ok := domainRoles[domain]
		if !ok || seen[role] {
			continue
		}
		seen[role] = true
		discovered = append(discovered, role)
	}

	orderRoles(discovered)

	coordinationRequired := len(discovered) > 2
	if coordinationRequired {
		discovered = append(discovered, models.RoleCoordinator)
	}

	plan := models.OrchestrationPlan{
		AnalysisMapping:      make(map[models.RoleID][]string, len(discovered)),
		CoordinationRequired: coordinationRequired,
	}

	for _, id := range discovered {
		def := m.Definition(id)
		plan.Pipeline = append(plan.Pipeline, def)
		plan.AnalysisMapping[id] = def.Tools

		for _, name := range def.Tools {
			d, err := m.catalog.Lookup(name)
			if err != nil {
				continue
			}
			plan.EstimatedTokens += d.TokenCost.Tokens()
			plan.EstimatedDurationMs += d.ExecutionTime.DurationMs()
		}
		if coordinationRequired {
			plan.EstimatedTokens += coordinationOverheadTokens
			plan.EstimatedDurationMs += coordinationOverheadMs
		}
	}

	return plan
}

// Definition returns the role definition with its catalog tools resolved.
func (m *Mapper) Definition(id models.RoleID) models.RoleDefinition {
	def := models.RoleDefinition{
		ID:           id,
		TerminalOnly: id == models.RoleCoordinator,
	}

	seen := make(map[string]bool)
	for _, tag := range roleCapabilities[id] {
		for _, name := range m.catalog.ByCapability(tag) {
			if !seen[name] {
				seen[name] = true
				def.Tools = append(def.Tools, name)
			}
		}
	}
	sort.Strings(def.Tools)
	return def
}

// orderRoles sorts roles by the fixed priority list; roles not on the list
// keep their relative discovery order after the listed ones.
func orderRoles(ids []models.RoleID) {
	index := func(id models.RoleID) int {
		for i, p := range rolePriority {
			if p == id {
				return i
			}
		}
		return len(rolePriority)
	}
	sort.SliceStable(ids, func(i, j int) bool {
		return index(ids[i]) < index(ids[j])
	})
}
