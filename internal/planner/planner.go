// Package planner turns a tool selection into an executable plan.
package planner

import (
	"fmt"

	"github.com/kestrelhq/kestrel/internal/catalog"
	"github.com/kestrelhq/kestrel/pkg/models"
)

// Planner computes execution strategy and cost estimates for selections.
type Planner struct {
	catalog *catalog.Catalog
}

// New creates a Planner over the given catalog.
func New(cat *catalog.Catalog) *Planner {
	return &Planner{catalog: cat}
}

// Plan derives the execution plan for a selection.
//
// Strategy rule: every tool parallelizable and more than one tool means
// parallel; any selected tool depending on another selected tool means
// sequential; anything else is adaptive.
func (p *Planner) Plan(sel models.ToolSelection) (models.ExecutionPlan, error) {
	if len(sel.Tools) == 0 {
		return models.ExecutionPlan{}, fmt.Errorf("cannot plan an empty selection")
	}

	descriptors := make(map[string]*models.ToolDescriptor, len(sel.Tools))
	for _, t := range sel.Tools {
		d, err := p.catalog.Lookup(t.Name)
		if err != nil {
			return models.ExecutionPlan{}, fmt.Errorf("plan selection: %w", err)
		}
		descriptors[t.Name] = d
	}

	plan := models.ExecutionPlan{
		Selection:       sel,
		Strategy:        strategy(sel, descriptors),
		EstimatedTokens: estimateTokens(sel, descriptors),
	}

	switch plan.Strategy {
	case models.StrategyParallel:
		plan.Groups = []models.ExecutionGroup{{Tools: sel.Names()}}
		plan.EstimatedDurationMs = maxDuration(sel.Names(), descriptors)
	case models.StrategySequential:
		ordered := topoOrder(sel, descriptors)
		for _, name := range ordered {
			plan.Groups = append(plan.Groups, models.ExecutionGroup{Tools: []string{name}})
			plan.EstimatedDurationMs += descriptors[name].ExecutionTime.DurationMs()
		}
	case models.StrategyAdaptive:
		levels := dependencyLevels(sel, descriptors)
		for _, level := range levels {
			plan.Groups = append(plan.Groups, groupLevel(level, descriptors)...)
			plan.EstimatedDurationMs += maxDuration(level, descriptors)
		}
	}

	if sel.Confidence < 0.8 {
		plan.FallbackChain = sel.Alternatives
	}
	return plan, nil
}

func strategy(sel models.ToolSelection, descriptors map[string]*models.ToolDescriptor) models.ExecutionStrategy {
	allParallel := true
	for _, t := range sel.Tools {
		if !descriptors[t.Name].Parallelizable {
			allParallel = false
			break
		}
	}
	if allParallel && len(sel.Tools) > 1 {
		return models.StrategyParallel
	}
	if hasInternalDependency(sel, descriptors) {
		return models.StrategySequential
	}
	return models.StrategyAdaptive
}

// hasInternalDependency reports whether any selected tool depends on another
// selected tool. Dependencies outside the selection do not count: the
// selection engine already attached the closure, so an external dep means a
// deployment pruned it.
func hasInternalDependency(sel models.ToolSelection, descriptors map[string]*models.ToolDescriptor) bool {
	for _, t := range sel.Tools {
		for _, dep := range descriptors[t.Name].Dependencies {
			if sel.Contains(dep) {
				return true
			}
		}
	}
	return false
}

func estimateTokens(sel models.ToolSelection, descriptors map[string]*models.ToolDescriptor) int {
	total := 0
	for _, t := range sel.Tools {
		total += descriptors[t.Name].TokenCost.Tokens()
	}
	return total
}

func maxDuration(names []string, descriptors map[string]*models.ToolDescriptor) int64 {
	var max int64
	for _, name := range names {
		if d := descriptors[name].ExecutionTime.DurationMs(); d > max {
			max = d
		}
	}
	return max
}

// topoOrder orders the selection so every tool runs after its in-selection
// dependencies, preserving rank order among independent tools.
func topoOrder(sel models.ToolSelection, descriptors map[string]*models.ToolDescriptor) []string {
	placed := make(map[string]bool, len(sel.Tools))
	var ordered []string

	var place func(name string)
	place = func(name string) {
		if placed[name] {
			return
		}
		placed[name] = true
		for _, dep := range descriptors[name].Dependencies {
			if sel.Contains(dep) {
				place(dep)
			}
		}
		ordered = append(ordered, name)
	}

	for _, t := range sel.Tools {
		place(t.Name)
	}
	return ordered
}

// dependencyLevels buckets tools by their depth in the in-selection
// dependency graph: level 0 has no in-selection deps, level N depends only
// on levels below N.
func dependencyLevels(sel models.ToolSelection, descriptors map[string]*models.ToolDescriptor) [][]string {
	depth := make(map[string]int, len(sel.Tools))

	var depthOf func(name string) int
	depthOf = func(name string) int {
		if d, ok := depth[name]; ok {
			return d
		}
		depth[name] = 0 // break accidental cycles; catalog validation rejects real ones
		max := 0
		for _, dep := range descriptors[name].Dependencies {
			if sel.Contains(dep) {
				if d := depthOf(dep) + 1; d > max {
					max = d
				}
			}
		}
		depth[name] = max
		return max
	}

	maxDepth := 0
	for _, t := range sel.Tools {
		if d := depthOf(t.Name); d > maxDepth {
			maxDepth = d
		}
	}

	levels := make([][]string, maxDepth+1)
	for _, t := range sel.Tools {
		d := depth[t.Name]
		levels[d] = append(levels[d], t.Name)
	}
	return levels
}

// groupLevel splits one dependency level into execution groups: all
// parallelizable tools share a group, each non-parallelizable tool gets its
// own.
func groupLevel(level []string, descriptors map[string]*models.ToolDescriptor) []models.ExecutionGroup {
	var groups []models.ExecutionGroup
	var parallel []string
	for _, name := range level {
		if descriptors[name].Parallelizable {
			parallel = append(parallel, name)
		} else {
			groups = append(groups, models.ExecutionGroup{Tools: []string{name}})
		}
	}
	if len(parallel) > 0 {
		groups = append([]models.ExecutionGroup{{Tools: parallel}}, groups...)
	}
	return groups
}
