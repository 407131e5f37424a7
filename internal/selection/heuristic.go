package selection

import (
	"strings"

	"github.com/kestrelhq/kestrel/pkg/models"
)

// heuristicConfidence is the fixed confidence of the keyword path. It is
// deliberately conservative and never claimed higher than a typical
// reasoned selection.
const heuristicConfidence = 0.65

// keywordTools maps task-text substrings to catalog tool names. Checked in
// order; every match contributes its tools.
var keywordTools = []struct {
	Keywords []string
	Tools    []string
}{
	{[]string{"duplicate", "duplication", "copy-paste"}, []string{"duplication-detector"}},
	{[]string{"architect", "structure", "dependenc"}, []string{"tree-navigator", "dependency-mapper"}},
	{[]string{"secur", "vulnerab", "exploit"}, []string{"security-auditor", "vulnerability-scanner"}},
	{[]string{"bug", "debug", "crash", "error", "fix"}, []string{"error-tracer", "test-coverage-checker", "compilation-checker"}},
	{[]string{"performance", "slow", "latency", "profil"}, []string{"performance-profiler"}},
	{[]string{"quality", "lint", "best practices", "review"}, []string{"quality-analyzer"}},
	{[]string{"document", "readme", "docs"}, []string{"doc-generator"}},
	{[]string{"search", "find", "where", "locate"}, []string{"semantic-search"}},
}

// defaultTools guarantees a non-empty selection when no keyword matches.
var defaultTools = []string{"context-optimizer", "quality-analyzer"}

// heuristicSelect is the keyword fallback path. It only proposes names; the
// engine validates them against the catalog and attaches dependencies.
func heuristicSelect(task string, goal models.OptimizationGoal) models.ToolSelection {
	lower := strings.ToLower(task)

	var tools []models.SelectedTool
	seen := make(map[string]bool)

	add := func(name, reason string) {
		if seen[name] {
			return
		}
		seen[name] = true
		tools = append(tools, models.SelectedTool{
			Name:       name,
			Confidence: heuristicConfidence,
			Reasoning:  reason,
		})
	}

	for _, mapping := range keywordTools {
		for _, kw := range mapping.Keywords {
			if strings.Contains(lower, kw) {
				for _, tool := range mapping.Tools {
					add(tool, "keyword match: "+kw)
				}
				break
			}
		}
	}

	if len(tools) == 0 {
		for _, tool := range defaultTools {
			add(tool, "default selection, no keyword matched")
		}
	}

	return models.ToolSelection{
		Tools:      tools,
		Confidence: heuristicConfidence,
		Goal:       goal,
		Heuristic:  true,
	}
}
