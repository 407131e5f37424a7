// Package complexity analyzes task text into a complexity profile.
package complexity

import "github.com/kestrelhq/kestrel/pkg/models"

// complexityKeywords is the fixed keyword set whose occurrence count feeds
// the complexity score. Single words only; matched per token.
var complexityKeywords = []string{
	"comprehensive",
	"architecture",
	"refactor",
	"security",
	"production",
	"migration",
	"redesign",
	"audit",
	"scalability",
	"distributed",
}

// scopeKeywords classifies task breadth. Comprehensive is checked first,
// then broad, then narrow; anything else is medium.
var scopeKeywords = struct {
	Comprehensive []string
	Broad         []string
	Narrow        []string
}{
	Comprehensive: []string{
		"comprehensive",
		"exhaustive",
		"everything",
		"full audit",
	},
	Broad: []string{
		"project",
		"system",
		"entire",
		"codebase",
		"all modules",
	},
	Narrow: []string{
		"file",
		"function",
		"specific",
		"single",
		"this method",
	},
}

// domainKeywords maps each analysis domain to its trigger substrings.
// A task may match zero or many domains.
var domainKeywords = []struct {
	Domain   models.Domain
	Keywords []string
}{
	{models.DomainArchitecture, []string{"architect", "structure", "design pattern", "dependenc", "coupling"}},
	{models.DomainDebugging, []string{"bug", "debug", "crash", "error", "broken", "trace"}},
	{models.DomainRefactoring, []string{"refactor", "restructure", "rewrite", "cleanup", "simplify"}},
	{models.DomainQuality, []string{"quality", "lint", "maintainab", "best practices", "code smell"}},
	{models.DomainSecurity, []string{"secur", "vulnerab", "exploit", "injection", "auth"}},
	{models.DomainPerformance, []string{"performance", "slow", "optimize", "latency", "memory", "profil"}},
	{models.DomainDocumentation, []string{"document", "readme", "docs", "comment"}},
}

// perspectivePhrases flag tasks that require analysis from more than one
// angle. Matched as substrings of the lowered task text.
var perspectivePhrases = []string{
	"comprehensive",
	"production ready",
	"production-ready",
	"review",
	"best practices",
	"audit",
	"multiple perspectives",
	"end to end",
	"end-to-end",
}

// effortKeywords classifies estimated effort. Checked in priority order
// very_high > high > medium > low; no match defaults to medium.
var effortKeywords = []struct {
	Effort   models.Effort
	Keywords []string
}{
	{models.EffortVeryHigh, []string{"rewrite", "migration", "migrate", "overhaul", "from scratch", "ground up"}},
	{models.EffortHigh, []string{"refactor", "redesign", "architecture", "comprehensive", "implement"}},
	{models.EffortMedium, []string{"improve", "update", "enhance", "extend", "add"}},
	{models.EffortLow, []string{"fix", "bug", "typo", "rename", "comment", "format"}},
}

// scopeWeight and effortWeight are the score contributions per class.
var scopeWeight = map[models.Scope]float64{
	models.ScopeNarrow:        0.1,
	models.ScopeMedium:        0.3,
	models.ScopeBroad:         0.6,
	models.ScopeComprehensive: 1.0,
}

var effortWeight = map[models.Effort]float64{
	models.EffortLow:      0.1,
	models.EffortMedium:   0.3,
	models.EffortHigh:     0.6,
	models.EffortVeryHigh: 1.0,
}
