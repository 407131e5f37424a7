package complexity

import (
	"strings"
	"unicode"

	"github.com/kestrelhq/kestrel/pkg/models"
)

// Analyze derives a complexity profile from task text. It is a pure
// function: deterministic, no I/O, no side effects.
func Analyze(task string) models.ComplexityProfile {
	lower := strings.ToLower(task)
	tokens := tokenize(lower)

	profile := models.ComplexityProfile{
		KeywordCount:                 countKeywords(tokens),
		Scope:                        classifyScope(lower),
		Domains:                      matchDomains(lower),
		RequiresMultiplePerspectives: matchesPerspective(lower),
		Effort:                       classifyEffort(lower),
	}
	profile.Score = score(profile)
	return profile
}

// tokenize splits lowered text on any non-alphanumeric rune, so hyphenated
// phrases like "production-ready" still yield their component words.
func tokenize(lower string) []string {
	return strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

func countKeywords(tokens []string) int {
	count := 0
	for _, tok := range tokens {
		for _, kw := range complexityKeywords {
			if tok == kw {
				count++
				break
			}
		}
	}
	return count
}

func classifyScope(lower string) models.Scope {
	for _, kw := range scopeKeywords.Comprehensive {
		if strings.Contains(lower, kw) {
			return models.ScopeComprehensive
		}
	}
	for _, kw := range scopeKeywords.Broad {
		if strings.Contains(lower, kw) {
			return models.ScopeBroad
		}
	}
	for _, kw := range scopeKeywords.Narrow {
		if strings.Contains(lower, kw) {
			return models.ScopeNarrow
		}
	}
	return models.ScopeMedium
}

func matchDomains(lower string) []models.Domain {
	var domains []models.Domain
	for _, family := range domainKeywords {
		for _, kw := range family.Keywords {
			if strings.Contains(lower, kw) {
				domains = append(domains, family.Domain)
				break
			}
		}
	}
	return domains
}

func matchesPerspective(lower string) bool {
	for _, phrase := range perspectivePhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

func classifyEffort(lower string) models.Effort {
	for _, family := range effortKeywords {
		for _, kw := range family.Keywords {
			if strings.Contains(lower, kw) {
				return family.Effort
			}
		}
	}
	return models.EffortMedium
}

// score combines the profile fields into [0,1]. Each term is monotonic:
// more keyword hits, a wider scope, more domains, or higher effort can only
// raise the score.
func score(p models.ComplexityProfile) float64 {
	s := 0.1 * float64(p.KeywordCount)
	s += scopeWeight[p.Scope]
	s += 0.15 * float64(len(p.Domains))
	if p.RequiresMultiplePerspectives {
		s += 0.3
	}
	s += effortWeight[p.Effort]

	if s > 1 {
		return 1
	}
	if s < 0 {
		return 0
	}
	return s
}
