package selection

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/kestrelhq/kestrel/internal/catalog"
	"github.com/kestrelhq/kestrel/pkg/models"
)

// selectionPrompt is the prompt template for the reasoned selection path.
const selectionPrompt = `You are selecting analysis tools for a code-analysis task.

Task:
%s

Complexity profile: scope=%s effort=%s domains=%v score=%.2f

Optimization goal: %s

Available tools:
%s

Return ONLY a JSON object with this exact structure (no other text):
{
  "tools": [
    {"name": "tool-name", "confidence": 0.9, "reasoning": "why this tool"}
  ],
  "confidence": 0.85,
  "alternatives": ["fallback-tool-name"]
}

Rules:
- Use only tool names from the list above.
- Order tools by execution priority.
- confidence is your overall confidence in this selection, 0 to 1.
- alternatives lists usable fallback tools you did not select.`

// DescriptionCache caches the rendered tool-description block with a TTL.
// It is an explicitly owned object (no package-level singleton) and takes an
// injected clock so expiry is testable.
type DescriptionCache struct {
	catalog *catalog.Catalog
	ttl     time.Duration
	now     func() time.Time

	mu        sync.Mutex
	rendered  string
	toolCount int
	expires   time.Time
}

// NewDescriptionCache creates a cache over the given catalog.
// A nil now func defaults to time.Now.
func NewDescriptionCache(cat *catalog.Catalog, ttl time.Duration, now func() time.Time) *DescriptionCache {
	if now == nil {
		now = time.Now
	}
	return &DescriptionCache{catalog: cat, ttl: ttl, now: now}
}

// Render returns the tool-description block, re-rendering when the TTL has
// lapsed or tools were appended to the catalog.
func (dc *DescriptionCache) Render() string {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	now := dc.now()
	if dc.rendered != "" && now.Before(dc.expires) && dc.toolCount == dc.catalog.Len() {
		return dc.rendered
	}

	var b strings.Builder
	for _, name := range dc.catalog.Names() {
		d, err := dc.catalog.Lookup(name)
		if err != nil {
			continue
		}
		fmt.Fprintf(&b, "- %s (cost=%s, time=%s, reliability=%.2f): %s\n",
			d.Name, d.TokenCost, d.ExecutionTime, d.Reliability, d.Description)
	}

	dc.rendered = b.String()
	dc.toolCount = dc.catalog.Len()
	dc.expires = now.Add(dc.ttl)
	return dc.rendered
}

// buildPrompt renders the full reasoned-path prompt.
func (e *Engine) buildPrompt(task string, profile models.ComplexityProfile, goal models.OptimizationGoal) string {
	return fmt.Sprintf(selectionPrompt,
		task, profile.Scope, profile.Effort, profile.Domains, profile.Score,
		goal, e.descriptions.Render())
}
