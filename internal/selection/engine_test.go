package selection

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kestrelhq/kestrel/internal/catalog"
	"github.com/kestrelhq/kestrel/internal/complexity"
	"github.com/kestrelhq/kestrel/internal/reasoning"
	"github.com/kestrelhq/kestrel/pkg/models"
)

// fakeReasoner returns a canned response or error.
type fakeReasoner struct {
	response string
	err      error
	calls    int
}

func (f *fakeReasoner) Reason(ctx context.Context, prompt string, budget reasoning.TokenBudget) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

// fakeHistory returns a fixed effectiveness per subject.
type fakeHistory struct {
	eff     map[string]float64
	samples int
}

func (f *fakeHistory) Effectiveness(subject string) (float64, int, error) {
	if eff, ok := f.eff[subject]; ok {
		return eff, f.samples, nil
	}
	return 0, 0, nil
}

func selectFor(t *testing.T, e *Engine, task string) models.ToolSelection {
	t.Helper()
	sel, err := e.Select(context.Background(), task, complexity.Analyze(task), models.OptimizeBalanced)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	return sel
}

func TestEngine_FailsClosedToHeuristic(t *testing.T) {
	cat := catalog.NewDefault()
	e := NewEngine(cat, Options{
		Reasoner: &fakeReasoner{err: errors.New("collaborator down")},
	})

	sel := selectFor(t, e, "fix the login bug")

	if len(sel.Tools) == 0 {
		t.Fatal("selection is empty despite guaranteed fallback")
	}
	if !sel.Heuristic {
		t.Error("selection should be flagged heuristic after reasoner failure")
	}
	if sel.Confidence != heuristicConfidence {
		t.Errorf("Confidence = %f, want fixed heuristic value %f", sel.Confidence, heuristicConfidence)
	}
	for _, tool := range sel.Tools {
		if !cat.Has(tool.Name) {
			t.Errorf("selected tool %q not in catalog", tool.Name)
		}
	}
}

func TestEngine_HeuristicBugFixSelection(t *testing.T) {
	e := NewEngine(catalog.NewDefault(), Options{})

	sel := selectFor(t, e, "fix the login bug")

	if !sel.Contains("error-tracer") {
		t.Errorf("bug-fix selection %v missing error-tracer", sel.Names())
	}
	if !sel.Contains("test-coverage-checker") {
		t.Errorf("bug-fix selection %v missing test-coverage-checker", sel.Names())
	}
	if sel.Confidence < 0.6 || sel.Confidence > 0.7 {
		t.Errorf("heuristic confidence = %f, want within [0.6, 0.7]", sel.Confidence)
	}
	if len(sel.Alternatives) == 0 {
		t.Error("low-confidence selection must carry alternatives")
	}
	for _, alt := range sel.Alternatives {
		if sel.Contains(alt) {
			t.Errorf("alternative %q is already selected", alt)
		}
	}
}

func TestEngine_HeuristicDefaultNeverEmpty(t *testing.T) {
	e := NewEngine(catalog.NewDefault(), Options{})

	sel := selectFor(t, e, "zzzzz qqqqq")

	if !sel.Contains("context-optimizer") {
		t.Errorf("default selection %v missing context-optimizer", sel.Names())
	}
	if len(sel.Tools) == 0 {
		t.Fatal("no-keyword selection is empty")
	}
}

func TestEngine_ReasonedPathParsesResponse(t *testing.T) {
	reasoner := &fakeReasoner{response: `Here is my selection:
{
  "tools": [
    {"name": "security-auditor", "confidence": 0.9, "reasoning": "auth task"},
    {"name": "made-up-tool", "confidence": 0.99, "reasoning": "hallucinated"}
  ],
  "confidence": 0.85,
  "alternatives": ["quality-analyzer"]
}`}
	e := NewEngine(catalog.NewDefault(), Options{Reasoner: reasoner})

	sel := selectFor(t, e, "audit the authentication flow")

	if sel.Heuristic {
		t.Error("reasoned selection should not be flagged heuristic")
	}
	if !sel.Contains("security-auditor") {
		t.Errorf("selection %v missing security-auditor", sel.Names())
	}
	if sel.Contains("made-up-tool") {
		t.Error("unknown tool from reasoned response must be dropped, not fabricated")
	}
	if sel.Confidence != 0.85 {
		t.Errorf("Confidence = %f, want 0.85", sel.Confidence)
	}
}

func TestEngine_ReasonedGarbageFallsBack(t *testing.T) {
	e := NewEngine(catalog.NewDefault(), Options{
		Reasoner: &fakeReasoner{response: "I think you should run all the tools!"},
	})

	sel := selectFor(t, e, "review the code")

	if !sel.Heuristic {
		t.Error("unparseable response must fall back to heuristic")
	}
	if len(sel.Tools) == 0 {
		t.Fatal("fallback selection is empty")
	}
}

func TestEngine_AttachesDependencyClosure(t *testing.T) {
	reasoner := &fakeReasoner{response: `{
  "tools": [{"name": "graph-querier", "confidence": 0.9, "reasoning": "graph question"}],
  "confidence": 0.9
}`}
	e := NewEngine(catalog.NewDefault(), Options{Reasoner: reasoner})

	sel := selectFor(t, e, "what depends on the billing module")

	for _, dep := range []string{"dependency-mapper", "tree-navigator"} {
		if !sel.Contains(dep) {
			t.Errorf("selection %v missing transitive dependency %s", sel.Names(), dep)
		}
	}
}

func TestEngine_EffectivenessPriorLowersConfidence(t *testing.T) {
	reasoner := &fakeReasoner{response: `{
  "tools": [{"name": "security-auditor", "confidence": 0.9, "reasoning": "x"}],
  "confidence": 0.9
}`}
	history := &fakeHistory{
		eff:     map[string]float64{"security-auditor": 0.2},
		samples: 10,
	}
	e := NewEngine(catalog.NewDefault(), Options{Reasoner: reasoner, History: history})

	sel := selectFor(t, e, "audit the auth flow")

	if sel.Confidence >= 0.9 {
		t.Errorf("Confidence = %f, want lowered by poor effectiveness prior", sel.Confidence)
	}
	if len(sel.Alternatives) == 0 {
		t.Error("lowered confidence below 0.8 must populate alternatives")
	}
}

func TestDescriptionCache_TTLAndAppendInvalidation(t *testing.T) {
	cat := catalog.NewDefault()
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	now := func() time.Time { return clock }
	dc := NewDescriptionCache(cat, time.Minute, now)

	first := dc.Render()
	if first == "" {
		t.Fatal("rendered description is empty")
	}

	// Within TTL and with no catalog change, the same string comes back.
	if dc.Render() != first {
		t.Error("cache miss within TTL")
	}

	// Appending a tool invalidates the cache before the TTL lapses.
	if err := cat.Register(&models.ToolDescriptor{
		Name:          "late-tool",
		TokenCost:     models.TokenCostLow,
		ExecutionTime: models.ExecutionTimeFast,
		Reliability:   0.9,
		Description:   "registered at runtime",
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	second := dc.Render()
	if second == first {
		t.Error("cache not invalidated by catalog append")
	}

	// TTL expiry re-renders.
	clock = clock.Add(2 * time.Minute)
	if dc.Render() != second {
		t.Error("post-TTL render should match current catalog")
	}
}
