// Package selection chooses which catalog tools to run for a task.
//
// Two paths produce a selection: a reasoned path that delegates to the
// reasoning collaborator, and a keyword heuristic. The engine fails closed:
// any collaborator error, timeout, or unparseable response falls back to the
// heuristic, so Select always returns a usable, non-empty selection.
package selection

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/kestrelhq/kestrel/internal/catalog"
	"github.com/kestrelhq/kestrel/internal/reasoning"
	"github.com/kestrelhq/kestrel/pkg/models"
)

// debugEnabled gates verbose selection logging.
var debugEnabled = os.Getenv("KESTREL_DEBUG") != ""

func debugLog(format string, args ...interface{}) {
	if debugEnabled {
		log.Printf(format, args...)
	}
}

// HistoryProvider supplies the effectiveness prior for confidence scoring.
// *recorder.Store satisfies it.
type HistoryProvider interface {
	Effectiveness(subject string) (float64, int, error)
}

// minPriorSamples is how much history a tool needs before its effectiveness
// ratio influences confidence.
const minPriorSamples = 3

// safeFallbacks are low-cost tools usable as alternatives for any task.
var safeFallbacks = []string{"context-optimizer", "quality-analyzer", "semantic-search"}

// Engine is the selection engine.
type Engine struct {
	catalog      *catalog.Catalog
	reasoner     reasoning.Reasoner
	history      HistoryProvider
	descriptions *DescriptionCache
	tokenBudget  int
}

// Options configures a new Engine.
type Options struct {
	// Reasoner is the reasoning collaborator. Nil means heuristic-only.
	Reasoner reasoning.Reasoner
	// History supplies effectiveness priors. Nil disables the prior.
	History HistoryProvider
	// TokenBudget bounds reasoned-path calls. Defaults to 2048.
	TokenBudget int
	// DescriptionTTL is how long the rendered tool list is cached.
	// Defaults to 5 minutes.
	DescriptionTTL time.Duration
	// Now is the clock used by the description cache. Defaults to time.Now.
	Now func() time.Time
}

// NewEngine creates a selection engine over the given catalog.
func NewEngine(cat *catalog.Catalog, opts Options) *Engine {
	if opts.TokenBudget <= 0 {
		opts.TokenBudget = 2048
	}
	if opts.DescriptionTTL <= 0 {
		opts.DescriptionTTL = 5 * time.Minute
	}
	return &Engine{
		catalog:      cat,
		reasoner:     opts.Reasoner,
		history:      opts.History,
		descriptions: NewDescriptionCache(cat, opts.DescriptionTTL, opts.Now),
		tokenBudget:  opts.TokenBudget,
	}
}

// Select produces a tool selection for the task. It never returns an empty
// selection: the reasoned path falls back to the heuristic on any failure,
// and the heuristic has a guaranteed default.
func (e *Engine) Select(ctx context.Context, task string, profile models.ComplexityProfile, goal models.OptimizationGoal) (models.ToolSelection, error) {
	var sel models.ToolSelection

	if e.reasoner != nil {
		reasoned, err := e.reasonedSelect(ctx, task, profile, goal)
		if err != nil {
			debugLog("[selection] reasoned path failed, falling back to heuristic: %v", err)
			sel = heuristicSelect(task, goal)
		} else {
			sel = reasoned
		}
	} else {
		sel = heuristicSelect(task, goal)
	}

	return e.finalize(sel, task, goal)
}

// reasonedResponse is the JSON structure the collaborator must return.
type reasonedResponse struct {
	Tools []struct {
		Name       string  `json:"name"`
		Confidence float64 `json:"confidence"`
		Reasoning  string  `json:"reasoning"`
	} `json:"tools"`
	Confidence   float64  `json:"confidence"`
	Alternatives []string `json:"alternatives"`
}

func (e *Engine) reasonedSelect(ctx context.Context, task string, profile models.ComplexityProfile, goal models.OptimizationGoal) (models.ToolSelection, error) {
	prompt := e.buildPrompt(task, profile, goal)

	response, err := e.reasoner.Reason(ctx, prompt, reasoning.TokenBudget{MaxTokens: e.tokenBudget})
	if err != nil {
		return models.ToolSelection{}, err
	}

	parsed, err := parseResponse(response)
	if err != nil {
		return models.ToolSelection{}, err
	}

	sel := models.ToolSelection{
		Confidence:   clamp01(parsed.Confidence),
		Goal:         goal,
		Alternatives: parsed.Alternatives,
		TokenBudget:  e.tokenBudget,
	}
	for _, t := range parsed.Tools {
		// Unknown names from natural-language extraction are dropped, never
		// fabricated into the catalog.
		if !e.catalog.Has(t.Name) {
			debugLog("[selection] dropping unknown tool %q from reasoned response", t.Name)
			continue
		}
		sel.Tools = append(sel.Tools, models.SelectedTool{
			Name:       t.Name,
			Confidence: clamp01(t.Confidence),
			Reasoning:  t.Reasoning,
		})
	}

	if len(sel.Tools) == 0 {
		return models.ToolSelection{}, fmt.Errorf("reasoned response contained no known tools")
	}
	return sel, nil
}

// parseResponse extracts and decodes the JSON object from the collaborator's
// text response, tolerating surrounding prose or code fences.
func parseResponse(response string) (*reasonedResponse, error) {
	jsonStart := strings.Index(response, "{")
	jsonEnd := strings.LastIndex(response, "}")
	if jsonStart == -1 || jsonEnd == -1 || jsonEnd <= jsonStart {
		preview := response
		if len(preview) > 200 {
			preview = preview[:200] + "... (truncated)"
		}
		return nil, fmt.Errorf("no JSON object found in response: %q", preview)
	}

	var parsed reasonedResponse
	if err := json.Unmarshal([]byte(response[jsonStart:jsonEnd+1]), &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal selection response: %w", err)
	}
	if len(parsed.Tools) == 0 {
		return nil, fmt.Errorf("empty tool list in response")
	}
	return &parsed, nil
}

// finalize validates names, folds in the effectiveness prior, attaches the
// dependency closure, and guarantees alternatives for low confidence.
func (e *Engine) finalize(sel models.ToolSelection, task string, goal models.OptimizationGoal) (models.ToolSelection, error) {
	// Drop anything not in the catalog (heuristic mappings may name tools
	// that a slimmed-down deployment did not register).
	kept := sel.Tools[:0]
	for _, t := range sel.Tools {
		if e.catalog.Has(t.Name) {
			kept = append(kept, t)
		} else {
			debugLog("[selection] dropping unregistered tool %q", t.Name)
		}
	}
	sel.Tools = kept

	if len(sel.Tools) == 0 {
		// The deployment is missing even the heuristic defaults; fall back to
		// whatever the catalog does have so the selection is never empty.
		names := e.catalog.Names()
		if len(names) == 0 {
			return sel, fmt.Errorf("catalog is empty, no selection possible")
		}
		sel.Tools = []models.SelectedTool{{
			Name:       names[0],
			Confidence: heuristicConfidence,
			Reasoning:  "last-resort selection from catalog",
		}}
		sel.Confidence = heuristicConfidence
		sel.Heuristic = true
	}

	e.applyPrior(&sel)

	// Attach the transitive dependency closure.
	closure, err := e.catalog.Resolve(sel.Names())
	if err != nil {
		return sel, fmt.Errorf("resolve selection dependencies: %w", err)
	}
	for _, name := range closure {
		if !sel.Contains(name) {
			sel.Tools = append(sel.Tools, models.SelectedTool{
				Name:       name,
				Confidence: sel.Confidence,
				Reasoning:  "dependency of selected tools",
			})
		}
	}

	if sel.Confidence < 0.8 {
		sel.Alternatives = e.fillAlternatives(sel)
	}

	if sel.TokenBudget == 0 {
		sel.TokenBudget = e.tokenBudget
	}
	sel.Goal = goal
	debugLog("[selection] task %q -> %v (confidence %.2f, heuristic=%v)",
		task, sel.Names(), sel.Confidence, sel.Heuristic)
	return sel, nil
}

// applyPrior folds recorded effectiveness into per-tool and overall
// confidence. A tool with a strong history keeps its confidence; a tool that
// keeps failing drags its score down. The prior never raises confidence.
func (e *Engine) applyPrior(sel *models.ToolSelection) {
	if e.history == nil {
		return
	}

	var factorSum float64
	for i := range sel.Tools {
		factor := 1.0
		eff, n, err := e.history.Effectiveness(sel.Tools[i].Name)
		if err == nil && n >= minPriorSamples {
			factor = 0.75 + 0.25*eff
		}
		sel.Tools[i].Confidence = clamp01(sel.Tools[i].Confidence * factor)
		factorSum += factor
	}
	if len(sel.Tools) > 0 {
		sel.Confidence = clamp01(sel.Confidence * (factorSum / float64(len(sel.Tools))))
	}
}

// fillAlternatives guarantees at least one safe fallback tool not already in
// the selection, keeping any alternatives the reasoned path proposed.
func (e *Engine) fillAlternatives(sel models.ToolSelection) []string {
	var alts []string
	seen := make(map[string]bool)
	for _, name := range sel.Alternatives {
		if e.catalog.Has(name) && !sel.Contains(name) && !seen[name] {
			seen[name] = true
			alts = append(alts, name)
		}
	}
	for _, name := range safeFallbacks {
		if len(alts) > 0 {
			break
		}
		if e.catalog.Has(name) && !sel.Contains(name) && !seen[name] {
			seen[name] = true
			alts = append(alts, name)
		}
	}
	if len(alts) == 0 {
		// Everything safe is already selected; pick any other catalog tool.
		for _, name := range e.catalog.Names() {
			if !sel.Contains(name) {
				alts = append(alts, name)
				break
			}
		}
	}
	return alts
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
