package executor

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/kestrelhq/kestrel/internal/catalog"
	"github.com/kestrelhq/kestrel/pkg/models"
)

func planOf(strategy models.ExecutionStrategy, groups ...[]string) models.ExecutionPlan {
	plan := models.ExecutionPlan{Strategy: strategy}
	for _, g := range groups {
		plan.Groups = append(plan.Groups, models.ExecutionGroup{Tools: g})
		for _, name := range g {
			plan.Selection.Tools = append(plan.Selection.Tools, models.SelectedTool{Name: name})
		}
	}
	return plan
}

func okFunc(output string) Func {
	return func(ctx context.Context, params models.ToolParameters) (string, error) {
		return output, nil
	}
}

func failFunc(msg string) Func {
	return func(ctx context.Context, params models.ToolParameters) (string, error) {
		return "", errors.New(msg)
	}
}

func TestRunner_SequentialOrder(t *testing.T) {
	reg := NewRegistry()
	var mu sync.Mutex
	var order []string
	record := func(name string) Func {
		return func(ctx context.Context, params models.ToolParameters) (string, error) {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return name + " done", nil
		}
	}
	reg.Register("first", nil, record("first"))
	reg.Register("second", nil, record("second"))

	plan := planOf(models.StrategySequential, []string{"first"}, []string{"second"})
	results, err := NewRunner(reg).Run(context.Background(), plan)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if order[0] != "first" || order[1] != "second" {
		t.Errorf("execution order = %v, want [first second]", order)
	}
	for _, res := range results {
		if res.Status != models.ToolStatusOK {
			t.Errorf("%s status = %s, want ok", res.Tool, res.Status)
		}
	}
}

func TestRunner_PartialFailureContinues(t *testing.T) {
	reg := NewRegistry()
	reg.Register("good", nil, okFunc("fine"))
	reg.Register("bad", nil, failFunc("analyzer crashed"))
	reg.Register("after", nil, okFunc("still ran"))

	plan := planOf(models.StrategyAdaptive, []string{"good", "bad"}, []string{"after"})
	results, err := NewRunner(reg).Run(context.Background(), plan)
	if err != nil {
		t.Fatalf("Run returned %v; one failure in a mixed group must not abort", err)
	}

	byTool := make(map[string]models.ToolResult)
	for _, res := range results {
		byTool[res.Tool] = res
	}
	if byTool["good"].Status != models.ToolStatusOK {
		t.Errorf("good status = %s", byTool["good"].Status)
	}
	if byTool["bad"].Status != models.ToolStatusFailed || byTool["bad"].Error == "" {
		t.Errorf("bad result = %+v, want failed with error", byTool["bad"])
	}
	if byTool["after"].Status != models.ToolStatusOK {
		t.Errorf("later group did not run after partial failure: %+v", byTool["after"])
	}
}

func TestRunner_FullGroupFailureAborts(t *testing.T) {
	reg := NewRegistry()
	reg.Register("bad1", nil, failFunc("down"))
	reg.Register("bad2", nil, failFunc("also down"))
	reg.Register("never", nil, okFunc("unreachable"))

	plan := planOf(models.StrategyAdaptive, []string{"bad1", "bad2"}, []string{"never"})
	results, err := NewRunner(reg).Run(context.Background(), plan)

	var groupErr *GroupFailedError
	if !errors.As(err, &groupErr) {
		t.Fatalf("err = %v, want GroupFailedError", err)
	}
	if groupErr.Group != 0 {
		t.Errorf("failed group = %d, want 0", groupErr.Group)
	}

	byTool := make(map[string]models.ToolResult)
	for _, res := range results {
		byTool[res.Tool] = res
	}
	if byTool["never"].Status != models.ToolStatusSkipped {
		t.Errorf("tool after failed group = %+v, want skipped", byTool["never"])
	}
}

func TestRunner_UnknownToolSkipped(t *testing.T) {
	reg := NewRegistry()
	reg.Register("known", nil, okFunc("ok"))

	plan := planOf(models.StrategyParallel, []string{"known", "phantom"})
	results, err := NewRunner(reg).Run(context.Background(), plan)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	byTool := make(map[string]models.ToolResult)
	for _, res := range results {
		byTool[res.Tool] = res
	}
	if byTool["phantom"].Status != models.ToolStatusSkipped {
		t.Errorf("phantom = %+v, want skipped", byTool["phantom"])
	}
	if byTool["known"].Status != models.ToolStatusOK {
		t.Errorf("known = %+v, want ok", byTool["known"])
	}
}

func TestRunner_RejectsUndeclaredParameter(t *testing.T) {
	reg := NewRegistry()
	reg.Register("strict", []string{"query"}, okFunc("ok"))

	plan := planOf(models.StrategySequential, []string{"strict"})
	plan.Selection.Tools[0].Parameters = models.ToolParameters{"bogus": "x"}

	results, err := NewRunner(reg).Run(context.Background(), plan)
	var groupErr *GroupFailedError
	if !errors.As(err, &groupErr) {
		t.Fatalf("err = %v, want GroupFailedError from the rejected invocation", err)
	}
	if results[0].Status != models.ToolStatusFailed {
		t.Errorf("result = %+v, want failed", results[0])
	}
}

func TestRegisterBuiltins_CoversCatalog(t *testing.T) {
	cat := catalog.NewDefault()
	reg := NewRegistry()
	RegisterBuiltins(reg, cat)

	if got, want := len(reg.Names()), cat.Len(); got != want {
		t.Fatalf("registered %d executors, want %d", got, want)
	}

	fn, ok := reg.Lookup("semantic-search")
	if !ok {
		t.Fatal("semantic-search executor missing")
	}
	out, err := fn(context.Background(), models.ToolParameters{"query": "auth flow"})
	if err != nil {
		t.Fatalf("builtin: %v", err)
	}
	if out == "" {
		t.Error("builtin produced empty output")
	}
}
