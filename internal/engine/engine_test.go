package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kestrelhq/kestrel/internal/catalog"
	"github.com/kestrelhq/kestrel/internal/executor"
	"github.com/kestrelhq/kestrel/internal/pipeline"
	"github.com/kestrelhq/kestrel/internal/planner"
	"github.com/kestrelhq/kestrel/internal/roles"
	"github.com/kestrelhq/kestrel/internal/selection"
	"github.com/kestrelhq/kestrel/pkg/models"
)

type memRecorder struct {
	mu           sync.Mutex
	decisions    []models.Decision
	performances []models.PerformanceRecord
}

func (m *memRecorder) RecordDecision(d models.Decision) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decisions = append(m.decisions, d)
	return nil
}

func (m *memRecorder) RecordPerformance(r models.PerformanceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.performances = append(m.performances, r)
	return nil
}

func newTestEngine(t *testing.T, rt *pipeline.Runtime, rec Recorder) *Engine {
	t.Helper()
	cat := catalog.NewDefault()
	reg := executor.NewRegistry()
	executor.RegisterBuiltins(reg, cat)

	eng, err := New(Deps{
		Catalog:  cat,
		Selector: selection.NewEngine(cat, selection.Options{}),
		Planner:  planner.New(cat),
		Mapper:   roles.NewMapper(cat),
		Runner:   executor.NewRunner(reg),
		Runtime:  rt,
		Recorder: rec,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return eng
}

func TestEngine_AnalyzeSimpleTask(t *testing.T) {
	eng := newTestEngine(t, nil, nil)

	res, err := eng.Analyze(context.Background(), Request{Task: "fix the login bug"})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.Orchestrated {
		t.Errorf("simple bug fix recommended orchestration (score %.2f)", res.Profile.Score)
	}
	if len(res.Selection.Tools) == 0 {
		t.Fatal("selection is empty")
	}
	if len(res.Plan.Groups) == 0 {
		t.Fatal("plan has no groups")
	}
	if res.Orchestration != nil {
		t.Error("non-orchestrated analysis produced an orchestration plan")
	}
}

func TestEngine_OrchestrationPrecedence(t *testing.T) {
	eng := newTestEngine(t, nil, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		req  Request
		want bool
	}{
		{
			name: "explicit force overrides low score",
			req:  Request{Task: "fix the login bug", Orchestration: ModeForce},
			want: true,
		},
		{
			name: "explicit disable overrides high score",
			req: Request{
				Task:          "perform a comprehensive architectural review of the entire system including security analysis",
				Orchestration: ModeDisable,
			},
			want: false,
		},
		{
			name: "orchestration goal forces pipeline",
			req:  Request{Task: "fix the login bug", Goal: models.OptimizeOrchestration},
			want: true,
		},
		{
			name: "auto follows analyzer recommendation",
			req:  Request{Task: "perform a comprehensive architectural review of the entire system including security analysis"},
			want: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := eng.Analyze(ctx, tt.req)
			if err != nil {
				t.Fatalf("Analyze: %v", err)
			}
			if res.Orchestrated != tt.want {
				t.Errorf("Orchestrated = %v, want %v", res.Orchestrated, tt.want)
			}
		})
	}
}

func TestEngine_RunSimpleMode(t *testing.T) {
	rec := &memRecorder{}
	eng := newTestEngine(t, nil, rec)

	res, err := eng.Run(context.Background(), Request{
		Task:        "fix the login bug",
		ProjectPath: "/tmp/project",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.ToolResults) == 0 {
		t.Fatal("no tool results")
	}
	for _, tr := range res.ToolResults {
		if tr.Status != models.ToolStatusOK {
			t.Errorf("tool %s = %s (%s)", tr.Tool, tr.Status, tr.Error)
		}
	}
	if len(res.Degraded) != 0 {
		t.Errorf("degraded = %v, want none", res.Degraded)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.decisions) != 1 {
		t.Fatalf("recorded %d decisions, want 1", len(rec.decisions))
	}
	if rec.decisions[0].Orchestrated {
		t.Error("decision marked orchestrated for simple mode")
	}
	if len(rec.performances) != len(res.ToolResults) {
		t.Errorf("recorded %d performance rows, want %d", len(rec.performances), len(res.ToolResults))
	}
}

func TestEngine_RunOrchestratedMode(t *testing.T) {
	rec := &memRecorder{}
	rt := pipeline.NewRuntime(pipeline.NewMemoryTransport(), nil, pipeline.DefaultRetryConfig)

	eng := newTestEngine(t, rt, rec)
	if err := eng.RegisterRoleWorkers(rt, 1); err != nil {
		t.Fatalf("RegisterRoleWorkers: %v", err)
	}

	ctx := context.Background()
	if err := rt.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer rt.Stop()

	runCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	res, err := eng.Run(runCtx, Request{
		Task: "perform a comprehensive architectural review of the entire system including security analysis",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.Orchestrated || res.Orchestration == nil {
		t.Fatal("expected orchestrated run")
	}
	if res.WorkflowID == "" {
		t.Error("no workflow ID")
	}

	wantRoles := res.Orchestration.RoleIDs()
	if len(res.Completions) != len(wantRoles) {
		t.Fatalf("got %d completions, want %d", len(res.Completions), len(wantRoles))
	}
	for i, done := range res.Completions {
		if done.Role != wantRoles[i] {
			t.Errorf("completion %d from %s, want %s", i, done.Role, wantRoles[i])
		}
		if done.Status != models.StatusComplete {
			t.Errorf("role %s status = %s (%s)", done.Role, done.Status, done.Error)
		}
	}

	// The coordinator closes the pipeline and its synthesis folds in the
	// earlier roles' findings.
	last := res.Completions[len(res.Completions)-1]
	if last.Role != models.RoleCoordinator {
		t.Fatalf("last role = %s, want coordinator", last.Role)
	}
	for _, role := range wantRoles[:len(wantRoles)-1] {
		if _, ok := last.EnrichedContext[string(role)]; !ok {
			t.Errorf("coordinator context missing %s findings", role)
		}
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.decisions) != 1 || !rec.decisions[0].Orchestrated {
		t.Errorf("decisions = %+v, want one orchestrated decision", rec.decisions)
	}
}
