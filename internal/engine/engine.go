// Package engine wires the analysis pipeline end to end: complexity
// analysis, tool selection, execution planning, and either direct plan
// execution or a multi-role orchestrated workflow.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kestrelhq/kestrel/internal/catalog"
	"github.com/kestrelhq/kestrel/internal/complexity"
	"github.com/kestrelhq/kestrel/internal/executor"
	"github.com/kestrelhq/kestrel/internal/pipeline"
	"github.com/kestrelhq/kestrel/internal/planner"
	"github.com/kestrelhq/kestrel/internal/roles"
	"github.com/kestrelhq/kestrel/internal/selection"
	"github.com/kestrelhq/kestrel/pkg/models"
)

func debugLog(format string, args ...interface{}) {
	if os.Getenv("KESTREL_DEBUG") != "" {
		fmt.Fprintf(os.Stderr, "[DEBUG engine] "+format+"\n", args...)
	}
}

// OrchestrationMode controls whether a request runs as a multi-role
// pipeline. Auto follows the complexity analyzer's recommendation; Force
// and Disable override it.
type OrchestrationMode string

const (
	ModeAuto    OrchestrationMode = "auto"
	ModeForce   OrchestrationMode = "force"
	ModeDisable OrchestrationMode = "disable"
)

// Request is one analysis request.
type Request struct {
	// Task is the natural-language task description.
	Task string
	// ProjectPath is the repository or directory being analyzed.
	ProjectPath string
	// Goal steers selection trade-offs. Empty means balanced.
	Goal models.OptimizationGoal
	// Orchestration selects the execution mode. Empty means auto.
	Orchestration OrchestrationMode
	// Deadline bounds the whole run. Zero means none.
	Deadline time.Duration
	// MaxRetries overrides the per-role retry budget in orchestration mode.
	// Zero means the runtime default.
	MaxRetries int
}

// Result is the outcome of one request: always best-effort, with degraded
// components listed rather than the whole run failing.
type Result struct {
	Profile      models.ComplexityProfile
	Selection    models.ToolSelection
	Plan         models.ExecutionPlan
	Orchestrated bool

	// Simple mode.
	ToolResults []models.ToolResult

	// Orchestration mode.
	Orchestration *models.OrchestrationPlan
	WorkflowID    string
	Completions   []models.WorkflowCompletion

	// Degraded lists components that failed or were skipped.
	Degraded []string
}

// Recorder persists decisions and performance observations. A nil Recorder
// disables persistence.
type Recorder interface {
	RecordDecision(d models.Decision) error
	RecordPerformance(r models.PerformanceRecord) error
}

// Deps are the engine's collaborators. Catalog, Selector, Planner, Mapper,
// and Runner are required; Runtime is required only for orchestration mode.
type Deps struct {
	Catalog  *catalog.Catalog
	Selector *selection.Engine
	Planner  *planner.Planner
	Mapper   *roles.Mapper
	Runner   *executor.Runner
	Runtime  *pipeline.Runtime
	Recorder Recorder
}

// Engine is the top-level request handler.
type Engine struct {
	deps Deps
}

// New returns an Engine over the given collaborators.
func New(deps Deps) (*Engine, error) {
	if deps.Catalog == nil || deps.Selector == nil || deps.Planner == nil || deps.Mapper == nil || deps.Runner == nil {
		return nil, errors.New("engine: catalog, selector, planner, mapper, and runner are required")
	}
	return &Engine{deps: deps}, nil
}

// Analyze runs complexity analysis, tool selection, and execution planning
// without executing anything.
func (e *Engine) Analyze(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.Task) == "" {
		return Result{}, errors.New("engine: empty task")
	}
	goal := req.Goal
	if goal == "" {
		goal = models.OptimizeBalanced
	}

	var res Result
	res.Profile = complexity.Analyze(req.Task)
	debugLog("complexity score %.2f for %q", res.Profile.Score, req.Task)

	sel, err := e.deps.Selector.Select(ctx, req.Task, res.Profile, goal)
	if err != nil {
		return res, fmt.Errorf("selecting tools: %w", err)
	}
	res.Selection = sel

	plan, err := e.deps.Planner.Plan(sel)
	if err != nil {
		return res, fmt.Errorf("planning execution: %w", err)
	}
	res.Plan = plan

	res.Orchestrated = e.shouldOrchestrate(req, res.Profile, goal)
	if res.Orchestrated {
		oplan := e.deps.Mapper.Plan(res.Profile)
		res.Orchestration = &oplan
	}
	return res, nil
}

// Run analyzes the request and executes the resulting plan, either directly
// or as an orchestrated multi-role workflow.
func (e *Engine) Run(ctx context.Context, req Request) (Result, error) {
	res, err := e.Analyze(ctx, req)
	if err != nil {
		return res, err
	}
	err = e.Execute(ctx, req, &res)
	return res, err
}

// Execute runs a previously analyzed result in the mode Analyze decided.
func (e *Engine) Execute(ctx context.Context, req Request, res *Result) error {
	if res.Orchestrated {
		return e.runOrchestrated(ctx, req, res)
	}
	e.recordDecision(req, *res)
	return e.runSimple(ctx, req, res)
}

// StartOrchestration records the decision and launches the workflow,
// returning the completion channel for callers that stream progress
// themselves. The runtime must already be started.
func (e *Engine) StartOrchestration(ctx context.Context, req Request, res *Result) (<-chan models.WorkflowCompletion, error) {
	if e.deps.Runtime == nil {
		return nil, errors.New("engine: orchestration requested but no runtime configured")
	}
	if res.Orchestration == nil {
		return nil, errors.New("engine: result carries no orchestration plan")
	}
	e.recordDecision(req, *res)

	id, watch, err := e.deps.Runtime.StartWorkflow(ctx, *res.Orchestration,
		models.WorkflowInput{Query: req.Task, ProjectPath: req.ProjectPath},
		pipeline.WorkflowOptions{
			MaxRetries: req.MaxRetries,
			Deadline:   req.Deadline,
		})
	if err != nil {
		return nil, fmt.Errorf("starting workflow: %w", err)
	}
	res.WorkflowID = id
	return watch, nil
}

// shouldOrchestrate applies the precedence rules: an explicit mode always
// wins; the orchestration optimization goal forces the pipeline; otherwise
// the analyzer's recommendation decides.
func (e *Engine) shouldOrchestrate(req Request, profile models.ComplexityProfile, goal models.OptimizationGoal) bool {
	switch req.Orchestration {
	case ModeForce:
		return true
	case ModeDisable:
		return false
	}
	if goal == models.OptimizeOrchestration {
		return true
	}
	return profile.OrchestrationRecommended()
}

func (e *Engine) runSimple(ctx context.Context, req Request, res *Result) error {
	plan := withDefaultParameters(res.Plan, req)
	results, err := e.deps.Runner.Run(ctx, plan)
	res.ToolResults = results

	for _, tr := range results {
		if tr.Status != models.ToolStatusOK {
			res.Degraded = append(res.Degraded, tr.Tool)
		}
		e.recordPerformance(tr)
	}

	var groupErr *executor.GroupFailedError
	if errors.As(err, &groupErr) {
		return fmt.Errorf("executing plan: %w", err)
	}
	return err
}

func (e *Engine) runOrchestrated(ctx context.Context, req Request, res *Result) error {
	watch, err := e.StartOrchestration(ctx, req, res)
	if err != nil {
		return err
	}

	for {
		select {
		case done, ok := <-watch:
			if !ok {
				sortDegraded(res)
				return nil
			}
			res.Completions = append(res.Completions, done)
			if done.Status == models.StatusError {
				res.Degraded = append(res.Degraded, string(done.Role))
			}
		case <-ctx.Done():
			sortDegraded(res)
			return ctx.Err()
		}
	}
}

func (e *Engine) recordDecision(req Request, res Result) {
	if e.deps.Recorder == nil {
		return
	}
	d := models.Decision{
		ID:           uuid.New().String()[:8],
		Task:         req.Task,
		Goal:         res.Selection.Goal,
		Tools:        res.Selection.Names(),
		Confidence:   res.Selection.Confidence,
		Heuristic:    res.Selection.Heuristic,
		Orchestrated: res.Orchestrated,
		CreatedAt:    time.Now().UTC(),
	}
	if err := e.deps.Recorder.RecordDecision(d); err != nil {
		debugLog("recording decision: %v", err)
	}
}

func (e *Engine) recordPerformance(tr models.ToolResult) {
	if e.deps.Recorder == nil || tr.Status == models.ToolStatusSkipped {
		return
	}
	rec := models.PerformanceRecord{
		Subject:        tr.Tool,
		ResponseTimeMs: tr.DurationMs,
		Success:        tr.Status == models.ToolStatusOK,
		RecordedAt:     time.Now().UTC(),
	}
	if rec.Success {
		rec.Relevance = 1
	}
	if err := e.deps.Recorder.RecordPerformance(rec); err != nil {
		debugLog("recording performance for %s: %v", tr.Tool, err)
	}
}

// withDefaultParameters fills empty tool parameter sets with the request's
// query and path so built-in executors have something to work with.
func withDefaultParameters(plan models.ExecutionPlan, req Request) models.ExecutionPlan {
	tools := make([]models.SelectedTool, len(plan.Selection.Tools))
	copy(tools, plan.Selection.Tools)
	for i := range tools {
		if len(tools[i].Parameters) != 0 {
			continue
		}
		params := models.ToolParameters{"query": req.Task}
		if req.ProjectPath != "" {
			params["path"] = req.ProjectPath
		}
		tools[i].Parameters = params
	}
	plan.Selection.Tools = tools
	return plan
}

func sortDegraded(res *Result) {
	sort.Strings(res.Degraded)
}
