// Package executor runs execution plans against a static registry of
// per-tool executor functions. Tools are opaque, at-least-once-safe
// operations: a failing tool is recorded and excluded from the aggregate
// result, and only a fully failed group aborts the plan.
package executor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kestrelhq/kestrel/pkg/models"
)

// Func executes one tool invocation.
type Func func(ctx context.Context, params models.ToolParameters) (string, error)

// UnknownExecutorError is returned when a plan names a tool with no
// registered executor.
type UnknownExecutorError struct {
	Name string
}

func (e *UnknownExecutorError) Error() string {
	return fmt.Sprintf("no executor registered for tool %q", e.Name)
}

// ParameterError is returned when an invocation carries a parameter key the
// tool's executor does not declare.
type ParameterError struct {
	Tool string
	Key  string
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("tool %q does not accept parameter %q", e.Tool, e.Key)
}

// GroupFailedError is returned when every tool in one execution group fails.
type GroupFailedError struct {
	Group int
	Tools []string
}

func (e *GroupFailedError) Error() string {
	return fmt.Sprintf("execution group %d failed entirely: %v", e.Group, e.Tools)
}

type registration struct {
	fn   Func
	keys map[string]bool // nil means any parameters
}

// Registry maps tool names to executor functions. It is populated at
// startup and read-only during plan execution.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]registration
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]registration)}
}

// Register binds an executor function to a tool name, replacing any previous
// binding. keys is the allowed parameter-key set; nil accepts any keys.
func (r *Registry) Register(name string, keys []string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg := registration{fn: fn}
	if keys != nil {
		reg.keys = make(map[string]bool, len(keys))
		for _, k := range keys {
			reg.keys[k] = true
		}
	}
	r.entries[name] = reg
}

// Lookup returns the executor for a tool name.
func (r *Registry) Lookup(name string) (Func, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.entries[name]
	return reg.fn, ok
}

// Names returns all registered tool names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) validate(name string, params models.ToolParameters) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.entries[name]
	if !ok {
		return &UnknownExecutorError{Name: name}
	}
	if reg.keys == nil {
		return nil
	}
	for key := range params {
		if !reg.keys[key] {
			return &ParameterError{Tool: name, Key: key}
		}
	}
	return nil
}

// Runner executes plans group by group. Tools within a multi-tool group run
// concurrently; groups always run in order.
type Runner struct {
	registry *Registry
	debugLog func(format string, args ...interface{})
}

// NewRunner returns a Runner over the given registry.
func NewRunner(registry *Registry) *Runner {
	return &Runner{
		registry: registry,
		debugLog: func(format string, args ...interface{}) {},
	}
}

// SetDebugLog installs a debug logger.
func (r *Runner) SetDebugLog(fn func(format string, args ...interface{})) {
	if fn != nil {
		r.debugLog = fn
	}
}

// Run executes the plan and returns one ToolResult per selected tool, in
// group order. A tool failure is recorded and execution continues; only when
// every tool in a group fails does Run stop, mark the remaining tools
// skipped, and return a GroupFailedError alongside the partial results.
func (r *Runner) Run(ctx context.Context, plan models.ExecutionPlan) ([]models.ToolResult, error) {
	params := make(map[string]models.ToolParameters, len(plan.Selection.Tools))
	for _, t := range plan.Selection.Tools {
		params[t.Name] = t.Parameters
	}

	var results []models.ToolResult
	for i, group := range plan.Groups {
		groupResults := r.runGroup(ctx, group.Tools, params)
		results = append(results, groupResults...)

		if allFailed(groupResults) {
			for _, later := range plan.Groups[i+1:] {
				for _, name := range later.Tools {
					results = append(results, models.ToolResult{
						Tool:   name,
						Status: models.ToolStatusSkipped,
					})
				}
			}
			return results, &GroupFailedError{Group: i, Tools: group.Tools}
		}
	}
	return results, nil
}

func (r *Runner) runGroup(ctx context.Context, tools []string, params map[string]models.ToolParameters) []models.ToolResult {
	results := make([]models.ToolResult, len(tools))
	if len(tools) == 1 {
		results[0] = r.runTool(ctx, tools[0], params[tools[0]])
		return results
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range tools {
		i, name := i, name
		g.Go(func() error {
			results[i] = r.runTool(gctx, name, params[name])
			return nil
		})
	}
	g.Wait() // funcs record failures in results and never return errors
	return results
}

func (r *Runner) runTool(ctx context.Context, name string, params models.ToolParameters) models.ToolResult {
	start := time.Now()
	result := models.ToolResult{Tool: name}

	if err := r.registry.validate(name, params); err != nil {
		var unknown *UnknownExecutorError
		if errors.As(err, &unknown) {
			r.debugLog("executor: skipping %s: %v", name, err)
			result.Status = models.ToolStatusSkipped
			result.Error = err.Error()
			return result
		}
		result.Status = models.ToolStatusFailed
		result.Error = err.Error()
		result.DurationMs = time.Since(start).Milliseconds()
		return result
	}

	fn, _ := r.registry.Lookup(name)
	output, err := fn(ctx, params)
	result.DurationMs = time.Since(start).Milliseconds()
	if err != nil {
		r.debugLog("executor: %s failed after %dms: %v", name, result.DurationMs, err)
		result.Status = models.ToolStatusFailed
		result.Error = err.Error()
		return result
	}
	result.Status = models.ToolStatusOK
	result.Output = output
	return result
}

func allFailed(results []models.ToolResult) bool {
	if len(results) == 0 {
		return false
	}
	for _, res := range results {
		if res.Status != models.ToolStatusFailed {
			return false
		}
	}
	return true
}
