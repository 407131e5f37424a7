package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kestrelhq/kestrel/internal/pipeline"
	"github.com/kestrelhq/kestrel/pkg/models"
)

// allRoles is every role the runtime may be asked to run.
var allRoles = []models.RoleID{
	models.RoleContextOptimization,
	models.RoleArchitect,
	models.RoleSecurity,
	models.RoleQuality,
	models.RoleRefactoring,
	models.RolePerformance,
	models.RoleDocumentation,
	models.RoleCoordinator,
}

// RegisterRoleWorkers registers a worker pool for every role on the given
// runtime. Must be called before the runtime starts.
func (e *Engine) RegisterRoleWorkers(rt *pipeline.Runtime, instances int) error {
	for _, role := range allRoles {
		if err := rt.RegisterWorkers(role, e.RoleHandler(role), instances); err != nil {
			return fmt.Errorf("registering %s workers: %w", role, err)
		}
	}
	return nil
}

// RoleHandler returns the handler that executes one role's tool set against
// a workflow message. The coordinator role synthesizes prior findings
// instead of running tools.
func (e *Engine) RoleHandler(role models.RoleID) pipeline.RoleHandler {
	return pipeline.RoleHandlerFunc(func(ctx context.Context, msg models.WorkflowMessage) (string, map[string]string, error) {
		def := e.deps.Mapper.Definition(role)
		if role == models.RoleCoordinator || len(def.Tools) == 0 {
			return synthesize(msg.Input), nil, nil
		}
		return e.runRoleTools(ctx, def, msg.Input)
	})
}

func (e *Engine) runRoleTools(ctx context.Context, def models.RoleDefinition, input models.WorkflowInput) (string, map[string]string, error) {
	params := models.ToolParameters{"query": input.Query}
	if input.ProjectPath != "" {
		params["path"] = input.ProjectPath
	}

	sel := models.ToolSelection{Goal: models.OptimizeBalanced, Confidence: 1}
	for _, name := range def.Tools {
		sel.Tools = append(sel.Tools, models.SelectedTool{
			Name:       name,
			Confidence: 1,
			Parameters: params,
		})
	}

	plan, err := e.deps.Planner.Plan(sel)
	if err != nil {
		return "", nil, fmt.Errorf("planning %s tools: %w", def.ID, err)
	}

	results, err := e.deps.Runner.Run(ctx, plan)
	for _, tr := range results {
		e.recordPerformance(tr)
	}
	if err != nil {
		// A fully failed group fails the role attempt so the runtime can
		// retry it; partial failures degrade the summary instead.
		return "", nil, fmt.Errorf("running %s tools: %w", def.ID, err)
	}

	var outputs []string
	var degraded []string
	for _, tr := range results {
		switch tr.Status {
		case models.ToolStatusOK:
			outputs = append(outputs, tr.Output)
		default:
			degraded = append(degraded, tr.Tool)
		}
	}
	summary := strings.Join(outputs, "\n")
	if len(degraded) > 0 {
		summary += fmt.Sprintf("\n(degraded: %s)", strings.Join(degraded, ", "))
	}
	return summary, nil, nil
}

// synthesize folds the accumulated role findings into a single report,
// in role order for stable output.
func synthesize(input models.WorkflowInput) string {
	if len(input.Context) == 0 {
		return "no findings to synthesize"
	}
	keys := make([]string, 0, len(input.Context))
	for k := range input.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "synthesis of %d findings for %q:\n", len(keys), input.Query)
	for _, k := range keys {
		fmt.Fprintf(&b, "- [%s] %s\n", k, input.Context[k])
	}
	return strings.TrimRight(b.String(), "\n")
}
