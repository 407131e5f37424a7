package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kestrelhq/kestrel/internal/engine"
	"github.com/kestrelhq/kestrel/internal/tui"
	"github.com/kestrelhq/kestrel/pkg/models"
)

var (
	runGoal          string
	runPath          string
	runOrchestrate   bool
	runNoOrchestrate bool
	runDeadline      string
	runRetries       int
	runNoTUI         bool
)

var runCmd = &cobra.Command{
	Use:     "run <task>",
	Aliases: []string{"orchestrate"},
	Short:   "Analyze a task and execute the resulting plan",
	Long: `Analyze the task, select tools, and execute. Simple tasks run their
execution plan in-process; complex tasks (or --orchestrate) run the
multi-role pipeline with a live status view.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runGoal, "goal", "", "optimization goal: speed, accuracy, balanced, cost, orchestration")
	runCmd.Flags().StringVar(&runPath, "path", "", "project path to analyze")
	runCmd.Flags().BoolVar(&runOrchestrate, "orchestrate", false, "force a multi-role pipeline")
	runCmd.Flags().BoolVar(&runNoOrchestrate, "no-orchestrate", false, "force single-stage execution")
	runCmd.Flags().StringVar(&runDeadline, "deadline", "", "overall workflow deadline (e.g. 5m)")
	runCmd.Flags().IntVar(&runRetries, "retries", 0, "per-role retry budget (0 = default)")
	runCmd.Flags().BoolVar(&runNoTUI, "no-tui", false, "print completions instead of the live view")
}

func runRun(cmd *cobra.Command, args []string) error {
	if runOrchestrate && runNoOrchestrate {
		return fmt.Errorf("--orchestrate and --no-orchestrate are mutually exclusive")
	}

	ctx := cmd.Context()
	app, err := buildApp(ctx, true)
	if err != nil {
		return err
	}
	defer app.Close()

	deadline, err := deadlineFlag(runDeadline)
	if err != nil {
		return fmt.Errorf("parsing --deadline: %w", err)
	}

	req := engine.Request{
		Task:        strings.Join(args, " "),
		ProjectPath: runPath,
		Goal:        models.OptimizationGoal(runGoal),
		Deadline:    deadline,
		MaxRetries:  runRetries,
	}
	switch {
	case runOrchestrate:
		req.Orchestration = engine.ModeForce
	case runNoOrchestrate:
		req.Orchestration = engine.ModeDisable
	}

	res, err := app.engine.Analyze(ctx, req)
	if err != nil {
		return err
	}

	if res.Orchestrated {
		if err := app.runtime.Start(ctx); err != nil {
			return err
		}
		if !runNoTUI {
			return runWithTUI(cmd, app, req, res)
		}
	}

	if err := app.engine.Execute(ctx, req, &res); err != nil {
		printDegraded(res.Degraded)
		return err
	}
	printResult(res)
	return nil
}

// runWithTUI starts the workflow directly so the live view can consume the
// completion channel as it fills.
func runWithTUI(cmd *cobra.Command, app *app, req engine.Request, res engine.Result) error {
	watch, err := app.engine.StartOrchestration(cmd.Context(), req, &res)
	if err != nil {
		return err
	}

	failed, err := tui.Watch(res.WorkflowID, res.Orchestration.RoleIDs(), watch)
	if err != nil {
		return err
	}
	if failed {
		return fmt.Errorf("workflow %s failed; see 'kestrel history' for dead letters", res.WorkflowID)
	}
	color.Green("workflow %s complete", res.WorkflowID)
	return nil
}

func printResult(res engine.Result) {
	if res.Orchestrated {
		for _, done := range res.Completions {
			switch done.Status {
			case models.StatusComplete:
				color.Green("✓ %s", done.Role)
			case models.StatusError:
				color.Red("✗ %s: %s", done.Role, done.Error)
			}
			if done.Result != "" {
				fmt.Println(indent(done.Result, "    "))
			}
		}
	} else {
		for _, tr := range res.ToolResults {
			switch tr.Status {
			case models.ToolStatusOK:
				color.Green("✓ %s (%dms)", tr.Tool, tr.DurationMs)
				if tr.Output != "" {
					fmt.Println(indent(tr.Output, "    "))
				}
			case models.ToolStatusFailed:
				color.Red("✗ %s: %s", tr.Tool, tr.Error)
			case models.ToolStatusSkipped:
				color.Yellow("- %s (skipped)", tr.Tool)
			}
		}
	}
	printDegraded(res.Degraded)
}

func printDegraded(degraded []string) {
	if len(degraded) == 0 {
		return
	}
	color.Yellow("degraded: %s", strings.Join(degraded, ", "))
}

func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
