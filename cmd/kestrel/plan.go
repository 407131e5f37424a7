package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kestrelhq/kestrel/internal/engine"
	"github.com/kestrelhq/kestrel/pkg/models"
)

var (
	planGoal        string
	planPath        string
	planOrchestrate bool
)

var planCmd = &cobra.Command{
	Use:   "plan <task>",
	Short: "Analyze a task and show the execution plan without running it",
	Long: `Analyze the task's complexity, select tools from the catalog, and print
the resulting execution plan. For complex tasks the multi-role
orchestration plan is shown as well. Nothing is executed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringVar(&planGoal, "goal", "", "optimization goal: speed, accuracy, balanced, cost, orchestration")
	planCmd.Flags().StringVar(&planPath, "path", "", "project path to analyze")
	planCmd.Flags().BoolVar(&planOrchestrate, "orchestrate", false, "force a multi-role pipeline")
}

func runPlan(cmd *cobra.Command, args []string) error {
	app, err := buildApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer app.Close()

	req := engine.Request{
		Task:        strings.Join(args, " "),
		ProjectPath: planPath,
		Goal:        models.OptimizationGoal(planGoal),
	}
	if planOrchestrate {
		req.Orchestration = engine.ModeForce
	}

	res, err := app.engine.Analyze(cmd.Context(), req)
	if err != nil {
		return err
	}

	printProfile(res.Profile)
	printSelection(res.Selection)
	printPlan(res.Plan)
	if res.Orchestration != nil {
		printOrchestration(res.Orchestration)
	}
	return nil
}

func printProfile(p models.ComplexityProfile) {
	bold := color.New(color.Bold)
	bold.Println("Complexity")
	fmt.Printf("  score: %.2f  scope: %s  effort: %s\n", p.Score, p.Scope, p.Effort)
	if len(p.Domains) > 0 {
		names := make([]string, len(p.Domains))
		for i, d := range p.Domains {
			names[i] = string(d)
		}
		fmt.Printf("  domains: %s\n", strings.Join(names, ", "))
	}
	if p.OrchestrationRecommended() {
		color.Yellow("  orchestration recommended")
	}
	fmt.Println()
}

func printSelection(sel models.ToolSelection) {
	bold := color.New(color.Bold)
	bold.Println("Selected tools")
	for _, t := range sel.Tools {
		fmt.Printf("  %-24s %.2f", t.Name, t.Confidence)
		if t.Reasoning != "" {
			fmt.Printf("  %s", t.Reasoning)
		}
		fmt.Println()
	}
	mode := "reasoned"
	if sel.Heuristic {
		mode = "heuristic"
	}
	fmt.Printf("  confidence: %.2f (%s)\n", sel.Confidence, mode)
	if len(sel.Alternatives) > 0 {
		fmt.Printf("  alternatives: %s\n", strings.Join(sel.Alternatives, ", "))
	}
	fmt.Println()
}

func printPlan(plan models.ExecutionPlan) {
	bold := color.New(color.Bold)
	bold.Println("Execution plan")
	fmt.Printf("  strategy: %s  tokens: ~%d  duration: ~%dms\n",
		plan.Strategy, plan.EstimatedTokens, plan.EstimatedDurationMs)
	for i, group := range plan.Groups {
		fmt.Printf("  %d. %s\n", i+1, strings.Join(group.Tools, ", "))
	}
	if len(plan.FallbackChain) > 0 {
		fmt.Printf("  fallback: %s\n", strings.Join(plan.FallbackChain, ", "))
	}
	fmt.Println()
}

func printOrchestration(plan *models.OrchestrationPlan) {
	bold := color.New(color.Bold)
	bold.Println("Orchestration pipeline")
	for i, role := range plan.Pipeline {
		fmt.Printf("  %d. %-22s %s\n", i+1, role.ID, strings.Join(role.Tools, ", "))
	}
	fmt.Printf("  tokens: ~%d  duration: ~%dms", plan.EstimatedTokens, plan.EstimatedDurationMs)
	if plan.CoordinationRequired {
		fmt.Printf("  (coordination required)")
	}
	fmt.Println()
}
