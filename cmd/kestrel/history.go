package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kestrelhq/kestrel/internal/config"
	"github.com/kestrelhq/kestrel/internal/recorder"
	"github.com/kestrelhq/kestrel/pkg/models"
)

var (
	historyLimit       int
	historySubject     string
	historyDeadLetters bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded decisions, tool performance, and dead letters",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of entries")
	historyCmd.Flags().StringVar(&historySubject, "subject", "", "show performance history for a tool or role")
	historyCmd.Flags().BoolVar(&historyDeadLetters, "dead-letters", false, "show dead-lettered workflow messages")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	store, err := recorder.NewStore(cfg.StoragePath())
	if err != nil {
		return fmt.Errorf("opening decision store: %w", err)
	}
	defer store.Close()

	switch {
	case historyDeadLetters:
		return printDeadLetters(store)
	case historySubject != "":
		return printPerformance(store, historySubject)
	default:
		return printDecisions(store)
	}
}

func printDecisions(store *recorder.Store) error {
	decisions, err := store.Decisions(historyLimit)
	if err != nil {
		return err
	}
	if len(decisions) == 0 {
		fmt.Println("no decisions recorded yet")
		return nil
	}

	bold := color.New(color.Bold)
	for _, d := range decisions {
		bold.Printf("%s  %s\n", d.CreatedAt.Local().Format("2006-01-02 15:04"), d.Task)
		mode := "reasoned"
		if d.Heuristic {
			mode = "heuristic"
		}
		fmt.Printf("  goal: %s  confidence: %.2f (%s)", d.Goal, d.Confidence, mode)
		if d.Orchestrated {
			fmt.Printf("  orchestrated")
		}
		fmt.Println()
		fmt.Printf("  tools: %s\n", strings.Join(d.Tools, ", "))
	}
	return nil
}

func printPerformance(store *recorder.Store, subject string) error {
	eff, samples, err := store.Effectiveness(subject)
	if err != nil {
		return err
	}
	if samples == 0 {
		fmt.Printf("no history for %q\n", subject)
		return nil
	}
	fmt.Printf("%s: %.0f%% success over %d runs\n\n", subject, eff*100, samples)

	records, err := store.History(subject, historyLimit)
	if err != nil {
		return err
	}
	for _, r := range records {
		mark := color.GreenString("✓")
		if !r.Success {
			mark = color.RedString("✗")
		}
		fmt.Printf("  %s %s  %dms\n", mark, r.RecordedAt.Local().Format("2006-01-02 15:04"), r.ResponseTimeMs)
	}
	return nil
}

func printDeadLetters(store *recorder.Store) error {
	entries, err := store.DeadLetters(models.RoleID(""))
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("no dead letters")
		return nil
	}

	for _, e := range entries {
		color.Red("%s  workflow %s  role %s", e.CreatedAt.Local().Format("2006-01-02 15:04"), e.WorkflowID, e.Role)
		fmt.Printf("  reason: %s\n", e.Reason)
		fmt.Printf("  query: %s  (retries: %d)\n", e.Message.Input.Query, e.Message.RetryCount)
	}
	return nil
}
