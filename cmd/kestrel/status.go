package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kestrelhq/kestrel/internal/catalog"
	"github.com/kestrelhq/kestrel/internal/config"
	"github.com/kestrelhq/kestrel/internal/recorder"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and storage status",
	RunE:  runStatusCmd,
}

func runStatusCmd(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	bold := color.New(color.Bold)

	bold.Println("Configuration")
	fmt.Printf("  user config: %s\n", config.GetUserConfigPath())
	if project := config.GetProjectConfigPath(); project != "" {
		fmt.Printf("  project config: %s\n", project)
	}
	fmt.Printf("  goal: %s  workers: %d  queue: %s\n",
		cfg.Defaults.Goal, cfg.Defaults.Workers, cfg.Queue.Driver)

	bold.Println("\nReasoning")
	if cfg.Anthropic.UseBedrock {
		fmt.Println("  backend: AWS Bedrock")
	} else if key, err := config.GetAPIKey(cfg); err == nil {
		fmt.Printf("  api key: %s\n", config.MaskAPIKey(key))
	} else {
		color.Yellow("  no API key configured; selection runs heuristic-only")
	}

	bold.Println("\nCatalog")
	cat := catalog.NewDefault()
	if cfg.Catalog.Dir != "" {
		if err := cat.LoadDir(cfg.Catalog.Dir); err != nil {
			color.Red("  extra tools dir %s: %v", cfg.Catalog.Dir, err)
		} else {
			fmt.Printf("  extra tools dir: %s\n", cfg.Catalog.Dir)
		}
	}
	fmt.Printf("  %d tools registered\n", cat.Len())

	bold.Println("\nStorage")
	dbPath := cfg.StoragePath()
	fmt.Printf("  decisions db: %s\n", dbPath)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Println("  (not created yet; it appears on first run)")
		return nil
	}

	store, err := recorder.NewStore(dbPath)
	if err != nil {
		color.Red("  open failed: %v", err)
		return nil
	}
	defer store.Close()

	decisions, err := store.Decisions(0)
	if err == nil {
		fmt.Printf("  %d decisions recorded\n", len(decisions))
	}
	deadLetters, err := store.DeadLetters("")
	if err == nil && len(deadLetters) > 0 {
		color.Red("  %d dead-lettered messages ('kestrel history --dead-letters')", len(deadLetters))
	}
	return nil
}
