package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kestrelhq/kestrel/internal/catalog"
	"github.com/kestrelhq/kestrel/internal/config"
)

var catalogCapability string

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List the registered analysis tools",
	RunE:  runCatalog,
}

func init() {
	catalogCmd.Flags().StringVar(&catalogCapability, "capability", "", "only show tools with this capability tag")
}

func runCatalog(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	cat := catalog.NewDefault()
	if cfg.Catalog.Dir != "" {
		if err := cat.LoadDir(cfg.Catalog.Dir); err != nil {
			return fmt.Errorf("loading catalog dir: %w", err)
		}
	}

	names := cat.Names()
	if catalogCapability != "" {
		names = cat.ByCapability(catalogCapability)
		if len(names) == 0 {
			fmt.Printf("no tools with capability %q\n", catalogCapability)
			return nil
		}
	}

	bold := color.New(color.Bold)
	for _, name := range names {
		tool, err := cat.Lookup(name)
		if err != nil {
			continue
		}
		bold.Println(tool.Name)
		fmt.Printf("  capabilities: %s\n", strings.Join(tool.Capabilities, ", "))
		fmt.Printf("  cost: %-7s time: %-7s reliability: %.2f\n",
			tool.TokenCost, tool.ExecutionTime, tool.Reliability)
		if len(tool.Dependencies) > 0 {
			fmt.Printf("  depends on: %s\n", strings.Join(tool.Dependencies, ", "))
		}
		if tool.Parallelizable {
			fmt.Println("  parallelizable")
		}
	}
	return nil
}
