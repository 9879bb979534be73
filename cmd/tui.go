package cmd

import (
	"log/slog"

	"agentmem/internal/budget"
	"agentmem/internal/promote"
	"agentmem/internal/tui"

	"github.com/spf13/cobra"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Browse and search memory interactively",
	RunE:  runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	p, err := promote.New(cfg, slog.Default())
	if err != nil {
		return err
	}

	return tui.Run(tui.Config{
		Root:     cfg.Root,
		Snapshot: cfg.Path(cfg.Snapshot),
		Index:    indexOptions(cfg),
		Budget: budget.Options{
			Extensions: cfg.Extensions,
			Ignore:     cfg.Ignore,
		},
		Promoter: p,
		Days:     cfg.Days,
		Top:      cfg.Top,
		Now:      now,
	})
}
