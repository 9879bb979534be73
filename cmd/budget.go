package cmd

import (
	"fmt"
	"path/filepath"

	"agentmem/internal/budget"
	"agentmem/internal/config"
	"agentmem/internal/promote"

	"github.com/spf13/cobra"
)

var (
	flagBudgetTop   int
	flagBudgetCSV   bool
	flagBudgetExact bool
)

var budgetCmd = &cobra.Command{
	Use:   "budget",
	Short: "Estimate how many tokens each memory file costs",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		counter, err := tokenCounter(flagBudgetExact)
		if err != nil {
			return err
		}
		stats, err := budget.AnalyzeDir(cmd.Context(), cfg.Root, budget.Options{
			Extensions: cfg.Extensions,
			Ignore:     cfg.Ignore,
			Counter:    counter,
		})
		if err != nil {
			return err
		}
		if flagBudgetCSV {
			fmt.Fprintln(cmd.OutOrStdout(), budget.FormatCSV(stats))
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), budget.FormatTable(stats, flagBudgetTop))
		return nil
	},
}

var flagWakeExact bool

var wakeCmd = &cobra.Command{
	Use:   "wake",
	Short: "Estimate the token cost of an agent's wake sequence",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		counter, err := tokenCounter(flagWakeExact)
		if err != nil {
			return err
		}
		entries, total := budget.WakeCost(cfg.Root, wakeFiles(cfg), counter)
		fmt.Fprintln(cmd.OutOrStdout(), budget.FormatWake(entries, total))
		return nil
	},
}

func init() {
	budgetCmd.Flags().IntVar(&flagBudgetTop, "top", 20, "number of files to list (0 for all)")
	budgetCmd.Flags().BoolVar(&flagBudgetCSV, "csv", false, "print every file as CSV")
	budgetCmd.Flags().BoolVar(&flagBudgetExact, "exact", false, "count tokens with the cl100k_base tokenizer")
	wakeCmd.Flags().BoolVar(&flagWakeExact, "exact", false, "count tokens with the cl100k_base tokenizer")
	rootCmd.AddCommand(budgetCmd, wakeCmd)
}

func tokenCounter(exact bool) (budget.Counter, error) {
	if !exact {
		return budget.Heuristic{}, nil
	}
	return budget.NewTiktoken(budget.DefaultEncoding)
}

// wakeFiles lists the configured wake files followed by today's and
// yesterday's daily logs.
func wakeFiles(cfg config.Config) []string {
	files := append([]string(nil), cfg.WakeFiles...)
	dir := promote.LogDir(cfg.Root)
	rel, err := filepath.Rel(cfg.Root, dir)
	if err != nil {
		rel = "."
	}
	t := now()
	for _, d := range []string{t.Format("2006-01-02"), t.AddDate(0, 0, -1).Format("2006-01-02")} {
		files = append(files, filepath.ToSlash(filepath.Join(rel, d+".md")))
	}
	return files
}
