package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"agentmem/internal/promote"

	"github.com/spf13/cobra"
)

var (
	flagPromoteDays  int
	flagPromoteTop   int
	flagPromoteJSON  bool
	flagPromoteApply bool
	flagPromoteFile  string
)

var promoteCmd = &cobra.Command{
	Use:   "promote",
	Short: "Find facts worth keeping in recent daily logs and promote them",
	Long: "Scan the last --days daily logs for decisions, lessons, facts, contacts and\n" +
		"platform notes. With --apply the top candidates are written into MEMORY.md.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		days, top := cfg.Days, cfg.Top
		if cmd.Flags().Changed("days") {
			days = flagPromoteDays
		}
		if cmd.Flags().Changed("top") {
			top = flagPromoteTop
		}
		if days < 0 {
			return errors.New("promote: --days must not be negative")
		}

		p, err := promote.New(cfg, slog.Default())
		if err != nil {
			return err
		}
		cands, err := p.ScanRecent(cmd.Context(), cfg.Root, days, now())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if !flagPromoteApply {
			if flagPromoteJSON {
				if top > 0 && len(cands) > top {
					cands = cands[:top]
				}
				data, err := promote.FormatJSON(cands)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
				return nil
			}
			fmt.Fprintln(out, promote.FormatText(cands, top))
			return nil
		}

		file := flagPromoteFile
		if file == "" {
			file = cfg.MemoryFile
		}
		path := cfg.Path(file)
		res, err := p.ApplyFile(path, cands, top, now())
		if err != nil {
			return err
		}
		if len(res.Added) == 0 {
			fmt.Fprintln(out, "All candidates already present in MEMORY.md.")
			return nil
		}
		fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✅ Promoted %d items to %s", len(res.Added), file)))
		for _, a := range res.Added {
			fmt.Fprintln(out, dimStyle.Render(fmt.Sprintf("   %s %s → %s", promote.Emoji[a.Candidate.Category], truncateRunes(a.Candidate.Text, 80), a.Section)))
		}
		return nil
	},
}

func init() {
	promoteCmd.Flags().IntVar(&flagPromoteDays, "days", 7, "number of recent days to scan, today included")
	promoteCmd.Flags().IntVar(&flagPromoteTop, "top", 10, "maximum candidates to show or apply (0 for all)")
	promoteCmd.Flags().BoolVar(&flagPromoteJSON, "json", false, "print candidates as JSON")
	promoteCmd.Flags().BoolVar(&flagPromoteApply, "apply", false, "write candidates into the long-term memory file")
	promoteCmd.Flags().StringVar(&flagPromoteFile, "file", "", "long-term memory file (default from config: MEMORY.md)")
	rootCmd.AddCommand(promoteCmd)
}
