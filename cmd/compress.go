package cmd

import (
	"fmt"
	"time"

	"agentmem/internal/compress"
	"agentmem/internal/promote"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

var (
	flagCompressWeek   string
	flagCompressSave   bool
	flagCompressRender bool
)

var compressCmd = &cobra.Command{
	Use:   "compress",
	Short: "Summarize a week of daily logs",
	Long: "Summarize the Monday-to-Sunday week containing --week (default: one week ago).\n" +
		"With --save the summary is written to memory/summaries/YYYY-Www.md.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		weekDate := now().AddDate(0, 0, -7)
		if flagCompressWeek != "" {
			weekDate, err = time.ParseInLocation("2006-01-02", flagCompressWeek, time.Local)
			if err != nil {
				return fmt.Errorf("compress: invalid --week %q: %w", flagCompressWeek, err)
			}
		}

		week := compress.CompressWeek(promote.LogDir(cfg.Root), weekDate)
		md := week.Markdown()
		out := cmd.OutOrStdout()
		if flagCompressRender {
			r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
			if err != nil {
				return fmt.Errorf("compress: render: %w", err)
			}
			rendered, err := r.Render(md)
			if err != nil {
				return fmt.Errorf("compress: render: %w", err)
			}
			fmt.Fprint(out, rendered)
		} else {
			fmt.Fprintln(out, md)
		}

		if flagCompressSave {
			path, err := compress.Save(cfg.Root, week)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, successStyle.Render("\n💾 Saved to "+path))
		}
		return nil
	},
}

func init() {
	compressCmd.Flags().StringVar(&flagCompressWeek, "week", "", "any date in the week to summarize (YYYY-MM-DD)")
	compressCmd.Flags().BoolVar(&flagCompressSave, "save", false, "write the summary under memory/summaries")
	compressCmd.Flags().BoolVar(&flagCompressRender, "render", false, "render the summary as styled markdown")
	rootCmd.AddCommand(compressCmd)
}
