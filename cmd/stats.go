package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"agentmem/internal/index"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	flagStatsJSON     bool
	flagStatsSnapshot string
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show keyword index statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		idx, err := openIndex(cmd.Context(), cfg, flagStatsSnapshot)
		if err != nil {
			return err
		}
		st := idx.Stats()
		if flagStatsJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(st)
		}
		fmt.Fprintln(cmd.OutOrStdout(), formatStats(st))
		return nil
	},
}

func init() {
	statsCmd.Flags().BoolVar(&flagStatsJSON, "json", false, "print statistics as JSON")
	statsCmd.Flags().StringVar(&flagStatsSnapshot, "snapshot", "", "read a saved index instead of rebuilding")
	rootCmd.AddCommand(statsCmd)
}

func formatStats(st index.Stats) string {
	p := message.NewPrinter(language.English)
	lines := []string{
		headerStyle.Render("📊 Index Statistics:"),
		p.Sprintf("   Files indexed:    %d", st.FilesIndexed),
		p.Sprintf("   Unique tokens:    %d", st.UniqueTokens),
		p.Sprintf("   Total references: %d", st.TotalTokenRefs),
		fmt.Sprintf("   Index size:       ~%.1f KB", st.ApproxSizeKB),
	}
	return strings.Join(lines, "\n")
}
