package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"agentmem/internal/config"
	"agentmem/internal/index"

	"github.com/spf13/cobra"
)

var (
	flagSearchLimit    int
	flagSearchContext  int
	flagSearchJSON     bool
	flagSearchSnapshot string
)

var searchCmd = &cobra.Command{
	Use:   "search <query...>",
	Short: "Keyword search across memory files",
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.TrimSpace(strings.Join(args, " "))
		if query == "" {
			_ = cmd.Usage()
			return errors.New("search: a query is required")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		idx, err := openIndex(cmd.Context(), cfg, flagSearchSnapshot)
		if err != nil {
			return err
		}

		results := idx.Search(query, flagSearchLimit, flagSearchContext)
		out := cmd.OutOrStdout()
		if flagSearchJSON {
			if results == nil {
				results = []index.SearchResult{}
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		}
		fmt.Fprintln(out, formatSearch(query, results))
		return nil
	},
}

func init() {
	searchCmd.Flags().IntVarP(&flagSearchLimit, "limit", "n", 10, "maximum results (0 for all)")
	searchCmd.Flags().IntVarP(&flagSearchContext, "context", "C", 0, "lines of context around each hit")
	searchCmd.Flags().BoolVar(&flagSearchJSON, "json", false, "print results as JSON")
	searchCmd.Flags().StringVar(&flagSearchSnapshot, "snapshot", "", "search a saved index instead of rebuilding")
	rootCmd.AddCommand(searchCmd)
}

// openIndex loads snapshot when given, otherwise builds a fresh index.
func openIndex(ctx context.Context, cfg config.Config, snapshot string) (*index.Index, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if snapshot != "" {
		return index.Load(ctx, cfg.Path(snapshot), indexOptions(cfg))
	}
	return index.Build(ctx, cfg.Root, indexOptions(cfg))
}

func formatSearch(query string, results []index.SearchResult) string {
	if len(results) == 0 {
		return fmt.Sprintf("No results for '%s'", query)
	}
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("🔍 Results for '%s' (%d hits):", query, len(results))))
	b.WriteString("\n\n")
	for _, r := range results {
		filled := int(r.Score * 5)
		fmt.Fprintf(&b, "  [%s%s] %s:%d\n", strings.Repeat("●", filled), strings.Repeat("○", 5-filled), r.File, r.Line)
		fmt.Fprintf(&b, "    %s\n", truncateRunes(r.Text, 120))
		for _, c := range r.Context {
			b.WriteString(dimStyle.Render("    │ "+truncateRunes(c, 120)) + "\n")
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
