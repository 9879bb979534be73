package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"agentmem/internal/config"
	"agentmem/internal/embedder"
	"agentmem/internal/semantic"
	"agentmem/internal/store"

	"github.com/spf13/cobra"
)

var (
	flagSemanticK    int
	flagSemanticJSON bool
	flagOllama       string
	flagModel        string
)

var semanticCmd = &cobra.Command{
	Use:   "semantic",
	Short: "Embedding-based search over memory files (requires Ollama)",
}

var semanticIndexCmd = &cobra.Command{
	Use:   "index",
	Short: "Chunk and embed memory files, reusing unchanged embeddings",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		idx, st, err := openSemantic(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		fmt.Fprintln(cmd.OutOrStdout(), dimStyle.Render("Embedding with "+cfg.Semantic.Model+" via "+cfg.Semantic.OllamaURL+"..."))
		bs, err := idx.Build(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf(
			"✓ Indexed %d files, %d chunks (%d embedded, %d reused)", bs.Files, bs.Chunks, bs.Embedded, bs.Reused)))
		return nil
	},
}

var semanticSearchCmd = &cobra.Command{
	Use:   "search <query...>",
	Short: "Search memory by meaning",
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.TrimSpace(strings.Join(args, " "))
		if query == "" {
			_ = cmd.Usage()
			return errors.New("semantic search: a query is required")
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		idx, st, err := openSemantic(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		results, err := idx.Search(cmd.Context(), query, flagSemanticK)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if flagSemanticJSON {
			if results == nil {
				results = []semantic.Result{}
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		}
		fmt.Fprintln(out, formatSemantic(query, results))
		return nil
	},
}

var semanticStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show semantic index statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		idx, st, err := openSemantic(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		s, err := idx.Stats(cmd.Context())
		if err != nil {
			return err
		}
		if flagSemanticJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(s)
		}
		model := s.Model
		if model == "" {
			model = "(not built)"
		}
		fmt.Fprintln(cmd.OutOrStdout(), strings.Join([]string{
			headerStyle.Render("🧠 Semantic Index:"),
			fmt.Sprintf("   Files:       %d", s.Files),
			fmt.Sprintf("   Chunks:      %d", s.Chunks),
			fmt.Sprintf("   Characters:  %d", s.TotalChars),
			fmt.Sprintf("   Model:       %s", model),
		}, "\n"))
		return nil
	},
}

func init() {
	semanticCmd.PersistentFlags().StringVar(&flagOllama, "ollama", "", "Ollama base URL (default from config)")
	semanticCmd.PersistentFlags().StringVar(&flagModel, "model", "", "embedding model (default from config)")
	semanticCmd.PersistentFlags().BoolVar(&flagSemanticJSON, "json", false, "print output as JSON")
	semanticSearchCmd.Flags().IntVarP(&flagSemanticK, "k", "k", 5, "number of chunks to return")
	semanticCmd.AddCommand(semanticIndexCmd, semanticSearchCmd, semanticStatsCmd)
	rootCmd.AddCommand(semanticCmd)
}

func openSemantic(cfg config.Config) (*semantic.Index, *store.SQLiteStore, error) {
	if flagOllama != "" {
		cfg.Semantic.OllamaURL = flagOllama
	}
	if flagModel != "" {
		cfg.Semantic.Model = flagModel
	}
	st, err := store.Open(cfg.Path(cfg.Semantic.DBPath))
	if err != nil {
		return nil, nil, fmt.Errorf("semantic: open store: %w", err)
	}
	emb := embedder.NewOllamaEmbedder(cfg.Semantic.OllamaURL, cfg.Semantic.Model)
	idx := semantic.New(cfg.Root, st, emb, semantic.Options{
		Extensions:   cfg.Extensions,
		Ignore:       cfg.Ignore,
		ChunkSize:    cfg.Semantic.ChunkSize,
		MaxFileBytes: cfg.Semantic.MaxFileBytes,
		Logger:       slog.Default(),
	})
	return idx, st, nil
}

func formatSemantic(query string, results []semantic.Result) string {
	if len(results) == 0 {
		return fmt.Sprintf("No semantic results for '%s'", query)
	}
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("🧠 Semantic results for '%s':", query)))
	b.WriteString("\n\n")
	for _, r := range results {
		fmt.Fprintf(&b, "  [%.3f] %s#%d\n", r.Similarity, r.File, r.ChunkID)
		text := strings.Join(strings.Fields(r.Text), " ")
		fmt.Fprintf(&b, "    %s\n\n", truncateRunes(text, 200))
	}
	return strings.TrimRight(b.String(), "\n")
}
