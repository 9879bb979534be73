package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"agentmem/internal/config"
	"agentmem/internal/index"
	"agentmem/internal/watch"

	"github.com/spf13/cobra"
)

var (
	flagIndexOut   string
	flagIndexWatch bool
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the keyword index and save it as a snapshot",
	Long: "Build the keyword index and save it. A path ending in .json is written as JSON,\n" +
		"anything else as a SQLite database. With --watch the index is rebuilt after changes.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		out := flagIndexOut
		if out == "" {
			out = cfg.Snapshot
		}
		out = cfg.Path(out)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		if err := buildAndSave(ctx, cmd, cfg, out); err != nil {
			return err
		}
		if !flagIndexWatch {
			return nil
		}

		w, err := watch.New(cfg.Root, watch.Options{
			Extensions: cfg.Extensions,
			Ignore:     cfg.Ignore,
			Exclude:    []string{out},
			Logger:     slog.Default(),
		}, func(ctx context.Context) error {
			return buildAndSave(ctx, cmd, cfg, out)
		})
		if err != nil {
			return fmt.Errorf("index: start watcher: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), dimStyle.Render("Watching "+cfg.Root+" for changes (Ctrl-C to stop)"))
		return w.Run(ctx)
	},
}

func init() {
	indexCmd.Flags().StringVarP(&flagIndexOut, "out", "o", "", "snapshot path (default from config: .agentmem/index.db)")
	indexCmd.Flags().BoolVarP(&flagIndexWatch, "watch", "w", false, "rebuild the snapshot whenever memory files change")
	rootCmd.AddCommand(indexCmd)
}

func buildAndSave(ctx context.Context, cmd *cobra.Command, cfg config.Config, out string) error {
	start := time.Now()
	opts := indexOptions(cfg)
	opts.SkipPaths = append(opts.SkipPaths, out)
	idx, err := index.Build(ctx, cfg.Root, opts)
	if err != nil {
		return err
	}
	if err := idx.Save(ctx, out); err != nil {
		return err
	}
	st := idx.Stats()
	rel, err := filepath.Rel(cfg.Root, out)
	if err != nil {
		rel = out
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %d files, %d tokens → %s (%s)\n",
		successStyle.Render("✓ Indexed"), st.FilesIndexed, st.UniqueTokens, rel, time.Since(start).Round(time.Millisecond))
	return nil
}
