package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"agentmem/internal/config"
	"agentmem/internal/index"

	"github.com/spf13/cobra"
)

var (
	flagDir      string
	flagConfig   string
	flagLogLevel string
)

var rootCmd = &cobra.Command{
	Use:           "agentmem",
	Short:         "Search, measure and curate an agent's markdown memory",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging(flagLogLevel)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI(cmd, args)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDir, "dir", "", "memory directory (default $AGENT_MEMORY_DIR, ~/.openclaw/workspace, then cwd)")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default <dir>/"+config.DefaultFileName+")")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "warn", "log level: debug, info, warn or error")
}

func setupLogging(level string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", level, err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: lvl,
	}))
	slog.SetDefault(logger)
	return nil
}

// loadConfig resolves the memory directory and reads the config file for it.
func loadConfig() (config.Config, error) {
	root := config.ResolveDir(flagDir)
	path, optional := flagConfig, false
	if path == "" {
		path, optional = filepath.Join(root, config.DefaultFileName), true
	}
	cfg, err := config.Load(path, optional)
	if err != nil {
		return cfg, err
	}
	cfg.Root = root
	slog.Debug("config loaded", "root", root, "config", path)
	return cfg, nil
}

func indexOptions(cfg config.Config) index.Options {
	return index.Options{
		Extensions: cfg.Extensions,
		Ignore:     cfg.Ignore,
		SkipPaths:  []string{cfg.Path(cfg.Snapshot)},
		Logger:     slog.Default(),
	}
}

// now is replaced in tests.
var now = time.Now
