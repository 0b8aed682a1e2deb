package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/muhammad-zulfikar/irnews/internal/config"
	"github.com/muhammad-zulfikar/irnews/internal/logging"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	flagSince    string
	flagRefresh  bool
	flagConfig   string
	flagCache    string
	flagSnapshot string
	flagLogLevel string
)

var rootCmd = &cobra.Command{
	Use:   "irnews",
	Short: "International relations news desk for the terminal",
	Long: `irnews collects international relations reporting from RSS/Atom feeds and shows
the three most recent stories for each desk (Diplomacy, Conflicts, Economy, Climate)
as rotating card stacks.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApp(cmd, false)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&flagCache, "cache", "", "path to the article cache database")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "override log level (debug, info, warn, error)")

	for _, c := range []*cobra.Command{rootCmd, browseCmd} {
		c.Flags().StringVar(&flagSince, "since", "", "only show articles from the last duration (e.g., 7d, 24h)")
		c.Flags().BoolVar(&flagRefresh, "refresh", false, "force refresh feeds before launching")
	}
	rootCmd.Flags().StringVar(&flagSnapshot, "snapshot", "", "feed the desk from a watched YAML article file")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(browseCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(pruneCmd)
	rootCmd.AddCommand(statsCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "irnews %s (commit: %s, built: %s)\n", version, commit, date)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func cachePath() string {
	if flagCache != "" {
		return flagCache
	}
	return config.CachePath()
}

func logLevel(cfg *config.Config) slog.Level {
	if flagLogLevel != "" {
		return logging.ParseLevel(flagLogLevel)
	}
	return logging.ParseLevel(cfg.LogLevel)
}

// cliLogger writes to stderr, colored only on a terminal.
func cliLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	w := cmd.ErrOrStderr()
	color := false
	if f, ok := w.(*os.File); ok {
		color = isatty.IsTerminal(f.Fd())
	}
	return logging.NewLogger(w, logLevel(cfg), color)
}
