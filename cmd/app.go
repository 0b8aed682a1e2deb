package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/muhammad-zulfikar/irnews/internal/cache"
	"github.com/muhammad-zulfikar/irnews/internal/config"
	"github.com/muhammad-zulfikar/irnews/internal/desk"
	"github.com/muhammad-zulfikar/irnews/internal/feed"
	"github.com/muhammad-zulfikar/irnews/internal/logging"
	"github.com/muhammad-zulfikar/irnews/internal/rotation"
	"github.com/muhammad-zulfikar/irnews/internal/selection"
	"github.com/muhammad-zulfikar/irnews/internal/tui"
	"github.com/spf13/cobra"
)

func runApp(cmd *cobra.Command, browse bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// The alt screen owns the terminal, so the TUI logs to a file.
	logFile, err := logging.OpenLogFile(logging.LogPath())
	if err != nil {
		return err
	}
	defer logFile.Close()
	logger := logging.NewLogger(logFile, logLevel(cfg), false)

	db, err := cache.Open(cachePath())
	if err != nil {
		return fmt.Errorf("opening cache: %w", err)
	}
	defer db.Close()

	if flagRefresh || db.NeedsRefresh(cfg.RefreshDuration()) {
		fmt.Fprintln(cmd.ErrOrStderr(), "Fetching feeds...")
		if err := refresh(cmd.Context(), cfg, db, cliLogger(cmd, cfg)); err != nil {
			return err
		}
	}

	var since time.Time
	if flagSince != "" {
		d, err := config.ParseDays(flagSince)
		if err != nil {
			return fmt.Errorf("invalid --since value: %w", err)
		}
		since = time.Now().Add(-d)
	}

	snapshotPath := flagSnapshot
	if snapshotPath == "" {
		snapshotPath = cfg.Snapshot
	}

	d, err := newDesk(cfg, logger)
	if err != nil {
		return err
	}

	logger.Info("starting tui", "browse", browse, "snapshot", snapshotPath, "version", version)
	return tui.Run(cmd.Context(), tui.RunOpts{
		Cfg:          cfg,
		DB:           db,
		Desk:         d,
		Logger:       logger,
		Since:        since,
		BrowseMode:   browse,
		SnapshotPath: snapshotPath,
	})
}

func newDesk(cfg *config.Config, logger *slog.Logger) (*desk.Desk, error) {
	sel, err := selection.New(cfg.GetTags(), cfg.GetSelectSize())
	if err != nil {
		return nil, fmt.Errorf("building selector: %w", err)
	}
	d, err := desk.New(sel, rotation.Options{
		Interval: cfg.RotationDuration(),
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("building desk: %w", err)
	}
	return d, nil
}

// refresh fetches every enabled source, caches the results and prunes
// articles past retention. Per-source failures are warnings.
func refresh(ctx context.Context, cfg *config.Config, db *cache.Cache, logger *slog.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	result := feed.FetchAll(ctx, cfg.EnabledSources(), logger)
	if err := db.UpsertArticles(result.Articles); err != nil {
		return fmt.Errorf("caching articles: %w", err)
	}
	if err := db.SetLastRefresh(); err != nil {
		logger.Warn("recording refresh time", "error", err)
	}
	if n, err := db.Prune(cfg.RetentionDuration()); err != nil {
		logger.Warn("auto-prune failed", "error", err)
	} else if n > 0 {
		logger.Info("pruned old articles", "deleted", n)
	}
	return nil
}
