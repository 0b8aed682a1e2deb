// Package snapshot reads article collections from a YAML file and follows
// that file for changes.
package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jonboulle/clockwork"
	"github.com/muhammad-zulfikar/irnews/internal/cache"
	"gopkg.in/yaml.v3"
)

// DebounceDelay batches the burst of events an editor save produces.
const DebounceDelay = 150 * time.Millisecond

type document struct {
	Articles []cache.Article `yaml:"articles"`
}

// Parse decodes either a bare YAML list of articles or a mapping with an
// "articles" key.
func Parse(data []byte) ([]cache.Article, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("parsing snapshot: %w", err)
	}
	if len(node.Content) == 0 {
		return nil, nil
	}
	root := node.Content[0]

	var articles []cache.Article
	switch root.Kind {
	case yaml.SequenceNode:
		if err := root.Decode(&articles); err != nil {
			return nil, fmt.Errorf("decoding snapshot list: %w", err)
		}
	case yaml.MappingNode:
		var doc document
		if err := root.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decoding snapshot: %w", err)
		}
		articles = doc.Articles
	default:
		return nil, fmt.Errorf("snapshot must be a list or an articles mapping, line %d", root.Line)
	}

	for i, a := range articles {
		if a.Slug == "" {
			return nil, fmt.Errorf("snapshot article %d: slug is required", i)
		}
	}
	return articles, nil
}

// Load reads and parses the snapshot at path.
func Load(path string) ([]cache.Article, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	return Parse(data)
}

// Watch emits the freshly parsed snapshot every time path changes. The
// parent directory is watched so editors that replace the file by rename
// are still followed. Parse failures are logged and the previous snapshot
// stays in effect. The channel closes when ctx is done.
func Watch(ctx context.Context, path string, logger *slog.Logger) (<-chan []cache.Article, error) {
	return watch(ctx, path, logger, clockwork.NewRealClock())
}

func watch(ctx context.Context, path string, logger *slog.Logger, clock clockwork.Clock) (<-chan []cache.Article, error) {
	if logger == nil {
		logger = slog.Default()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving snapshot path: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}

	out := make(chan []cache.Article, 1)
	go func() {
		defer close(out)
		defer w.Close()

		var debounce clockwork.Timer
		var fire <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				if debounce != nil {
					debounce.Stop()
				}
				return

			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != abs {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				if debounce == nil {
					debounce = clock.NewTimer(DebounceDelay)
				} else {
					debounce.Reset(DebounceDelay)
				}
				fire = debounce.Chan()

			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Warn("snapshot watcher error", "error", err)

			case <-fire:
				fire = nil
				articles, err := Load(abs)
				if err != nil {
					logger.Warn("snapshot reload failed", "path", abs, "error", err)
					continue
				}
				logger.Debug("snapshot reloaded", "path", abs, "articles", len(articles))
				select {
				case out <- articles:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
