package feed

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/muhammad-zulfikar/irnews/internal/cache"
	"github.com/muhammad-zulfikar/irnews/internal/classify"
	"github.com/muhammad-zulfikar/irnews/internal/config"
	"golang.org/x/sync/errgroup"
)

// maxAge drops feed items too old to ever reach the desk.
const maxAge = 30 * 24 * time.Hour

type Fetcher interface {
	Fetch(ctx context.Context, source config.Source) ([]cache.Article, error)
}

type RSSFetcher struct {
	parser *gofeed.Parser
	now    func() time.Time
}

func NewRSSFetcher() *RSSFetcher {
	return &RSSFetcher{parser: gofeed.NewParser(), now: time.Now}
}

func (f *RSSFetcher) Fetch(ctx context.Context, source config.Source) ([]cache.Article, error) {
	feed, err := f.parser.ParseURLWithContext(source.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", source.Name, err)
	}
	return toArticles(feed, source, f.now()), nil
}

func toArticles(feed *gofeed.Feed, source config.Source, now time.Time) []cache.Article {
	cutoff := now.Add(-maxAge)
	articles := make([]cache.Article, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item.Link == "" {
			continue
		}
		pub := now
		if item.PublishedParsed != nil {
			pub = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			pub = *item.UpdatedParsed
		}
		if pub.Before(cutoff) {
			continue
		}

		desc := item.Description
		if desc == "" {
			desc = item.Content
		}
		desc = truncate(stripHTML(desc), 300)

		tag := source.Tag
		if tag == "" {
			tag = string(classify.Classify(item.Title, desc))
		}

		cover, alt := coverImage(item)
		articles = append(articles, cache.Article{
			Slug:        articleID(item.Link),
			Tag:         tag,
			Date:        pub.UTC().Format(time.RFC3339),
			Title:       strings.TrimSpace(item.Title),
			Description: desc,
			CoverImg:    cover,
			CoverImgAlt: alt,
			Region:      source.Region,
			Location:    location(item),
			Link:        item.Link,
			Source:      source.Name,
			FetchedAt:   now,
		})
	}
	return articles
}

// coverImage prefers the item image and falls back to the first image
// enclosure.
func coverImage(item *gofeed.Item) (string, string) {
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL, item.Image.Title
	}
	for _, enc := range item.Enclosures {
		if enc != nil && strings.HasPrefix(enc.Type, "image/") {
			return enc.URL, ""
		}
	}
	return "", ""
}

// location uses a dateline category such as "location:Geneva" when the
// feed provides one.
func location(item *gofeed.Item) string {
	for _, c := range item.Categories {
		if rest, ok := strings.CutPrefix(c, "location:"); ok {
			return strings.TrimSpace(rest)
		}
	}
	return ""
}

func articleID(link string) string {
	h := sha256.Sum256([]byte(link))
	return fmt.Sprintf("%x", h[:16])
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}

func stripHTML(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

type FetchResult struct {
	Articles []cache.Article
	Errors   []error
}

// maxConcurrentFetches bounds in-flight feed requests.
const maxConcurrentFetches = 8

// FetchAll fetches every source concurrently. One failing source never
// hides the articles of the others.
func FetchAll(ctx context.Context, sources []config.Source, logger *slog.Logger) FetchResult {
	return fetchAll(ctx, NewRSSFetcher(), sources, logger)
}

func fetchAll(ctx context.Context, fetcher Fetcher, sources []config.Source, logger *slog.Logger) FetchResult {
	if logger == nil {
		logger = slog.Default()
	}
	var (
		mu     sync.Mutex
		result FetchResult
		g      errgroup.Group
	)
	g.SetLimit(maxConcurrentFetches)

	for _, src := range sources {
		g.Go(func() error {
			start := time.Now()
			articles, err := fetcher.Fetch(ctx, src)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.Warn("feed fetch failed", "source", src.Name, "error", err)
				result.Errors = append(result.Errors, err)
				return nil
			}
			logger.Debug("feed fetched", "source", src.Name, "articles", len(articles), "took", time.Since(start))
			result.Articles = append(result.Articles, articles...)
			return nil
		})
	}

	_ = g.Wait()
	return result
}
