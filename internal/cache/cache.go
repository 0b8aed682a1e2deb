package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no article matches the requested slug.
var ErrNotFound = errors.New("article not found")

type Cache struct {
	readDB  *sql.DB
	writeDB *sql.DB
}

func Open(dbPath string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	writeDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening write db: %w", err)
	}
	writeDB.SetMaxOpenConns(1)

	c := &Cache{writeDB: writeDB}
	if err := c.init(); err != nil {
		c.Close()
		return nil, err
	}

	// The read handle is opened after the schema exists so mode=ro never
	// races table creation on a fresh file.
	readDB, err := sql.Open("sqlite", dbPath+"?mode=ro")
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("opening read db: %w", err)
	}
	c.readDB = readDB
	return c, nil
}

func (c *Cache) init() error {
	_, err := c.writeDB.Exec(`
		CREATE TABLE IF NOT EXISTS articles (
			slug          TEXT PRIMARY KEY,
			tag           TEXT NOT NULL DEFAULT '',
			date          TEXT NOT NULL DEFAULT '',
			published     DATETIME,
			title         TEXT NOT NULL,
			description   TEXT NOT NULL DEFAULT '',
			cover_img     TEXT NOT NULL DEFAULT '',
			cover_img_alt TEXT NOT NULL DEFAULT '',
			region        TEXT NOT NULL DEFAULT '',
			location      TEXT NOT NULL DEFAULT '',
			link          TEXT NOT NULL DEFAULT '',
			source        TEXT NOT NULL DEFAULT '',
			fetched_at    DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_articles_published ON articles(published DESC);
		CREATE INDEX IF NOT EXISTS idx_articles_tag ON articles(tag);

		CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}

func (c *Cache) Close() error {
	var errs []error
	if c.readDB != nil {
		errs = append(errs, c.readDB.Close())
	}
	if c.writeDB != nil {
		errs = append(errs, c.writeDB.Close())
	}
	return errors.Join(errs...)
}

func (c *Cache) UpsertArticles(articles []Article) error {
	tx, err := c.writeDB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO articles (slug, tag, date, published, title, description, cover_img, cover_img_alt, region, location, link, source, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET
			tag = excluded.tag,
			date = excluded.date,
			published = excluded.published,
			title = excluded.title,
			description = excluded.description,
			cover_img = excluded.cover_img,
			cover_img_alt = excluded.cover_img_alt,
			region = excluded.region,
			location = excluded.location,
			fetched_at = excluded.fetched_at
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, a := range articles {
		if a.Slug == "" {
			return fmt.Errorf("upserting article %q: slug is required", a.Title)
		}
		var published any
		if t, ok := a.Published(); ok {
			published = t.UTC()
		}
		fetched := a.FetchedAt
		if fetched.IsZero() {
			fetched = time.Now()
		}
		_, err := stmt.Exec(a.Slug, a.Tag, a.Date, published, a.Title, a.Description,
			a.CoverImg, a.CoverImgAlt, a.Region, a.Location, a.Link, a.Source, fetched)
		if err != nil {
			return fmt.Errorf("upserting article %s: %w", a.Slug, err)
		}
	}

	return tx.Commit()
}

const articleColumns = "slug, tag, date, title, description, cover_img, cover_img_alt, region, location, link, source, fetched_at"

func scanArticle(row interface{ Scan(...any) error }) (Article, error) {
	var a Article
	err := row.Scan(&a.Slug, &a.Tag, &a.Date, &a.Title, &a.Description, &a.CoverImg,
		&a.CoverImgAlt, &a.Region, &a.Location, &a.Link, &a.Source, &a.FetchedAt)
	return a, err
}

func (c *Cache) GetArticles(opts QueryOpts) ([]Article, error) {
	var (
		where []string
		args  []interface{}
	)

	if !opts.Since.IsZero() {
		where = append(where, "published >= ?")
		args = append(args, opts.Since.UTC())
	}

	if len(opts.Sources) > 0 {
		where = append(where, "source IN ("+placeholders(len(opts.Sources))+")") //nolint:gosec
		for _, s := range opts.Sources {
			args = append(args, s)
		}
	}

	if len(opts.Tags) > 0 {
		where = append(where, "tag IN ("+placeholders(len(opts.Tags))+")") //nolint:gosec
		for _, t := range opts.Tags {
			args = append(args, t)
		}
	}

	if opts.Search != "" {
		where = append(where, "(title LIKE ? OR description LIKE ?)")
		term := "%" + opts.Search + "%"
		args = append(args, term, term)
	}

	query := "SELECT " + articleColumns + " FROM articles"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	// Unparseable dates have a NULL published and sort last.
	query += " ORDER BY published IS NULL, published DESC"

	limit := opts.Limit
	if limit <= 0 {
		limit = 500
	}
	query += fmt.Sprintf(" LIMIT %d", limit)

	rows, err := c.readDB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying articles: %w", err)
	}
	defer rows.Close()

	var articles []Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning article: %w", err)
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// GetArticleBySlug returns the article with the given slug or ErrNotFound.
func (c *Cache) GetArticleBySlug(slug string) (Article, error) {
	row := c.readDB.QueryRow("SELECT "+articleColumns+" FROM articles WHERE slug = ?", slug)
	a, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Article{}, fmt.Errorf("%w: %s", ErrNotFound, slug)
	}
	if err != nil {
		return Article{}, fmt.Errorf("reading article %s: %w", slug, err)
	}
	return a, nil
}

// Prune deletes articles older than retention. Articles without a parseable
// date age out by fetch time instead.
func (c *Cache) Prune(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).UTC()
	res, err := c.writeDB.Exec(`
		DELETE FROM articles
		WHERE (published IS NOT NULL AND published < ?)
		   OR (published IS NULL AND fetched_at < ?)
	`, cutoff, cutoff)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		if _, err := c.writeDB.Exec("VACUUM"); err != nil {
			return n, fmt.Errorf("vacuum: %w", err)
		}
	}
	return n, nil
}

// Stats returns the article count and the on-disk size of dbPath.
func (c *Cache) Stats(dbPath string) (int, int64, error) {
	var count int
	if err := c.readDB.QueryRow("SELECT COUNT(*) FROM articles").Scan(&count); err != nil {
		return 0, 0, err
	}
	info, err := os.Stat(dbPath)
	if err != nil {
		return count, 0, err
	}
	return count, info.Size(), nil
}

func (c *Cache) NeedsRefresh(interval time.Duration) bool {
	value, err := c.getMeta("last_refresh")
	if err != nil {
		return true
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return true
	}
	return time.Since(t) > interval
}

func (c *Cache) SetLastRefresh() error {
	return c.setMeta("last_refresh", time.Now().Format(time.RFC3339))
}

func (c *Cache) getMeta(key string) (string, error) {
	var value string
	err := c.readDB.QueryRow("SELECT value FROM meta WHERE key = ?", key).Scan(&value)
	return value, err
}

func (c *Cache) setMeta(key, value string) error {
	_, err := c.writeDB.Exec(`
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
