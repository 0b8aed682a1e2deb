package cache

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testDB(t *testing.T) *Cache {
	t.Helper()
	dir := t.TempDir()
	db, err := Open(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleArticles() []Article {
	now := time.Now()
	return []Article{
		{Slug: "aaa", Tag: "Economy", Source: "Reuters", Title: "Post A", Link: "https://a.com", Description: "Desc A", Date: now.Add(-1 * time.Hour).Format(time.RFC3339), FetchedAt: now},
		{Slug: "bbb", Tag: "Climate", Source: "AP", Title: "Post B", Link: "https://b.com", Description: "Desc B", Date: now.Add(-2 * time.Hour).Format(time.RFC3339), FetchedAt: now},
		{Slug: "ccc", Tag: "Economy", Source: "Reuters", Title: "Post C", Link: "https://c.com", Description: "Desc C about search", Date: now.Add(-48 * time.Hour).Format(time.RFC3339), FetchedAt: now},
	}
}

func TestUpsertAndGet(t *testing.T) {
	db := testDB(t)
	articles := sampleArticles()

	if err := db.UpsertArticles(articles); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := db.GetArticles(QueryOpts{})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 articles, got %d", len(got))
	}
	if got[0].Slug != "aaa" {
		t.Errorf("expected newest first, got %s", got[0].Slug)
	}
	if got[0].Date != articles[0].Date {
		t.Errorf("date should round-trip unchanged, got %q want %q", got[0].Date, articles[0].Date)
	}
}

func TestUpsertUpdatesExisting(t *testing.T) {
	db := testDB(t)
	articles := sampleArticles()

	if err := db.UpsertArticles(articles); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	articles[0].Title = "Updated Post A"
	articles[0].Tag = "Diplomacy"
	if err := db.UpsertArticles(articles[:1]); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, err := db.GetArticles(QueryOpts{})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 articles after upsert, got %d", len(got))
	}
	if got[0].Title != "Updated Post A" {
		t.Errorf("expected updated title, got %q", got[0].Title)
	}
	if got[0].Tag != "Diplomacy" {
		t.Errorf("expected updated tag, got %q", got[0].Tag)
	}
}

func TestUpsertRequiresSlug(t *testing.T) {
	db := testDB(t)
	err := db.UpsertArticles([]Article{{Title: "No slug"}})
	if err == nil {
		t.Error("expected error for missing slug")
	}
}

func TestMalformedDateSortsLast(t *testing.T) {
	db := testDB(t)
	articles := append(sampleArticles(), Article{Slug: "bad", Tag: "Economy", Title: "Bad date", Date: "someday"})
	if err := db.UpsertArticles(articles); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := db.GetArticles(QueryOpts{})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("expected 4 articles, got %d", len(got))
	}
	if got[3].Slug != "bad" {
		t.Errorf("expected malformed date last, got %s", got[3].Slug)
	}
}

func TestQuerySince(t *testing.T) {
	db := testDB(t)
	if err := db.UpsertArticles(sampleArticles()); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := db.GetArticles(QueryOpts{Since: time.Now().Add(-3 * time.Hour)})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 articles within 3h, got %d", len(got))
	}
}

func TestQueryTags(t *testing.T) {
	db := testDB(t)
	if err := db.UpsertArticles(sampleArticles()); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := db.GetArticles(QueryOpts{Tags: []string{"Economy"}})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 Economy articles, got %d", len(got))
	}
	for _, a := range got {
		if a.Tag != "Economy" {
			t.Errorf("expected tag Economy, got %s", a.Tag)
		}
	}
}

func TestQuerySources(t *testing.T) {
	db := testDB(t)
	if err := db.UpsertArticles(sampleArticles()); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := db.GetArticles(QueryOpts{Sources: []string{"AP"}})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected 1 AP article, got %d", len(got))
	}
}

func TestQuerySearch(t *testing.T) {
	db := testDB(t)
	if err := db.UpsertArticles(sampleArticles()); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := db.GetArticles(QueryOpts{Search: "search"})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected 1 article matching 'search', got %d", len(got))
	}
	if len(got) > 0 && got[0].Slug != "ccc" {
		t.Errorf("expected article ccc, got %s", got[0].Slug)
	}
}

func TestQueryLimit(t *testing.T) {
	db := testDB(t)
	if err := db.UpsertArticles(sampleArticles()); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := db.GetArticles(QueryOpts{Limit: 1})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected 1 article with limit, got %d", len(got))
	}
}

func TestGetArticleBySlug(t *testing.T) {
	db := testDB(t)
	if err := db.UpsertArticles(sampleArticles()); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	a, err := db.GetArticleBySlug("bbb")
	if err != nil {
		t.Fatalf("GetArticleBySlug: %v", err)
	}
	if a.Title != "Post B" {
		t.Errorf("expected Post B, got %q", a.Title)
	}

	_, err = db.GetArticleBySlug("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestNeedsRefresh(t *testing.T) {
	db := testDB(t)

	if !db.NeedsRefresh(1 * time.Hour) {
		t.Error("expected NeedsRefresh=true when no last_refresh set")
	}

	if err := db.SetLastRefresh(); err != nil {
		t.Fatalf("SetLastRefresh: %v", err)
	}

	if db.NeedsRefresh(1 * time.Hour) {
		t.Error("expected NeedsRefresh=false right after SetLastRefresh")
	}

	if !db.NeedsRefresh(0) {
		t.Error("expected NeedsRefresh=true with zero interval")
	}
}

func TestEmptyDB(t *testing.T) {
	db := testDB(t)

	got, err := db.GetArticles(QueryOpts{})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected 0 articles in empty db, got %d", len(got))
	}
}

func TestPruneDeletesOldArticles(t *testing.T) {
	db := testDB(t)
	if err := db.UpsertArticles(sampleArticles()); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	// Post C is 48h old.
	deleted, err := db.Prune(24 * time.Hour)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 pruned, got %d", deleted)
	}

	got, err := db.GetArticles(QueryOpts{})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 remaining articles, got %d", len(got))
	}
}

func TestPruneNothingToDelete(t *testing.T) {
	db := testDB(t)
	if err := db.UpsertArticles(sampleArticles()); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	deleted, err := db.Prune(365 * 24 * time.Hour)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if deleted != 0 {
		t.Errorf("expected 0 pruned, got %d", deleted)
	}
}

func TestStats(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	if err := db.UpsertArticles(sampleArticles()); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	count, size, err := db.Stats(dbPath)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if count != 3 {
		t.Errorf("expected count 3, got %d", count)
	}
	if size == 0 {
		t.Error("expected non-zero db size")
	}
}

func TestOpenCreatesDir(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "sub", "deep", "test.db")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("opening db in nested dir: %v", err)
	}
	db.Close()

	if _, err := os.Stat(filepath.Dir(dbPath)); os.IsNotExist(err) {
		t.Error("expected directory to be created")
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		input string
		ok    bool
	}{
		{"2025-03-01", true},
		{"2025-03-01T10:00:00Z", true},
		{"2025-03-01T10:00:00.123+02:00", true},
		{"2025-03-01 10:00:00", true},
		{"Mon, 02 Jan 2006 15:04:05 -0700", true},
		{"Mar 1, 2025", true},
		{"", false},
		{"not a date", false},
		{"2025-13-40", false},
	}
	for _, tt := range tests {
		_, ok := ParseDate(tt.input)
		if ok != tt.ok {
			t.Errorf("ParseDate(%q) ok = %v, want %v", tt.input, ok, tt.ok)
		}
	}
}

func TestCoverFallbacks(t *testing.T) {
	a := Article{}
	if a.CoverOrDefault() != defaultCoverImg {
		t.Errorf("expected default cover, got %q", a.CoverOrDefault())
	}
	if a.CoverAlt() != defaultCoverImgAlt {
		t.Errorf("expected default alt, got %q", a.CoverAlt())
	}
	a.CoverImg = "/img/x.png"
	a.CoverImgAlt = "x"
	if a.CoverOrDefault() != "/img/x.png" || a.CoverAlt() != "x" {
		t.Errorf("expected explicit cover values, got %q %q", a.CoverOrDefault(), a.CoverAlt())
	}
}
