package snapshot

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const listDoc = `- slug: a
  tag: Economy
  date: "2025-01-01"
  title: Rates hold
- slug: b
  tag: Climate
  date: "2025-02-01"
  region: Europe
`

const mappingDoc = `articles:
  - slug: c
    tag: Diplomacy
    date: "2025-03-01"
    cover_img: /images/c.png
`

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParse(t *testing.T) {
	got, err := Parse([]byte(listDoc))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Slug)
	assert.Equal(t, "Rates hold", got[0].Title)
	assert.Equal(t, "Europe", got[1].Region)

	got, err = Parse([]byte(mappingDoc))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "/images/c.png", got[0].CoverImg)
}

func TestParseEmpty(t *testing.T) {
	got, err := Parse([]byte("  \n"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestParseRejects(t *testing.T) {
	tests := map[string]string{
		"scalar":       "just text",
		"missing slug": "- tag: Economy\n  date: \"2025-01-01\"\n",
		"bad yaml":     "- slug: [unterminated\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

// replace swaps path's contents in one rename, as editors do on save.
func replace(t *testing.T, path, doc string) {
	t.Helper()
	tmp := path + ".tmp"
	require.NoError(t, os.WriteFile(tmp, []byte(doc), 0o644))
	require.NoError(t, os.Rename(tmp, path))
}

// settle waits for the debounce timer to be armed, then lets it fire.
func settle(t *testing.T, clock *clockwork.FakeClock) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1), "debounce timer never armed")
	clock.Advance(DebounceDelay)
}

func TestWatchEmitsOnReplace(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := filepath.Join(t.TempDir(), "articles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(listDoc), 0o644))

	clock := clockwork.NewFakeClock()
	ctx, cancel := context.WithCancel(context.Background())
	ch, err := watch(ctx, path, quietLogger(), clock)
	require.NoError(t, err)

	replace(t, path, mappingDoc)
	settle(t, clock)

	select {
	case got := <-ch:
		require.Len(t, got, 1)
		assert.Equal(t, "c", got[0].Slug)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for snapshot reload")
	}

	cancel()
	for range ch {
	}
}

func TestWatchDebouncesUntilQuiet(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := filepath.Join(t.TempDir(), "articles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(listDoc), 0o644))

	clock := clockwork.NewFakeClock()
	ctx, cancel := context.WithCancel(context.Background())
	ch, err := watch(ctx, path, quietLogger(), clock)
	require.NoError(t, err)

	replace(t, path, mappingDoc)
	ready, stop := context.WithTimeout(ctx, 5*time.Second)
	require.NoError(t, clock.BlockUntilContext(ready, 1))
	stop()
	clock.Advance(DebounceDelay / 2)

	select {
	case <-ch:
		t.Fatal("reload before the debounce delay elapsed")
	default:
	}

	clock.Advance(DebounceDelay / 2)
	select {
	case got := <-ch:
		require.Len(t, got, 1)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for snapshot reload")
	}

	cancel()
	for range ch {
	}
}

func TestWatchIgnoresOtherFilesAndBadWrites(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "articles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(listDoc), 0o644))

	clock := clockwork.NewFakeClock()
	ctx, cancel := context.WithCancel(context.Background())
	ch, err := watch(ctx, path, quietLogger(), clock)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte(mappingDoc), 0o644))
	replace(t, path, "- slug: [broken\n")
	settle(t, clock)

	assert.Never(t, func() bool {
		select {
		case <-ch:
			return true
		default:
			return false
		}
	}, 200*time.Millisecond, 20*time.Millisecond)

	cancel()
	for range ch {
	}
}
