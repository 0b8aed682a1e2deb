// Package selection orders articles by recency and picks the most recent
// few for each canonical tag.
package selection

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/muhammad-zulfikar/irnews/internal/cache"
)

// DefaultSize is the number of articles kept per tag.
const DefaultSize = 3

// Group is the recency-ordered selection for one tag. It never owns the
// articles; it is rebuilt from the input on every Select.
type Group struct {
	Tag      string
	Articles []cache.Article
}

// Len returns the number of selected articles.
func (g Group) Len() int { return len(g.Articles) }

// Equal reports whether two groups hold the same tag and the same article
// content in the same order.
func (g Group) Equal(o Group) bool {
	if g.Tag != o.Tag || len(g.Articles) != len(o.Articles) {
		return false
	}
	for i := range g.Articles {
		if !g.Articles[i].SameContent(o.Articles[i]) {
			return false
		}
	}
	return true
}

// SortByRecency returns a new slice ordered by Date, newest first. Equal
// dates keep their input order. Dates that do not parse sort last.
func SortByRecency(articles []cache.Article) []cache.Article {
	type keyed struct {
		article cache.Article
		at      time.Time
		ok      bool
	}
	ks := make([]keyed, len(articles))
	for i, a := range articles {
		t, ok := a.Published()
		ks[i] = keyed{article: a, at: t, ok: ok}
	}

	sort.SliceStable(ks, func(i, j int) bool {
		if ks[i].ok != ks[j].ok {
			return ks[i].ok
		}
		return ks[i].at.After(ks[j].at)
	})

	out := make([]cache.Article, len(ks))
	for i, k := range ks {
		out[i] = k.article
	}
	return out
}

// Selector partitions articles into canonical tag groups.
type Selector struct {
	tags []string
	size int
}

// New validates the tag set and per-group size.
func New(tags []string, size int) (*Selector, error) {
	if size <= 0 {
		return nil, fmt.Errorf("selection size must be positive, got %d", size)
	}
	if len(tags) == 0 {
		return nil, fmt.Errorf("at least one canonical tag is required")
	}
	seen := make(map[string]bool, len(tags))
	for i, t := range tags {
		if strings.TrimSpace(t) == "" {
			return nil, fmt.Errorf("tag %d is blank", i)
		}
		if seen[t] {
			return nil, fmt.Errorf("duplicate tag %q", t)
		}
		seen[t] = true
	}
	return &Selector{tags: append([]string(nil), tags...), size: size}, nil
}

func (s *Selector) Tags() []string {
	return append([]string(nil), s.tags...)
}

func (s *Selector) Size() int { return s.size }

// Select returns one group per canonical tag, in tag order. Articles whose
// tag is not canonical are dropped. Groups are never padded.
func (s *Selector) Select(articles []cache.Article) []Group {
	groups := make([]Group, len(s.tags))
	index := make(map[string]int, len(s.tags))
	for i, t := range s.tags {
		groups[i] = Group{Tag: t}
		index[t] = i
	}

	for _, a := range SortByRecency(articles) {
		i, ok := index[a.Tag]
		if !ok || len(groups[i].Articles) >= s.size {
			continue
		}
		groups[i].Articles = append(groups[i].Articles, a)
	}
	return groups
}

// Sizes maps each tag to its group length, omitting nothing.
func Sizes(groups []Group) map[string]int {
	out := make(map[string]int, len(groups))
	for _, g := range groups {
		out[g.Tag] = len(g.Articles)
	}
	return out
}

// EqualGroups compares two selections element by element.
func EqualGroups(a, b []Group) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
