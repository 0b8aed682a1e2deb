package selection

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/muhammad-zulfikar/irnews/internal/cache"
)

var canonical = []string{"Diplomacy", "Conflicts", "Economy", "Climate"}

func art(slug, tag, date string) cache.Article {
	return cache.Article{Slug: slug, Tag: tag, Date: date, Title: "Title " + slug}
}

func slugs(articles []cache.Article) []string {
	out := make([]string, len(articles))
	for i, a := range articles {
		out[i] = a.Slug
	}
	return out
}

func TestSortByRecencyDescending(t *testing.T) {
	in := []cache.Article{
		art("jan", "Economy", "2025-01-01"),
		art("mar", "Economy", "2025-03-01"),
		art("feb", "Economy", "2025-02-01"),
		art("apr", "Economy", "2025-04-01"),
	}
	got := slugs(SortByRecency(in))
	want := []string{"apr", "mar", "feb", "jan"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("SortByRecency mismatch (-want +got):\n%s", diff)
	}
}

func TestSortByRecencyStableForEqualDates(t *testing.T) {
	in := []cache.Article{
		art("a", "Economy", "2025-01-01"),
		art("b", "Climate", "2025-01-01"),
		art("newer", "Economy", "2025-02-01"),
		art("c", "Economy", "2025-01-01T00:00:00Z"),
	}
	got := slugs(SortByRecency(in))
	want := []string{"newer", "a", "b", "c"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("stable order mismatch (-want +got):\n%s", diff)
	}
}

func TestSortByRecencyDoesNotMutateInput(t *testing.T) {
	in := []cache.Article{
		art("old", "Economy", "2024-01-01"),
		art("new", "Economy", "2025-01-01"),
	}
	before := append([]cache.Article(nil), in...)

	first := SortByRecency(in)
	second := SortByRecency(in)

	if diff := cmp.Diff(before, in); diff != "" {
		t.Errorf("input mutated (-before +after):\n%s", diff)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("sorting twice differs (-first +second):\n%s", diff)
	}
}

func TestSortByRecencyMalformedDatesLast(t *testing.T) {
	in := []cache.Article{
		art("broken", "Economy", "yesterday-ish"),
		art("empty", "Economy", ""),
		art("ok", "Economy", "2020-01-01"),
	}
	got := slugs(SortByRecency(in))
	want := []string{"ok", "broken", "empty"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("malformed ordering mismatch (-want +got):\n%s", diff)
	}
}

func TestSortByRecencyEmpty(t *testing.T) {
	if got := SortByRecency(nil); len(got) != 0 {
		t.Errorf("expected empty result, got %d", len(got))
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name string
		tags []string
		size int
	}{
		{"zero size", canonical, 0},
		{"negative size", canonical, -1},
		{"no tags", nil, 3},
		{"blank tag", []string{"Economy", " "}, 3},
		{"duplicate tag", []string{"Economy", "Economy"}, 3},
	}
	for _, tt := range tests {
		if _, err := New(tt.tags, tt.size); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}

func TestSelectTopThreePerTag(t *testing.T) {
	s, err := New(canonical, DefaultSize)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	in := []cache.Article{
		art("jan", "Economy", "2025-01-01"),
		art("mar", "Economy", "2025-03-01"),
		art("feb", "Economy", "2025-02-01"),
		art("apr", "Economy", "2025-04-01"),
	}

	groups := s.Select(in)
	if len(groups) != len(canonical) {
		t.Fatalf("expected %d groups, got %d", len(canonical), len(groups))
	}
	econ := groups[2]
	if econ.Tag != "Economy" {
		t.Fatalf("expected Economy at index 2, got %s", econ.Tag)
	}
	want := []string{"apr", "mar", "feb"}
	if diff := cmp.Diff(want, slugs(econ.Articles)); diff != "" {
		t.Errorf("Economy selection mismatch (-want +got):\n%s", diff)
	}
	for _, g := range groups {
		if g.Tag != "Economy" && g.Len() != 0 {
			t.Errorf("expected empty %s group, got %d", g.Tag, g.Len())
		}
	}
}

func TestSelectDropsUnknownTags(t *testing.T) {
	s, _ := New(canonical, DefaultSize)
	in := []cache.Article{
		art("x", "Sports", "2025-05-01"),
		art("y", "", "2025-05-01"),
		art("z", "economy", "2025-05-01"),
		art("c", "Climate", "2025-01-01"),
	}
	groups := s.Select(in)
	total := 0
	for _, g := range groups {
		total += g.Len()
	}
	if total != 1 {
		t.Errorf("expected only the Climate article selected, got %d", total)
	}
}

func TestSelectNeverPads(t *testing.T) {
	s, _ := New(canonical, 3)
	groups := s.Select([]cache.Article{art("only", "Conflicts", "2025-01-01")})
	sizes := Sizes(groups)
	want := map[string]int{"Diplomacy": 0, "Conflicts": 1, "Economy": 0, "Climate": 0}
	if diff := cmp.Diff(want, sizes); diff != "" {
		t.Errorf("sizes mismatch (-want +got):\n%s", diff)
	}
}

func TestSelectBoundedBySize(t *testing.T) {
	for size := 1; size <= 5; size++ {
		s, err := New(canonical, size)
		if err != nil {
			t.Fatalf("New(%d): %v", size, err)
		}
		var in []cache.Article
		for i := 0; i < 4; i++ {
			in = append(in, art(fmt.Sprintf("d%d", i), "Diplomacy", fmt.Sprintf("2025-01-0%d", i+1)))
		}
		for _, g := range s.Select(in) {
			matching := 0
			for _, a := range in {
				if a.Tag == g.Tag {
					matching++
				}
			}
			if g.Len() > size || g.Len() > matching {
				t.Errorf("size %d: group %s has %d articles (matching %d)", size, g.Tag, g.Len(), matching)
			}
		}
	}
}

func TestSelectIsDeterministic(t *testing.T) {
	s, _ := New(canonical, DefaultSize)
	in := []cache.Article{
		art("a", "Economy", "2025-01-01"),
		art("b", "Climate", "2025-01-02"),
		art("c", "Economy", "2025-01-03"),
	}
	if !EqualGroups(s.Select(in), s.Select(in)) {
		t.Error("same input should produce equal groups")
	}

	changed := append([]cache.Article(nil), in...)
	changed = append(changed, art("d", "Economy", "2025-02-01"))
	if EqualGroups(s.Select(in), s.Select(changed)) {
		t.Error("different input should produce different groups")
	}
}

func TestEqualComparesContent(t *testing.T) {
	s, _ := New(canonical, DefaultSize)
	in := []cache.Article{art("a", "Economy", "2025-01-01")}

	edited := append([]cache.Article(nil), in...)
	edited[0].Title = "Rates cut"
	if EqualGroups(s.Select(in), s.Select(edited)) {
		t.Error("an edited title on the same slug should make groups differ")
	}

	refetched := append([]cache.Article(nil), in...)
	refetched[0].FetchedAt = time.Now()
	if !EqualGroups(s.Select(in), s.Select(refetched)) {
		t.Error("fetch time alone should not make groups differ")
	}
}

func TestTagsReturnsCopy(t *testing.T) {
	s, _ := New(canonical, DefaultSize)
	tags := s.Tags()
	tags[0] = "mutated"
	if s.Tags()[0] != "Diplomacy" {
		t.Error("Tags should return a copy")
	}
}
