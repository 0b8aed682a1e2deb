package cache

import (
	"strings"
	"time"
)

const (
	defaultCoverImg    = "/images/default-fallback-image.png"
	defaultCoverImgAlt = "Article cover image"
)

// Article is a single news article. Date is kept as the string the source
// supplied; ordering code parses it on demand.
type Article struct {
	Slug        string `yaml:"slug"`
	Tag         string `yaml:"tag"`
	Date        string `yaml:"date"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	CoverImg    string `yaml:"cover_img,omitempty"`
	CoverImgAlt string `yaml:"cover_img_alt,omitempty"`
	Region      string `yaml:"region,omitempty"`
	Location    string `yaml:"location,omitempty"`
	Link        string `yaml:"link,omitempty"`
	Source      string `yaml:"source,omitempty"`

	FetchedAt time.Time `yaml:"-"`
}

// SameContent reports whether two articles carry the same data. FetchedAt
// is bookkeeping and is not compared.
func (a Article) SameContent(o Article) bool {
	a.FetchedAt, o.FetchedAt = time.Time{}, time.Time{}
	return a == o
}

// CoverOrDefault returns the cover image path, falling back to the site default.
func (a Article) CoverOrDefault() string {
	if a.CoverImg == "" {
		return defaultCoverImg
	}
	return a.CoverImg
}

func (a Article) CoverAlt() string {
	if a.CoverImgAlt == "" {
		return defaultCoverImgAlt
	}
	return a.CoverImgAlt
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
	"Jan 2, 2006",
	"January 2, 2006",
}

// ParseDate parses the date formats seen in feeds and snapshot files.
// The second result is false when no layout matches.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Published returns the parsed Date.
func (a Article) Published() (time.Time, bool) {
	return ParseDate(a.Date)
}

type QueryOpts struct {
	Since   time.Time
	Sources []string
	Tags    []string
	Search  string
	Limit   int
}
