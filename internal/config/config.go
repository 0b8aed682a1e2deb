package config

import (
	"embed"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

//go:embed default_config.yaml
var defaultConfigFS embed.FS

// DefaultTags are the four desk groups, in display order.
var DefaultTags = []string{"Diplomacy", "Conflicts", "Economy", "Climate"}

type Source struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	URL     string `yaml:"url"`
	Enabled bool   `yaml:"enabled"`
	// Tag pins every article from this source to one group instead of
	// classifying by keywords.
	Tag string `yaml:"tag,omitempty"`
	// Region labels the card chip, e.g. "Global" or "Asia-Pacific".
	Region string `yaml:"region,omitempty"`
}

type Config struct {
	RefreshInterval  string   `yaml:"refresh_interval"`
	Retention        string   `yaml:"retention"`
	RotationInterval string   `yaml:"rotation_interval,omitempty"`
	SelectSize       *int     `yaml:"select_size,omitempty"`
	Tags             []string `yaml:"tags,omitempty"`
	LogLevel         string   `yaml:"log_level,omitempty"`
	Snapshot         string   `yaml:"snapshot,omitempty"`
	Sources          []Source `yaml:"sources"`
}

func (c *Config) RefreshDuration() time.Duration {
	d, err := time.ParseDuration(c.RefreshInterval)
	if err != nil {
		return 12 * time.Hour
	}
	return d
}

func (c *Config) RetentionDuration() time.Duration {
	if c.Retention == "" {
		return 90 * 24 * time.Hour
	}
	d, err := ParseDays(c.Retention)
	if err != nil {
		return 90 * 24 * time.Hour
	}
	return d
}

// RotationDuration returns how long each desk card stays in front.
// validate has already rejected unusable values.
func (c *Config) RotationDuration() time.Duration {
	if c.RotationInterval == "" {
		return 5 * time.Second
	}
	d, _ := time.ParseDuration(c.RotationInterval)
	return d
}

func (c *Config) GetSelectSize() int {
	if c.SelectSize == nil {
		return 3
	}
	return *c.SelectSize
}

func (c *Config) GetTags() []string {
	if len(c.Tags) == 0 {
		return append([]string(nil), DefaultTags...)
	}
	return c.Tags
}

func (c *Config) EnabledSources() []Source {
	var out []Source
	for _, s := range c.Sources {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out
}

func (c *Config) SourceNames() []string {
	var names []string
	for _, s := range c.EnabledSources() {
		names = append(names, s.Name)
	}
	return names
}

// ParseDays parses a Go duration, also accepting whole days as "Nd".
func ParseDays(s string) (time.Duration, error) {
	if len(s) > 1 && s[len(s)-1] == 'd' {
		var days int
		if _, err := fmt.Sscanf(s, "%dd", &days); err == nil {
			return time.Duration(days) * 24 * time.Hour, nil
		}
	}
	return time.ParseDuration(s)
}

func DefaultConfigPath() string {
	if p := os.Getenv("IRNEWS_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(xdg.ConfigHome, "irnews", "config.yaml")
}

func CachePath() string {
	return filepath.Join(xdg.CacheHome, "irnews", "irnews.db")
}

func loadDefaults() (*Config, error) {
	data, err := defaultConfigFS.ReadFile("default_config.yaml")
	if err != nil {
		return nil, fmt.Errorf("reading embedded config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded config: %w", err)
	}
	return &cfg, nil
}

func Load(path string) (*Config, error) {
	defaults, err := loadDefaults()
	if err != nil {
		return nil, err
	}

	if path == "" {
		path = DefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Best effort: a read-only config dir still runs on defaults.
			_ = writeDefaults(path)
			return defaults, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	mergeDefaultSources(&cfg, defaults)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return &cfg, nil
}

// mergeDefaultSources refreshes the URL and type of default sources the
// user already has and appends defaults they have never seen. Enabled and
// tag choices stay the user's; an appended default pinned to a tag the user
// does not show falls back to keyword classification.
func mergeDefaultSources(cfg, defaults *Config) {
	tags := make(map[string]bool)
	for _, t := range cfg.GetTags() {
		tags[t] = true
	}
	index := make(map[string]int, len(cfg.Sources))
	for i, s := range cfg.Sources {
		index[s.Name] = i
	}
	for _, d := range defaults.Sources {
		if i, ok := index[d.Name]; ok {
			cfg.Sources[i].URL = d.URL
			cfg.Sources[i].Type = d.Type
			continue
		}
		if !tags[d.Tag] {
			d.Tag = ""
		}
		cfg.Sources = append(cfg.Sources, d)
	}
}

func writeDefaults(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, _ := defaultConfigFS.ReadFile("default_config.yaml")
	return os.WriteFile(path, data, 0o644)
}

func validate(cfg *Config) error {
	validTypes := map[string]bool{"rss": true, "atom": true}
	for i, s := range cfg.Sources {
		if s.Name == "" {
			return fmt.Errorf("source %d: name is required", i)
		}
		if s.URL == "" {
			return fmt.Errorf("source %q: url is required", s.Name)
		}
		u, err := url.Parse(s.URL)
		if err != nil {
			return fmt.Errorf("source %q: invalid url: %w", s.Name, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("source %q: url scheme must be http or https, got %q", s.Name, u.Scheme)
		}
		if !validTypes[s.Type] {
			return fmt.Errorf("source %q: unknown type %q (valid: rss, atom)", s.Name, s.Type)
		}
	}

	if cfg.RotationInterval != "" {
		d, err := time.ParseDuration(cfg.RotationInterval)
		if err != nil {
			return fmt.Errorf("rotation_interval: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("rotation_interval must be positive, got %s", d)
		}
	}

	if cfg.SelectSize != nil && *cfg.SelectSize <= 0 {
		return fmt.Errorf("select_size must be positive, got %d", *cfg.SelectSize)
	}

	seen := map[string]bool{}
	for i, t := range cfg.Tags {
		if strings.TrimSpace(t) == "" {
			return fmt.Errorf("tags[%d] is blank", i)
		}
		if seen[t] {
			return fmt.Errorf("duplicate tag %q", t)
		}
		seen[t] = true
	}

	tags := map[string]bool{}
	for _, t := range cfg.GetTags() {
		tags[t] = true
	}
	for _, s := range cfg.Sources {
		if s.Tag != "" && !tags[s.Tag] {
			return fmt.Errorf("source %q: tag %q is not one of %s", s.Name, s.Tag, strings.Join(cfg.GetTags(), ", "))
		}
	}
	return nil
}
