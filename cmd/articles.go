package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/mattn/go-isatty"
	"github.com/muhammad-zulfikar/irnews/internal/cache"
	"github.com/muhammad-zulfikar/irnews/internal/snapshot"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <slug>",
	Short: "Print one cached article",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := cache.Open(cachePath())
		if err != nil {
			return fmt.Errorf("opening cache: %w", err)
		}
		defer db.Close()

		a, err := db.GetArticleBySlug(args[0])
		if errors.Is(err, cache.ErrNotFound) {
			return fmt.Errorf("no article with slug %q", args[0])
		}
		if err != nil {
			return fmt.Errorf("reading article: %w", err)
		}
		out := cmd.OutOrStdout()
		if f, ok := out.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
			if rendered, err := renderMarkdown(articleMarkdown(a), ""); err == nil {
				fmt.Fprint(out, rendered)
				return nil
			}
		}
		printArticle(out, a)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Load a YAML article snapshot into the cache",
	Long: `Read a YAML file holding either a list of articles or an "articles" mapping and
upsert every entry into the local cache by slug.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := cliLogger(cmd, cfg)

		articles, err := snapshot.Load(args[0])
		if err != nil {
			return err
		}

		db, err := cache.Open(cachePath())
		if err != nil {
			return fmt.Errorf("opening cache: %w", err)
		}
		defer db.Close()

		tags := make(map[string]bool)
		for _, t := range cfg.GetTags() {
			tags[t] = true
		}
		for _, a := range articles {
			if !tags[a.Tag] {
				logger.Warn("article tag is not on the desk", "slug", a.Slug, "tag", a.Tag)
			}
			if _, ok := a.Published(); !ok {
				logger.Warn("article date does not parse, it will sort last", "slug", a.Slug, "date", a.Date)
			}
		}

		if err := db.UpsertArticles(articles); err != nil {
			return fmt.Errorf("importing: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d article(s) from %s.\n", len(articles), args[0])
		return nil
	},
}

func printArticle(w io.Writer, a cache.Article) {
	fmt.Fprintln(w, a.Title)
	fmt.Fprintln(w, strings.Repeat("=", len([]rune(a.Title))))
	field := func(name, value string) {
		if value != "" {
			fmt.Fprintf(w, "%-9s %s\n", name+":", value)
		}
	}
	field("Slug", a.Slug)
	field("Tag", a.Tag)
	field("Date", a.Date)
	field("Region", a.Region)
	field("Location", a.Location)
	field("Source", a.Source)
	field("Link", a.Link)
	field("Cover", a.CoverOrDefault())
	field("Alt", a.CoverAlt())
	if a.Description != "" {
		fmt.Fprintf(w, "\n%s\n", a.Description)
	}
}

// articleMarkdown formats an article for glamour.
func articleMarkdown(a cache.Article) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", a.Title)
	var meta []string
	for _, v := range []string{a.Tag, a.Region, a.Date, a.Location, a.Source} {
		if v != "" {
			meta = append(meta, v)
		}
	}
	if len(meta) > 0 {
		fmt.Fprintf(&b, "*%s*\n\n", strings.Join(meta, " · "))
	}
	if a.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", a.Description)
	}
	fmt.Fprintf(&b, "![%s](%s)\n\n", a.CoverAlt(), a.CoverOrDefault())
	if a.Link != "" {
		fmt.Fprintf(&b, "[Read more](%s)\n\n", a.Link)
	}
	fmt.Fprintf(&b, "`%s`\n", a.Slug)
	return b.String()
}

// renderMarkdown uses the named glamour style, or picks one from the
// terminal background when style is empty.
func renderMarkdown(md, style string) (string, error) {
	opt := glamour.WithAutoStyle()
	if style != "" {
		opt = glamour.WithStandardStyle(style)
	}
	r, err := glamour.NewTermRenderer(opt, glamour.WithWordWrap(80))
	if err != nil {
		return "", err
	}
	return r.Render(md)
}
