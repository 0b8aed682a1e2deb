package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muhammad-zulfikar/irnews/internal/cache"
)

func renderPreview(article *cache.Article, width, height, scroll int) string {
	if article == nil {
		return centerLine("Select an article", width, height)
	}

	contentWidth := width - 2
	if contentWidth < 10 {
		contentWidth = 10
	}

	title := previewTitleStyle.Width(contentWidth).Render(article.Title)
	source := previewSourceStyle.Render(metaLine(*article, "Jan 2, 2006"))

	desc := article.Description
	if desc == "" {
		desc = "(No description available)"
	}

	body := previewBodyStyle.Width(contentWidth).Render(wrapText(desc, contentWidth))
	cover := itemTimeStyle.Width(contentWidth).Render(
		"Cover: " + article.CoverOrDefault() + " (" + article.CoverAlt() + ")",
	)
	link := previewLinkStyle.Width(contentWidth).Render("Read more: " + article.Link)

	content := lipgloss.JoinVertical(lipgloss.Left, title, source, "", body, "", cover, link)

	lines := strings.Split(content, "\n")
	if scroll > 0 && scroll < len(lines) {
		lines = lines[scroll:]
	}

	if len(lines) < height {
		lines = append(lines, make([]string, height-len(lines))...)
	} else if len(lines) > height {
		lines = lines[:height]
	}

	return strings.Join(lines, "\n")
}

// metaLine joins the non-empty tag, source, date and location parts.
func metaLine(a cache.Article, layout string) string {
	var parts []string
	if a.Tag != "" {
		parts = append(parts, a.Tag)
	}
	if a.Source != "" {
		parts = append(parts, a.Source)
	}
	if t, ok := a.Published(); ok {
		parts = append(parts, t.Format(layout))
	} else if a.Date != "" {
		parts = append(parts, a.Date)
	}
	if a.Location != "" {
		parts = append(parts, a.Location)
	}
	return strings.Join(parts, " · ")
}

func wrapText(s string, width int) string {
	if width <= 0 {
		return s
	}
	words := strings.Fields(s)
	if len(words) == 0 {
		return ""
	}

	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if len([]rune(line))+1+len([]rune(w)) > width {
			lines = append(lines, line)
			line = w
		} else {
			line += " " + w
		}
	}
	lines = append(lines, line)
	return strings.Join(lines, "\n")
}
