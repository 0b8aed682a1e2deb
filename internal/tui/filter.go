package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// filterBar narrows the browse list to a set of tags. No active tag means
// everything, untagged articles included.
type filterBar struct {
	tags         []string
	active       map[string]bool
	filterMode   bool
	filterCursor int
}

func newFilterBar(tags []string) filterBar {
	return filterBar{
		tags:   tags,
		active: make(map[string]bool),
	}
}

func (f *filterBar) toggle(tag string) {
	if f.active[tag] {
		delete(f.active, tag)
	} else {
		f.active[tag] = true
	}
}

func (f *filterBar) toggleCurrent() {
	if f.filterCursor < len(f.tags) {
		f.toggle(f.tags[f.filterCursor])
	}
}

func (f *filterBar) activeTags() []string {
	if len(f.active) == 0 {
		return nil
	}
	var out []string
	for _, t := range f.tags {
		if f.active[t] {
			out = append(out, t)
		}
	}
	return out
}

func (f *filterBar) activeLabel() string {
	active := f.activeTags()
	if active == nil {
		return "All"
	}
	return strings.Join(active, ", ")
}

func (f *filterBar) render(width int) string {
	sep := tabSeparatorStyle.Render(" · ")
	var parts []string

	if len(f.active) == 0 {
		parts = append(parts, tabActiveStyle.Render("All"))
	} else {
		parts = append(parts, tabInactiveStyle.Render("All"))
	}

	for i, t := range f.tags {
		style := tabInactiveStyle
		if f.active[t] {
			style = tabActiveStyle
		}
		label := t
		if f.filterMode && i == f.filterCursor {
			label = "[" + t + "]"
		}
		parts = append(parts, style.Render(label))
	}

	// Stop adding tabs once the row would overflow.
	var row string
	for i, part := range parts {
		candidate := row
		if i > 0 {
			candidate += sep
		}
		candidate += part
		if lipgloss.Width(candidate) > width && row != "" {
			break
		}
		row = candidate
	}

	barStyle := lipgloss.NewStyle().
		Background(colorTabBg).
		Width(width).
		PaddingLeft(1)
	return barStyle.Render(row)
}
