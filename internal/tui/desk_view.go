package tui

import (
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muhammad-zulfikar/irnews/internal/desk"
	"github.com/muhammad-zulfikar/irnews/internal/rotation"
)

const deskColumns = 2

// renderDesk lays the groups out two per row.
func renderDesk(groups []desk.GroupView, selected, width, height int) string {
	if len(groups) == 0 {
		return centerLine("No tags configured", width, height)
	}

	rows := (len(groups) + deskColumns - 1) / deskColumns
	panelW := width / deskColumns
	panelH := height / rows
	if panelH < 6 {
		panelH = 6
	}

	var lines []string
	for r := 0; r < rows; r++ {
		var panels []string
		for c := 0; c < deskColumns; c++ {
			i := r*deskColumns + c
			if i >= len(groups) {
				break
			}
			panels = append(panels, renderPanel(groups[i], i == selected, panelW, panelH))
		}
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, panels...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderPanel(g desk.GroupView, active bool, width, height int) string {
	style := deskPanelStyle
	if active {
		style = deskPanelActiveStyle
	}
	// border + padding
	inner := width - 4
	if inner < 10 {
		inner = 10
	}
	return style.Width(width - 2).Height(height - 2).Render(renderStack(g, inner))
}

// renderStack draws the cards in layer order, lowest first, so the front
// card lands last. Behind cards show as title slivers indented by depth.
func renderStack(g desk.GroupView, width int) string {
	header := tagStyle(g.Tag).Render(g.Tag)
	if len(g.Cards) == 0 {
		return header + "\n\n" + behindCardStyle.Render("No recent articles")
	}

	cards := append([]desk.Card(nil), g.Cards...)
	sort.SliceStable(cards, func(i, j int) bool {
		return cards[i].Role.Layer() < cards[j].Role.Layer()
	})

	lines := []string{header, ""}
	for _, c := range cards {
		indent := (c.Role.Offset() + 1) * 2
		switch c.Role {
		case rotation.Hidden:
			continue
		case rotation.Front:
			lines = append(lines, renderFrontCard(c, width-indent))
		default:
			title := truncateStr(c.Article.Title, width-indent-2)
			lines = append(lines, strings.Repeat(" ", indent)+behindCardStyle.Render("▔ "+title))
		}
	}
	return strings.Join(lines, "\n")
}

func renderFrontCard(c desk.Card, width int) string {
	a := c.Article
	inner := width - 4
	if inner < 8 {
		inner = 8
	}

	var top []string
	if a.Region != "" {
		top = append(top, regionChipStyle.Render(a.Region))
	}
	if t, ok := a.Published(); ok {
		top = append(top, cardMetaStyle.Render(t.Format("Jan 2, 2006")))
	} else if a.Date != "" {
		top = append(top, cardMetaStyle.Render(a.Date))
	}

	parts := []string{
		strings.Join(top, " "),
		cardTitleStyle.Render(truncateStr(a.Title, inner)),
	}
	if a.Location != "" {
		parts = append(parts, cardLocationStyle.Render("@ "+truncateStr(a.Location, inner-2)))
	}
	if a.Description != "" {
		parts = append(parts, cardMetaStyle.Render(firstLines(wrapText(a.Description, inner), 2)))
	}
	return frontCardStyle.Width(width - 2).Render(strings.Join(parts, "\n"))
}

func firstLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return s
	}
	lines = lines[:n]
	last := []rune(lines[n-1])
	if len(last) > 3 {
		lines[n-1] = string(last[:len(last)-3]) + "..."
	}
	return strings.Join(lines, "\n")
}
