package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

func renderStatusBar(articleCount int, filterLabel string, width int, searching bool, refreshing bool) string {
	left := fmt.Sprintf(" %d articles", articleCount)
	if filterLabel != "All" {
		left += " · " + filterLabel
	}

	right := " d desk  / search  f filter  ? help  q quit "

	if searching {
		right = " esc cancel  enter search "
	}
	if refreshing {
		left += " (refreshing...)"
	}

	return statusBarStyle.Width(width).Render(spread(left, right, width))
}

func renderBottomBar(left, hints string, width int) string {
	return statusBarStyle.Width(width).Render(spread(left, " "+hints+" ", width))
}

func spread(left, right string, width int) string {
	gap := width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 0 {
		gap = 0
	}
	return left + fmt.Sprintf("%*s", gap, "") + right
}
