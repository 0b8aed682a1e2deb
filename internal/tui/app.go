package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muhammad-zulfikar/irnews/internal/browser"
	"github.com/muhammad-zulfikar/irnews/internal/cache"
	"github.com/muhammad-zulfikar/irnews/internal/config"
	"github.com/muhammad-zulfikar/irnews/internal/desk"
	"github.com/muhammad-zulfikar/irnews/internal/feed"
	"github.com/muhammad-zulfikar/irnews/internal/snapshot"
)

type focusPane int

const (
	focusList focusPane = iota
	focusPreview
)

type mode int

const (
	modeDesk mode = iota
	modeNormal
	modeSearch
	modeFilter
	modeHelp
)

type App struct {
	cfg    *config.Config
	db     *cache.Cache
	desk   *desk.Desk
	logger *slog.Logger
	ctx    context.Context

	// Desk
	groups       []desk.GroupView
	deskCursor   int
	loading      bool
	snapshotPath string
	snapshots    <-chan []cache.Article

	// Browse
	articles []cache.Article
	cursor   int
	focus    focusPane

	mode     mode
	helpFrom mode

	width  int
	height int

	searchInput textinput.Model
	spinner     spinner.Model
	filterBar   filterBar

	refreshing    bool
	since         time.Time
	previewScroll int
	currentDate   string
	err           error
}

// RunOpts holds all parameters for launching the TUI.
type RunOpts struct {
	Cfg    *config.Config
	DB     *cache.Cache
	Desk   *desk.Desk
	Logger *slog.Logger
	Since  time.Time
	// BrowseMode opens the article browser instead of the desk.
	BrowseMode bool
	// SnapshotPath, when set, feeds the desk from a watched YAML file
	// instead of the cache.
	SnapshotPath string
}

func NewApp(opts RunOpts) *App {
	ti := textinput.New()
	ti.Placeholder = "Search articles..."
	ti.Prompt = searchPromptStyle.Render("/ ")
	ti.CharLimit = 100

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = spinnerStyle

	startMode := modeDesk
	if opts.BrowseMode {
		startMode = modeNormal
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	app := &App{
		cfg:          opts.Cfg,
		db:           opts.DB,
		desk:         opts.Desk,
		logger:       logger,
		ctx:          context.Background(),
		since:        opts.Since,
		snapshotPath: opts.SnapshotPath,
		filterBar:    newFilterBar(opts.Cfg.GetTags()),
		searchInput:  ti,
		spinner:      sp,
		currentDate:  time.Now().Format("Mon Jan 2"),
		mode:         startMode,
		loading:      true,
	}
	if app.desk != nil {
		app.groups = app.desk.View()
	}
	return app
}

func (a *App) Init() tea.Cmd {
	cmds := []tea.Cmd{a.spinner.Tick, a.loadDeskCmd(), a.waitForDeskChange()}
	if a.snapshots != nil {
		cmds = append(cmds, a.waitForSnapshot())
	}
	if a.mode == modeNormal {
		cmds = append(cmds, a.loadArticlesCmd())
	}
	return tea.Batch(cmds...)
}

// loadDeskCmd reads the desk's input snapshot from the YAML file when one
// is configured, otherwise from the cache.
func (a *App) loadDeskCmd() tea.Cmd {
	if a.snapshotPath != "" {
		path := a.snapshotPath
		return func() tea.Msg {
			articles, err := snapshot.Load(path)
			if err != nil {
				return feedErrMsg{err: err}
			}
			return deskLoadedMsg{articles: articles}
		}
	}
	if a.db == nil {
		return nil
	}
	opts := cache.QueryOpts{Since: a.since, Tags: a.cfg.GetTags()}
	db := a.db
	return func() tea.Msg {
		articles, err := db.GetArticles(opts)
		if err != nil {
			return feedErrMsg{err: err}
		}
		return deskLoadedMsg{articles: articles}
	}
}

// waitForDeskChange blocks until the desk signals and is re-issued after
// every deskChangedMsg.
func (a *App) waitForDeskChange() tea.Cmd {
	if a.desk == nil {
		return nil
	}
	ch := a.desk.Changes()
	ctx := a.ctx
	return func() tea.Msg {
		select {
		case <-ch:
			return deskChangedMsg{}
		case <-ctx.Done():
			return nil
		}
	}
}

func (a *App) waitForSnapshot() tea.Cmd {
	ch := a.snapshots
	return func() tea.Msg {
		articles, ok := <-ch
		if !ok {
			return nil
		}
		return snapshotMsg{articles: articles}
	}
}

// loadArticlesCmd captures current query state into the closure to avoid races.
func (a *App) loadArticlesCmd() tea.Cmd {
	if a.db == nil {
		return nil
	}
	opts := cache.QueryOpts{
		Since:  a.since,
		Tags:   a.filterBar.activeTags(),
		Search: a.searchInput.Value(),
	}
	db := a.db
	return func() tea.Msg {
		articles, err := db.GetArticles(opts)
		if err != nil {
			return feedErrMsg{err: err}
		}
		return feedsLoadedMsg{articles: articles}
	}
}

func (a *App) doRefresh() tea.Cmd {
	cfg := a.cfg
	db := a.db
	logger := a.logger
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		result := feed.FetchAll(ctx, cfg.EnabledSources(), logger)

		if err := db.UpsertArticles(result.Articles); err != nil {
			return refreshDoneMsg{errs: append(result.Errors, err)}
		}
		if err := db.SetLastRefresh(); err != nil {
			logger.Warn("recording refresh time", "error", err)
		}

		return refreshDoneMsg{count: len(result.Articles), errs: result.Errors}
	}
}

func openBrowserCmd(url string) tea.Cmd {
	return func() tea.Msg {
		err := browser.Open(url)
		if err != nil {
			return feedErrMsg{err: err}
		}
		return nil
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case tea.KeyMsg:
		// Clear sticky error on any keypress
		a.err = nil
		return a.handleKey(msg)

	case deskLoadedMsg:
		a.loading = false
		a.setDeskArticles(msg.articles)
		return a, nil

	case snapshotMsg:
		a.setDeskArticles(msg.articles)
		return a, a.waitForSnapshot()

	case deskChangedMsg:
		if a.desk != nil {
			a.groups = a.desk.View()
		}
		return a, a.waitForDeskChange()

	case feedsLoadedMsg:
		a.articles = msg.articles
		if a.cursor >= len(a.articles) {
			a.cursor = max(0, len(a.articles)-1)
		}
		return a, nil

	case feedErrMsg:
		a.loading = false
		a.err = msg.err
		a.logger.Warn("tui error", "error", msg.err)
		return a, nil

	case refreshDoneMsg:
		a.refreshing = false
		if len(msg.errs) > 0 {
			a.err = fmt.Errorf("refresh: %d source(s) failed: %w", len(msg.errs), msg.errs[0])
		}
		a.logger.Info("refresh finished", "articles", msg.count, "errors", len(msg.errs))
		cmds := []tea.Cmd{a.loadArticlesCmd()}
		if a.snapshotPath == "" {
			cmds = append(cmds, a.loadDeskCmd())
		}
		return a, tea.Batch(cmds...)

	case spinner.TickMsg:
		if a.refreshing || a.loading {
			var cmd tea.Cmd
			a.spinner, cmd = a.spinner.Update(msg)
			return a, cmd
		}
		return a, nil
	}

	return a, nil
}

func (a *App) setDeskArticles(articles []cache.Article) {
	if a.desk == nil {
		return
	}
	a.desk.SetArticles(articles)
	a.groups = a.desk.View()
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return a, tea.Quit
	}

	switch a.mode {
	case modeDesk:
		return a.handleDeskKey(msg)
	case modeSearch:
		return a.handleSearchKey(msg)
	case modeFilter:
		return a.handleFilterKey(msg)
	case modeHelp:
		if msg.String() == "?" || msg.String() == "esc" || msg.String() == "q" {
			a.mode = a.helpFrom
		}
		return a, nil
	}

	// Browse mode
	switch msg.String() {
	case "q":
		return a, tea.Quit
	case "j", "down":
		if a.focus == focusList && a.cursor < len(a.articles)-1 {
			a.cursor++
			a.previewScroll = 0
		} else if a.focus == focusPreview {
			a.previewScroll++
		}
		return a, nil
	case "k", "up":
		if a.focus == focusList && a.cursor > 0 {
			a.cursor--
			a.previewScroll = 0
		} else if a.focus == focusPreview && a.previewScroll > 0 {
			a.previewScroll--
		}
		return a, nil
	case "tab":
		if a.focus == focusList {
			a.focus = focusPreview
		} else {
			a.focus = focusList
		}
		return a, nil
	case "o", "enter":
		if len(a.articles) > 0 && a.cursor < len(a.articles) {
			return a, openBrowserCmd(a.articles[a.cursor].Link)
		}
		return a, nil
	case "/":
		a.mode = modeSearch
		a.searchInput.Focus()
		return a, textinput.Blink
	case "f":
		a.mode = modeFilter
		a.filterBar.filterMode = true
		return a, nil
	case "r":
		return a, a.startRefresh()
	case "d", "esc":
		a.mode = modeDesk
		return a, nil
	case "?":
		a.helpFrom = modeNormal
		a.mode = modeHelp
		return a, nil
	}

	return a, nil
}

func (a *App) handleDeskKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return a, tea.Quit
	case "right", "l", "tab":
		if len(a.groups) > 0 {
			a.deskCursor = (a.deskCursor + 1) % len(a.groups)
		}
		return a, nil
	case "left", "h", "shift+tab":
		if len(a.groups) > 0 {
			a.deskCursor = (a.deskCursor + len(a.groups) - 1) % len(a.groups)
		}
		return a, nil
	case "down", "j":
		if a.deskCursor+deskColumns < len(a.groups) {
			a.deskCursor += deskColumns
		}
		return a, nil
	case "up", "k":
		if a.deskCursor-deskColumns >= 0 {
			a.deskCursor -= deskColumns
		}
		return a, nil
	case "o", "enter":
		if a.deskCursor < len(a.groups) {
			if card, ok := a.groups[a.deskCursor].Front(); ok && card.Article.Link != "" {
				return a, openBrowserCmd(card.Article.Link)
			}
		}
		return a, nil
	case "b", "e":
		a.mode = modeNormal
		return a, a.loadArticlesCmd()
	case "r":
		return a, a.startRefresh()
	case "?":
		a.helpFrom = modeDesk
		a.mode = modeHelp
		return a, nil
	}
	return a, nil
}

func (a *App) startRefresh() tea.Cmd {
	if a.refreshing || a.db == nil {
		return nil
	}
	a.refreshing = true
	return tea.Batch(a.doRefresh(), a.spinner.Tick)
}

func (a *App) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.mode = modeNormal
		a.searchInput.SetValue("")
		a.searchInput.Blur()
		return a, a.loadArticlesCmd()
	case "enter":
		a.mode = modeNormal
		a.searchInput.Blur()
		return a, a.loadArticlesCmd()
	}

	var cmd tea.Cmd
	a.searchInput, cmd = a.searchInput.Update(msg)
	return a, cmd
}

func (a *App) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "f":
		a.mode = modeNormal
		a.filterBar.filterMode = false
		return a, nil
	case "left", "h":
		if a.filterBar.filterCursor > 0 {
			a.filterBar.filterCursor--
		}
		return a, nil
	case "right", "l":
		if a.filterBar.filterCursor < len(a.filterBar.tags)-1 {
			a.filterBar.filterCursor++
		}
		return a, nil
	case " ", "enter":
		a.filterBar.toggleCurrent()
		a.cursor = 0
		return a, a.loadArticlesCmd()
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		idx := int(msg.String()[0] - '1')
		if idx < len(a.filterBar.tags) {
			a.filterBar.toggle(a.filterBar.tags[idx])
			a.cursor = 0
			return a, a.loadArticlesCmd()
		}
		return a, nil
	}
	return a, nil
}

func (a *App) withBottomBar(content, left, hints string) string {
	bar := renderBottomBar(left, hints, a.width)
	lines := strings.Split(content, "\n")
	for len(lines) < a.height-1 {
		lines = append(lines, "")
	}
	if len(lines) >= a.height {
		lines = lines[:a.height-1]
	}
	lines = append(lines, bar)
	return strings.Join(lines, "\n")
}

func (a *App) header() string {
	headerLeft := headerStyle.Render("irnews")
	headerRight := headerDateStyle.Render(a.currentDate)
	headerGap := a.width - lipgloss.Width(headerLeft) - lipgloss.Width(headerRight)
	if headerGap < 0 {
		headerGap = 0
	}
	return headerLeft + fmt.Sprintf("%*s", headerGap, "") + headerRight
}

func (a *App) View() string {
	if a.width == 0 {
		return lipgloss.NewStyle().Foreground(colorAccent).Render("  irnews")
	}

	if a.mode == modeHelp {
		return a.withBottomBar(a.renderHelp(), "", "? close  q quit")
	}

	if a.mode == modeDesk {
		return a.renderDeskScreen()
	}

	return a.renderBrowse()
}

func (a *App) renderDeskScreen() string {
	bodyHeight := a.height - 3
	var body string
	switch {
	case a.loading:
		body = centerLine(a.spinner.View()+" Loading articles...", a.width, bodyHeight)
	case a.err != nil && a.deskEmpty():
		body = centerLine("Could not load articles: "+a.err.Error(), a.width, bodyHeight)
	default:
		body = renderDesk(a.groups, a.deskCursor, a.width, bodyHeight)
	}

	left := ""
	switch {
	case a.refreshing:
		left = a.spinner.View() + " refreshing..."
	case a.err != nil:
		left = errorStyle.Render(truncateStr(a.err.Error(), a.width/2))
	case a.desk != nil && a.desk.Attached():
		left = "rotating every " + a.cfg.RotationDuration().String()
	}

	content := lipgloss.JoinVertical(lipgloss.Left, a.header(), body)
	return a.withBottomBar(content, left, "←/→ group  o open  b browse  r refresh  ? help  q quit")
}

func (a *App) deskEmpty() bool {
	for _, g := range a.groups {
		if len(g.Cards) > 0 {
			return false
		}
	}
	return true
}

func (a *App) renderBrowse() string {
	headerHeight := 1
	filterHeight := 1
	statusHeight := 1
	contentHeight := a.height - headerHeight - filterHeight - statusHeight - 4 // borders

	listWidth := int(float64(a.width) * 0.35)
	previewWidth := a.width - listWidth - 1

	if contentHeight < 3 {
		contentHeight = 3
	}

	filter := a.filterBar.render(a.width)
	if a.mode == modeSearch {
		filter = a.searchInput.View()
	}

	innerListW := listWidth - 4
	listContent := renderList(a.articles, a.cursor, contentHeight, innerListW)

	listStyle := listPaneStyle
	if a.focus == focusList {
		listStyle = listPaneActiveStyle
	}
	listPane := listStyle.Width(listWidth - 2).Height(contentHeight).Render(listContent)

	var selected *cache.Article
	if len(a.articles) > 0 && a.cursor < len(a.articles) {
		selected = &a.articles[a.cursor]
	}
	previewContent := renderPreview(selected, previewWidth-4, contentHeight, a.previewScroll)

	previewStyle := previewPaneStyle
	if a.focus == focusPreview {
		previewStyle = previewPaneActiveStyle
	}
	previewPane := previewStyle.Width(previewWidth - 2).Height(contentHeight).Render(previewContent)

	content := lipgloss.JoinHorizontal(lipgloss.Top, listPane, previewPane)

	status := renderStatusBar(
		len(a.articles),
		a.filterBar.activeLabel(),
		a.width,
		a.mode == modeSearch,
		a.refreshing,
	)
	if a.refreshing {
		status = a.spinner.View() + " " + status
	}
	if a.err != nil {
		status = errorStyle.Render(a.err.Error())
	}

	return lipgloss.JoinVertical(lipgloss.Left, a.header(), filter, content, status)
}

func (a *App) renderHelp() string {
	title := lipgloss.NewStyle().Foreground(colorAccent).Bold(true).Render("irnews")
	dim := helpDimStyle

	help := title + dim.Render(" keyboard shortcuts") + "\n\n" +
		dim.Render("Desk") + "\n" +
		"  ←/→, tab      Move between groups\n" +
		"  ↑/↓           Move between rows\n" +
		"  o, enter      Open the front card\n" +
		"  b             Browse all articles\n\n" +
		dim.Render("Browse") + "\n" +
		"  j/k, ↑/↓      Navigate article list\n" +
		"  tab           Switch focus between list and preview\n" +
		"  o, enter      Open article in browser\n" +
		"  /             Search articles\n" +
		"  f             Toggle tag filter mode\n" +
		"  d, esc        Back to the desk\n\n" +
		dim.Render("Filter Mode") + "\n" +
		"  ←/→, h/l      Move between tags\n" +
		"  space/enter   Toggle tag\n" +
		"  1-9           Toggle tag by number\n" +
		"  esc, f        Exit filter mode\n\n" +
		dim.Render("General") + "\n" +
		"  r             Refresh feeds\n" +
		"  ?             Toggle this help\n" +
		"  q, ctrl+c     Quit"

	card := helpCardStyle.Render(help)

	return lipgloss.Place(a.width, a.height-1, lipgloss.Center, lipgloss.Center, card)
}

// Run attaches the desk, follows the snapshot file when one is set, and
// blocks until the program exits. Rotation is detached on the way out.
func Run(ctx context.Context, opts RunOpts) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := opts.Desk.Attach(); err != nil {
		return fmt.Errorf("starting rotation: %w", err)
	}
	defer opts.Desk.Detach()

	app := NewApp(opts)
	app.ctx = ctx
	if opts.SnapshotPath != "" {
		ch, err := snapshot.Watch(ctx, opts.SnapshotPath, app.logger)
		if err != nil {
			return err
		}
		app.snapshots = ch
	}

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
