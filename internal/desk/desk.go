// Package desk combines tag selection with the rotation scheduler and
// exposes a render-ready view of every group's card stack.
package desk

import (
	"log/slog"
	"maps"
	"sync"

	"github.com/muhammad-zulfikar/irnews/internal/cache"
	"github.com/muhammad-zulfikar/irnews/internal/rotation"
	"github.com/muhammad-zulfikar/irnews/internal/selection"
)

// Card is one article in a group's stack.
type Card struct {
	Article cache.Article
	Index   int
	Role    rotation.Role
}

// GroupView is one canonical tag with its cards in selection order.
type GroupView struct {
	Tag   string
	Cards []Card
}

// Front returns the card currently on top of the stack.
func (g GroupView) Front() (Card, bool) {
	for _, c := range g.Cards {
		if c.Role == rotation.Front {
			return c, true
		}
	}
	return Card{}, false
}

// Desk holds the latest selection and drives rotation for it.
type Desk struct {
	selector *selection.Selector
	sched    *rotation.Scheduler
	logger   *slog.Logger

	mu      sync.Mutex
	groups  []selection.Group
	changes chan struct{}
}

// New builds a desk. Any OnChange in opts is replaced; subscribe with
// Changes instead.
func New(selector *selection.Selector, opts rotation.Options) (*Desk, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	d := &Desk{
		selector: selector,
		logger:   opts.Logger,
		groups:   selector.Select(nil),
		changes:  make(chan struct{}, 1),
	}
	opts.OnChange = func(string) { d.notify() }

	sched, err := rotation.NewScheduler(opts)
	if err != nil {
		return nil, err
	}
	d.sched = sched
	return d, nil
}

// Changes signals after every tick and every selection change. Signals
// coalesce; read View after receiving one.
func (d *Desk) Changes() <-chan struct{} {
	return d.changes
}

// SetArticles recomputes every group from articles and always keeps the
// result, so edited fields on an unchanged slug reach View. The scheduler
// only hears about size changes, and subscribers only about content
// changes.
func (d *Desk) SetArticles(articles []cache.Article) {
	groups := d.selector.Select(articles)
	sizes := selection.Sizes(groups)

	d.mu.Lock()
	changed := !selection.EqualGroups(d.groups, groups)
	resized := !maps.Equal(selection.Sizes(d.groups), sizes)
	d.groups = groups
	if resized {
		d.sched.Update(sizes)
	}
	d.mu.Unlock()

	if !changed {
		return
	}
	d.logger.Debug("desk selection changed", "articles", len(articles), "resized", resized)
	d.notify()
}

// Attach starts rotation for the current selection.
func (d *Desk) Attach() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sched.Attach(selection.Sizes(d.groups))
}

// Detach stops rotation and drops its state.
func (d *Desk) Detach() {
	d.sched.Detach()
}

// Attached reports whether rotation is running.
func (d *Desk) Attached() bool {
	return d.sched.Attached()
}

// View resolves each card's role from the current rotation state. Groups
// are not rotating while detached and show their first card in front.
func (d *Desk) View() []GroupView {
	d.mu.Lock()
	defer d.mu.Unlock()

	states := d.sched.States()
	out := make([]GroupView, len(d.groups))
	for i, g := range d.groups {
		active := 0
		if st, ok := states[g.Tag]; ok {
			active = st.Active
		}
		gv := GroupView{Tag: g.Tag, Cards: make([]Card, len(g.Articles))}
		for j, a := range g.Articles {
			gv.Cards[j] = Card{
				Article: a,
				Index:   j,
				Role:    rotation.RoleFor(j, active, len(g.Articles)),
			}
		}
		out[i] = gv
	}
	return out
}

func (d *Desk) notify() {
	select {
	case d.changes <- struct{}{}:
	default:
	}
}
