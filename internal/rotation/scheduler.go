// Package rotation cycles the front card of each article group on a fixed
// cadence and resolves every card's position in the visual stack.
package rotation

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultInterval is how long each card stays in front.
const DefaultInterval = 5 * time.Second

// ErrAttached is returned by Attach when the scheduler is already running.
var ErrAttached = errors.New("rotation: scheduler already attached")

// Options configures a Scheduler. Clock and Logger default to the real
// clock and slog.Default.
type Options struct {
	Interval time.Duration
	Clock    clockwork.Clock
	Logger   *slog.Logger

	// OnChange is called after a tick advanced tag. It runs outside the
	// scheduler lock and may call back into the scheduler.
	OnChange func(tag string)
}

// Scheduler owns one repeating timer per non-empty group. Ticks, Update,
// Attach and Detach all serialize on one mutex, so a resize never
// interleaves with a tick of the same group.
type Scheduler struct {
	clock    clockwork.Clock
	interval time.Duration
	logger   *slog.Logger
	onChange func(string)

	mu       sync.Mutex
	attached bool
	epoch    uint64
	store    *Store
	timers   map[string]*groupTimer
}

type groupTimer struct {
	timer clockwork.Timer
}

func NewScheduler(opts Options) (*Scheduler, error) {
	if opts.Interval <= 0 {
		return nil, fmt.Errorf("rotation interval must be positive, got %s", opts.Interval)
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Scheduler{
		clock:    opts.Clock,
		interval: opts.Interval,
		logger:   opts.Logger,
		onChange: opts.OnChange,
		store:    NewStore(),
		timers:   make(map[string]*groupTimer),
	}, nil
}

// Interval returns how long each card stays in front.
func (s *Scheduler) Interval() time.Duration { return s.interval }

// Attach starts rotating the given groups from a clean state: every
// non-empty group begins at index 0 with its own timer.
func (s *Scheduler) Attach(sizes map[string]int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.attached {
		return ErrAttached
	}
	s.attached = true
	s.epoch++
	s.store.Reset()

	for _, tag := range sortedTags(sizes) {
		s.resizeLocked(tag, sizes[tag])
	}
	s.logger.Debug("rotation attached", "groups", s.store.Len(), "interval", s.interval)
	return nil
}

// Update applies new group sizes. Tags missing from sizes are treated as
// empty. It is a no-op while detached.
func (s *Scheduler) Update(sizes map[string]int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.attached {
		s.logger.Debug("rotation update ignored while detached")
		return
	}

	for tag := range s.store.Snapshot() {
		if _, ok := sizes[tag]; !ok {
			s.resizeLocked(tag, 0)
		}
	}
	for _, tag := range sortedTags(sizes) {
		s.resizeLocked(tag, sizes[tag])
	}
}

// Detach cancels every timer and drops all rotation state. Callbacks that
// already fired but have not yet taken the lock see a stale epoch and do
// nothing.
func (s *Scheduler) Detach() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.attached {
		return
	}
	for tag, gt := range s.timers {
		gt.timer.Stop()
		delete(s.timers, tag)
	}
	s.store.Reset()
	s.attached = false
	s.epoch++
	s.logger.Debug("rotation detached")
}

// Attached reports whether Attach has been called without a matching Detach.
func (s *Scheduler) Attached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attached
}

// State returns the rotation state for tag, if the group is cycling.
func (s *Scheduler) State(tag string) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Get(tag)
}

// States copies every cycling group's state.
func (s *Scheduler) States() map[string]State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Snapshot()
}

// resizeLocked drives the per-group state machine: Idle to Cycling arms a
// timer, Cycling to Idle cancels it, and a resize keeps the timer phase.
func (s *Scheduler) resizeLocked(tag string, size int) {
	_, wasCycling := s.store.Get(tag)
	if !s.store.Resize(tag, size) {
		return
	}
	st, cycling := s.store.Get(tag)

	switch {
	case cycling && !wasCycling:
		gt := &groupTimer{}
		s.timers[tag] = gt
		s.armLocked(tag, gt)
		s.logger.Debug("rotation group started", "tag", tag, "size", size)
	case !cycling && wasCycling:
		if gt, ok := s.timers[tag]; ok {
			gt.timer.Stop()
			delete(s.timers, tag)
		}
		s.logger.Debug("rotation group idle", "tag", tag)
	default:
		s.logger.Debug("rotation group resized", "tag", tag, "size", st.Size, "active", st.Active)
	}
}

func (s *Scheduler) armLocked(tag string, gt *groupTimer) {
	epoch := s.epoch
	gt.timer = s.clock.AfterFunc(s.interval, func() {
		s.tick(tag, gt, epoch)
	})
}

func (s *Scheduler) tick(tag string, gt *groupTimer, epoch uint64) {
	s.mu.Lock()
	if !s.attached || s.epoch != epoch || s.timers[tag] != gt {
		s.mu.Unlock()
		return
	}
	st, ok := s.store.Advance(tag)
	if ok {
		s.armLocked(tag, gt)
	}
	s.mu.Unlock()

	if !ok {
		return
	}
	s.logger.Debug("rotation tick", "tag", tag, "active", st.Active, "size", st.Size)
	if s.onChange != nil {
		s.onChange(tag)
	}
}

func sortedTags(sizes map[string]int) []string {
	tags := make([]string, 0, len(sizes))
	for tag := range sizes {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
