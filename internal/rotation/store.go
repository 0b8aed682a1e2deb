package rotation

// State is the rotation position of one non-empty group.
type State struct {
	Tag    string
	Active int
	Size   int
}

// Store holds one State per non-empty group. It is not safe for concurrent
// use; the Scheduler serializes access.
type Store struct {
	states map[string]*State
}

func NewStore() *Store {
	return &Store{states: make(map[string]*State)}
}

// Resize applies a group size change and reports whether anything changed.
// A new group starts at 0, an emptied group is removed, and a shrink that
// leaves Active out of range clamps it to 0.
func (s *Store) Resize(tag string, size int) bool {
	st, ok := s.states[tag]
	switch {
	case size <= 0:
		if !ok {
			return false
		}
		delete(s.states, tag)
		return true
	case !ok:
		s.states[tag] = &State{Tag: tag, Size: size}
		return true
	case st.Size == size:
		return false
	}

	st.Size = size
	if st.Active >= size {
		st.Active = 0
	}
	return true
}

// Advance moves the group to its next card, wrapping at Size.
func (s *Store) Advance(tag string) (State, bool) {
	st, ok := s.states[tag]
	if !ok {
		return State{}, false
	}
	st.Active = (st.Active + 1) % st.Size
	return *st, true
}

func (s *Store) Get(tag string) (State, bool) {
	st, ok := s.states[tag]
	if !ok {
		return State{}, false
	}
	return *st, true
}

func (s *Store) Len() int { return len(s.states) }

// Snapshot copies every state keyed by tag.
func (s *Store) Snapshot() map[string]State {
	out := make(map[string]State, len(s.states))
	for tag, st := range s.states {
		out[tag] = *st
	}
	return out
}

func (s *Store) Reset() {
	clear(s.states)
}
