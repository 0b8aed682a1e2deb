package rotation

// Role is a card's place in its group's stack.
type Role int

const (
	Hidden Role = iota
	Front
	Middle
	Back
)

func (r Role) String() string {
	switch r {
	case Front:
		return "front"
	case Middle:
		return "middle"
	case Back:
		return "back"
	default:
		return "hidden"
	}
}

// Layer is the stacking order; higher draws on top.
func (r Role) Layer() int {
	switch r {
	case Front:
		return 30
	case Back:
		return 20
	case Middle:
		return 10
	default:
		return 0
	}
}

// Offset is the horizontal and vertical shift, in cells, applied when
// drawing the card.
func (r Role) Offset() int {
	switch r {
	case Front:
		return -1
	case Back:
		return 1
	default:
		return 0
	}
}

// RoleFor resolves the role of the card at index given the group's active
// index and size. Checks run front, middle, back so that small groups,
// where positions coincide, still yield exactly one front card. Inputs
// outside the group, or cards beyond the third layer, are Hidden.
func RoleFor(index, active, size int) Role {
	if size <= 0 || index < 0 || index >= size || active < 0 || active >= size {
		return Hidden
	}
	switch index {
	case active:
		return Front
	case (active + 1) % size:
		return Middle
	case (active + 2) % size:
		return Back
	}
	return Hidden
}
