package game

// Move is a unit step. The zero Move means "no step" and is never sent to the engine.
type Move struct {
	DX int
	DY int
}

var (
	East  = Move{DX: 1, DY: 0}
	South = Move{DX: 0, DY: 1}
	West  = Move{DX: -1, DY: 0}
	North = Move{DX: 0, DY: -1}
)

// Moves lists the four unit steps in neighbor expansion order.
var Moves = [4]Move{East, South, West, North}

// Valid reports whether m is one of the four unit steps.
func (m Move) Valid() bool {
	return m == East || m == South || m == West || m == North
}

func (m Move) String() string {
	switch m {
	case East:
		return "EAST"
	case South:
		return "SOUTH"
	case West:
		return "WEST"
	case North:
		return "NORTH"
	default:
		return "NONE"
	}
}

// ParseMove is the inverse of Move.String.
func ParseMove(s string) (Move, bool) {
	for _, m := range Moves {
		if m.String() == s {
			return m, true
		}
	}
	return Move{}, false
}

// MoveBetween returns the step from a to an adjacent cell b, or false if b
// is not a 4-neighbor of a.
func MoveBetween(a, b Position) (Move, bool) {
	m := Move{DX: b.X - a.X, DY: b.Y - a.Y}
	return m, m.Valid()
}

// MoveToward returns a greedy unit step from `from` toward `to`, closing the
// larger axis gap first (Y wins ties). It returns the zero Move when from == to.
func MoveToward(from, to Position) Move {
	dx := to.X - from.X
	dy := to.Y - from.Y
	switch {
	case dx == 0 && dy == 0:
		return Move{}
	case abs(dx) > abs(dy):
		if dx > 0 {
			return East
		}
		return West
	default:
		if dy > 0 {
			return South
		}
		return North
	}
}
