package strategy

import (
	"github.com/brensch/diamonds/game"
)

// Distance is the Manhattan distance, shortened by any teleporter shortcut:
// walk to one teleporter, spend one step jumping, walk from another.
func Distance(board *game.Board, from, to game.Position) int {
	best := from.Manhattan(to)
	if board == nil {
		return best
	}
	tps := board.Teleporters()
	for _, a := range tps {
		for _, b := range tps {
			if a.Position == b.Position {
				continue
			}
			if d := from.Manhattan(a.Position) + 1 + b.Position.Manhattan(to); d < best {
				best = d
			}
		}
	}
	return best
}

func (m Metric) within(a, b game.Position, radius int) bool {
	if m == Chebyshev {
		return a.Chebyshev(b) <= radius
	}
	return a.Manhattan(b) <= radius
}
