// Package pathfind turns a chosen objective into a concrete route.
//
// The search is A* over the 4-connected board. Teleporters add an extra edge
// of cost 1 from every teleporter cell to every other teleporter cell. Walking
// onto a paired teleporter that is not the goal always takes its jump, since
// the engine relocates the agent on arrival; only the start cell may step off
// a teleporter or jump to any other one. The heuristic accounts for the
// shortcuts so it stays admissible, which keeps the returned route shortest.
package pathfind

import (
	"container/heap"
	"errors"

	"github.com/brensch/diamonds/game"
)

// DefaultMaxLength bounds the number of steps in any returned route.
const DefaultMaxLength = 200

// ErrNoRoute is returned when the goal cannot be reached within the length bound.
var ErrNoRoute = errors.New("pathfind: no route")

// Route is an ordered list of cells from start to goal, inclusive.
type Route []game.Position

// Len is the number of steps, which is also the route's cost.
func (r Route) Len() int {
	if len(r) == 0 {
		return 0
	}
	return len(r) - 1
}

// Next returns the cell that follows from on the route.
func (r Route) Next(from game.Position) (game.Position, bool) {
	for i := 0; i+1 < len(r); i++ {
		if r[i] == from {
			return r[i+1], true
		}
	}
	return game.Position{}, false
}

func (r Route) Goal() (game.Position, bool) {
	if len(r) == 0 {
		return game.Position{}, false
	}
	return r[len(r)-1], true
}

// Finder holds search limits. The zero value uses DefaultMaxLength.
type Finder struct {
	MaxLength int
}

// FindRoute searches with the default limits.
func FindRoute(board *game.Board, start, goal game.Position) (Route, error) {
	return Finder{}.FindRoute(board, start, goal)
}

// FindRoute returns the shortest route from start to goal. Among equally short
// routes the result is deterministic: neighbors expand in game.Moves order and
// equal priorities leave the frontier first-in first-out.
func (f Finder) FindRoute(board *game.Board, start, goal game.Position) (Route, error) {
	maxLen := f.MaxLength
	if maxLen <= 0 {
		maxLen = DefaultMaxLength
	}
	if board == nil || !start.InBounds(board.Width, board.Height) || !goal.InBounds(board.Width, board.Height) {
		return nil, ErrNoRoute
	}
	if start == goal {
		return Route{start}, nil
	}

	teleporters := teleporterCells(board)
	pairs := pairCells(board)
	h := func(p game.Position) int {
		return lowerBound(p, goal, teleporters)
	}

	cameFrom := map[game.Position]game.Position{}
	// via holds the teleporter walked onto when a cell was reached by a forced jump.
	via := map[game.Position]game.Position{}
	bestG := map[game.Position]int{start: 0}
	closed := map[game.Position]bool{}

	open := &frontier{}
	seq := 0
	heap.Push(open, frontierItem{pos: start, g: 0, priority: h(start), seq: seq})

	relax := func(from game.Position, g int, to game.Position, through *game.Position) {
		if closed[to] || g > maxLen {
			return
		}
		if old, ok := bestG[to]; ok && old <= g {
			return
		}
		bestG[to] = g
		cameFrom[to] = from
		if through != nil {
			via[to] = *through
		} else {
			delete(via, to)
		}
		seq++
		heap.Push(open, frontierItem{pos: to, g: g, priority: g + h(to), seq: seq})
	}

	for open.Len() > 0 {
		cur := heap.Pop(open).(frontierItem)
		if closed[cur.pos] || cur.g != bestG[cur.pos] {
			continue // stale entry
		}
		if cur.pos == goal {
			return reconstruct(cameFrom, via, start, goal), nil
		}
		closed[cur.pos] = true

		for _, m := range game.Moves {
			next := cur.pos.Add(m)
			if !next.InBounds(board.Width, board.Height) {
				continue
			}
			if out, ok := pairs[next]; ok && next != goal {
				tp := next
				relax(cur.pos, cur.g+2, out, &tp)
				continue
			}
			relax(cur.pos, cur.g+1, next, nil)
		}
		// An adjacent teleporter is reached by walking, which relocates
		// instead of landing, so only distant ones are jump targets.
		if _, ok := pairs[cur.pos]; ok && cur.pos == start {
			for _, other := range teleporters {
				if other != cur.pos && other.Manhattan(cur.pos) > 1 {
					relax(cur.pos, cur.g+1, other, nil)
				}
			}
		}
	}

	return nil, ErrNoRoute
}

func reconstruct(cameFrom, via map[game.Position]game.Position, start, goal game.Position) Route {
	route := Route{goal}
	for cur := goal; cur != start; {
		if tp, ok := via[cur]; ok {
			route = append(route, tp)
		}
		cur = cameFrom[cur]
		route = append(route, cur)
	}
	for i, j := 0, len(route)-1; i < j; i, j = i+1, j-1 {
		route[i], route[j] = route[j], route[i]
	}
	return route
}

// teleporterCells returns the distinct teleporter positions in board order.
func teleporterCells(board *game.Board) []game.Position {
	var out []game.Position
	seen := map[game.Position]bool{}
	for _, e := range board.Entities {
		if e.Kind == game.Teleporter && !seen[e.Position] {
			seen[e.Position] = true
			out = append(out, e.Position)
		}
	}
	return out
}

// pairCells maps each teleporter cell to where the engine relocates an agent
// that walks onto it. Unpaired teleporters are ordinary cells.
func pairCells(board *game.Board) map[game.Position]game.Position {
	out := map[game.Position]game.Position{}
	for _, e := range board.Entities {
		if e.Kind != game.Teleporter {
			continue
		}
		if _, done := out[e.Position]; done {
			continue
		}
		if pair, ok := board.PairOf(e); ok {
			out[e.Position] = pair.Position
		}
	}
	return out
}

// lowerBound never overestimates the remaining steps: every route either
// walks directly or walks to some teleporter, jumps, and walks from another.
func lowerBound(from, to game.Position, teleporters []game.Position) int {
	best := from.Manhattan(to)
	if len(teleporters) < 2 {
		return best
	}
	nearIn, nearOut := -1, -1
	for _, t := range teleporters {
		if d := from.Manhattan(t); nearIn < 0 || d < nearIn {
			nearIn = d
		}
		if d := t.Manhattan(to); nearOut < 0 || d < nearOut {
			nearOut = d
		}
	}
	if via := nearIn + 1 + nearOut; via < best {
		best = via
	}
	return best
}
