package pathfind

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/brensch/diamonds/game"
	"github.com/google/go-cmp/cmp"
)

func openBoard(w, h int, teleporters ...game.Position) *game.Board {
	b := &game.Board{Width: w, Height: h}
	for _, p := range teleporters {
		b.Entities = append(b.Entities, game.Entity{Kind: game.Teleporter, Position: p})
	}
	return b
}

// bfsLength is the reference shortest-path length on the same graph. A state
// is a cell plus whether the agent just walked onto a paired teleporter and
// must jump.
func bfsLength(b *game.Board, start, goal game.Position) int {
	var teleporters []game.Position
	pairs := map[game.Position]game.Position{}
	for _, e := range b.Teleporters() {
		teleporters = append(teleporters, e.Position)
		if p, ok := b.PairOf(e); ok {
			if _, seen := pairs[e.Position]; !seen {
				pairs[e.Position] = p.Position
			}
		}
	}

	type state struct {
		pos  game.Position
		jump bool
	}
	first := state{pos: start}
	dist := map[state]int{first: 0}
	queue := []state{first}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.pos == goal {
			return dist[cur]
		}
		var next []state
		if cur.jump {
			next = append(next, state{pos: pairs[cur.pos]})
		} else {
			for _, m := range game.Moves {
				p := cur.pos.Add(m)
				if !p.InBounds(b.Width, b.Height) {
					continue
				}
				_, paired := pairs[p]
				next = append(next, state{pos: p, jump: paired && p != goal})
			}
			if _, paired := pairs[cur.pos]; paired && cur.pos == start {
				for _, t := range teleporters {
					if t != cur.pos && t.Manhattan(cur.pos) > 1 {
						next = append(next, state{pos: t})
					}
				}
			}
		}
		for _, p := range next {
			if _, ok := dist[p]; !ok {
				dist[p] = dist[cur] + 1
				queue = append(queue, p)
			}
		}
	}
	return -1
}

func isTeleporter(b *game.Board, p game.Position) bool {
	for _, e := range b.Teleporters() {
		if e.Position == p {
			return true
		}
	}
	return false
}

func isPaired(b *game.Board, p game.Position) bool {
	for _, e := range b.Teleporters() {
		if e.Position == p {
			_, ok := b.PairOf(e)
			return ok
		}
	}
	return false
}

func assertValidRoute(t *testing.T, b *game.Board, r Route, start, goal game.Position) {
	t.Helper()
	if len(r) == 0 || r[0] != start || r[len(r)-1] != goal {
		t.Fatalf("route %v does not run %v -> %v", r, start, goal)
	}
	for i := 1; i < len(r); i++ {
		prev, cur := r[i-1], r[i]
		if !cur.InBounds(b.Width, b.Height) {
			t.Fatalf("step %d leaves the board: %v", i, cur)
		}
		if prev.Manhattan(cur) == 1 {
			continue
		}
		if isTeleporter(b, prev) && isTeleporter(b, cur) && prev != cur {
			continue
		}
		t.Fatalf("step %d %v -> %v is neither a neighbor move nor a teleporter jump", i, prev, cur)
	}
	// The engine relocates an agent that walks onto a paired teleporter, so
	// such a cell must be followed by its jump unless it ends the route.
	for i := 1; i+1 < len(r); i++ {
		if r[i-1].Manhattan(r[i]) != 1 || !isPaired(b, r[i]) {
			continue
		}
		if !isTeleporter(b, r[i+1]) {
			t.Fatalf("route %v walks through teleporter %v without jumping", r, r[i])
		}
	}
}

func TestFindRoute_StraightLine(t *testing.T) {
	b := openBoard(10, 10)
	got, err := FindRoute(b, game.Position{X: 0, Y: 0}, game.Position{X: 3, Y: 0})
	if err != nil {
		t.Fatalf("FindRoute: %v", err)
	}
	want := Route{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}, {X: 3, Y: 0}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("route mismatch (-want +got):\n%s", diff)
	}
	if got.Len() != 3 {
		t.Fatalf("Len=%d want=3", got.Len())
	}
}

func TestFindRoute_StartIsGoal(t *testing.T) {
	b := openBoard(5, 5)
	p := game.Position{X: 2, Y: 2}
	got, err := FindRoute(b, p, p)
	if err != nil {
		t.Fatalf("FindRoute: %v", err)
	}
	if diff := cmp.Diff(Route{p}, got); diff != "" {
		t.Fatalf("route mismatch (-want +got):\n%s", diff)
	}
	if got.Len() != 0 {
		t.Fatalf("Len=%d want=0", got.Len())
	}
}

func TestFindRoute_UsesTeleporterJump(t *testing.T) {
	b := openBoard(10, 10, game.Position{X: 0, Y: 0}, game.Position{X: 9, Y: 9})
	start, goal := game.Position{X: 0, Y: 0}, game.Position{X: 9, Y: 8}

	got, err := FindRoute(b, start, goal)
	if err != nil {
		t.Fatalf("FindRoute: %v", err)
	}
	assertValidRoute(t, b, got, start, goal)

	want := Route{{X: 0, Y: 0}, {X: 9, Y: 9}, {X: 9, Y: 8}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("route mismatch (-want +got):\n%s", diff)
	}
	if got.Len() > start.Manhattan(goal) {
		t.Fatalf("teleporter route len=%d longer than manhattan=%d", got.Len(), start.Manhattan(goal))
	}
}

func TestFindRoute_WalksToTeleporterWhenWorthIt(t *testing.T) {
	b := openBoard(15, 15, game.Position{X: 1, Y: 1}, game.Position{X: 13, Y: 13})
	start, goal := game.Position{X: 0, Y: 0}, game.Position{X: 14, Y: 14}

	got, err := FindRoute(b, start, goal)
	if err != nil {
		t.Fatalf("FindRoute: %v", err)
	}
	assertValidRoute(t, b, got, start, goal)
	// 2 steps to (1,1), 1 jump, 2 steps to (14,14).
	if got.Len() != 5 {
		t.Fatalf("Len=%d want=5 route=%v", got.Len(), got)
	}
}

func TestFindRoute_WalksAroundTeleporterInTheWay(t *testing.T) {
	b := openBoard(10, 10, game.Position{X: 2, Y: 0}, game.Position{X: 9, Y: 9})
	start, goal := game.Position{X: 0, Y: 0}, game.Position{X: 4, Y: 0}

	got, err := FindRoute(b, start, goal)
	if err != nil {
		t.Fatalf("FindRoute: %v", err)
	}
	assertValidRoute(t, b, got, start, goal)
	for _, p := range got {
		if p == (game.Position{X: 2, Y: 0}) {
			t.Fatalf("route %v steps on the teleporter and would be thrown to (9,9)", got)
		}
	}
	if got.Len() != 6 {
		t.Fatalf("Len=%d want=6 route=%v", got.Len(), got)
	}
}

func TestFindRoute_LandingCellCanBeLeft(t *testing.T) {
	// A 1-wide corridor: walking onto (1,0) lands on (3,0), and the goal is
	// only reachable by stepping off the landing cell.
	b := openBoard(5, 1, game.Position{X: 1, Y: 0}, game.Position{X: 3, Y: 0})
	start, goal := game.Position{X: 0, Y: 0}, game.Position{X: 2, Y: 0}

	got, err := FindRoute(b, start, goal)
	if err != nil {
		t.Fatalf("FindRoute: %v", err)
	}
	want := Route{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 3, Y: 0}, {X: 2, Y: 0}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("route mismatch (-want +got):\n%s", diff)
	}
}

func TestFindRoute_MatchesBFSOnRandomBoards(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 300; i++ {
		w, h := 2+rng.Intn(14), 2+rng.Intn(14)
		var tps []game.Position
		for n := rng.Intn(4); n > 0; n-- {
			tps = append(tps, game.Position{X: rng.Intn(w), Y: rng.Intn(h)})
		}
		b := openBoard(w, h, tps...)
		start := game.Position{X: rng.Intn(w), Y: rng.Intn(h)}
		goal := game.Position{X: rng.Intn(w), Y: rng.Intn(h)}

		want := bfsLength(b, start, goal)
		got, err := FindRoute(b, start, goal)
		if want < 0 {
			// Teleporters can wall a cell off completely on tiny boards.
			if !errors.Is(err, ErrNoRoute) {
				t.Fatalf("board %dx%d tps=%v %v->%v: err=%v want ErrNoRoute", w, h, tps, start, goal, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("board %dx%d tps=%v %v->%v: %v", w, h, tps, start, goal, err)
		}
		assertValidRoute(t, b, got, start, goal)
		if got.Len() != want {
			t.Fatalf("board %dx%d tps=%v %v->%v: len=%d want=%d route=%v", w, h, tps, start, goal, got.Len(), want, got)
		}
	}
}

func TestFindRoute_Deterministic(t *testing.T) {
	b := openBoard(12, 12, game.Position{X: 2, Y: 9}, game.Position{X: 10, Y: 1})
	start, goal := game.Position{X: 0, Y: 11}, game.Position{X: 11, Y: 0}

	first, err := FindRoute(b, start, goal)
	if err != nil {
		t.Fatalf("FindRoute: %v", err)
	}
	for i := 0; i < 20; i++ {
		again, err := FindRoute(b, start, goal)
		if err != nil {
			t.Fatalf("FindRoute: %v", err)
		}
		if diff := cmp.Diff(first, again); diff != "" {
			t.Fatalf("run %d differs (-first +again):\n%s", i, diff)
		}
	}
}

func TestFindRoute_LengthGuard(t *testing.T) {
	b := openBoard(30, 30)
	start, goal := game.Position{X: 0, Y: 0}, game.Position{X: 29, Y: 29}

	if _, err := (Finder{MaxLength: 57}).FindRoute(b, start, goal); !errors.Is(err, ErrNoRoute) {
		t.Fatalf("err=%v want ErrNoRoute for a 58-step route under a 57 guard", err)
	}
	r, err := (Finder{MaxLength: 58}).FindRoute(b, start, goal)
	if err != nil {
		t.Fatalf("FindRoute: %v", err)
	}
	if r.Len() != 58 {
		t.Fatalf("Len=%d want=58", r.Len())
	}
}

func TestFindRoute_OffBoard(t *testing.T) {
	b := openBoard(5, 5)
	if _, err := FindRoute(b, game.Position{X: 0, Y: 0}, game.Position{X: 5, Y: 0}); !errors.Is(err, ErrNoRoute) {
		t.Fatalf("goal off board: err=%v want ErrNoRoute", err)
	}
	if _, err := FindRoute(b, game.Position{X: -1, Y: 0}, game.Position{X: 1, Y: 0}); !errors.Is(err, ErrNoRoute) {
		t.Fatalf("start off board: err=%v want ErrNoRoute", err)
	}
	if _, err := FindRoute(nil, game.Position{}, game.Position{}); !errors.Is(err, ErrNoRoute) {
		t.Fatalf("nil board: err=%v want ErrNoRoute", err)
	}
}

func TestRoute_Next(t *testing.T) {
	r := Route{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}}
	if p, ok := r.Next(game.Position{X: 1, Y: 0}); !ok || p != (game.Position{X: 1, Y: 1}) {
		t.Fatalf("Next=%v,%v want (1,1)", p, ok)
	}
	if _, ok := r.Next(game.Position{X: 1, Y: 1}); ok {
		t.Fatalf("Next past the goal should report false")
	}
	if _, ok := r.Next(game.Position{X: 4, Y: 4}); ok {
		t.Fatalf("Next off the route should report false")
	}
}

func BenchmarkFindRoute(b *testing.B) {
	board := openBoard(15, 15, game.Position{X: 3, Y: 12}, game.Position{X: 12, Y: 3})
	start, goal := game.Position{X: 0, Y: 0}, game.Position{X: 14, Y: 14}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := FindRoute(board, start, goal); err != nil {
			b.Fatalf("FindRoute: %v", err)
		}
	}
}
