package rules

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"testing"

	"github.com/brensch/diamonds/game"
	"github.com/google/go-cmp/cmp"
)

func dumpState(b *game.Board) string {
	if b == nil {
		return "<nil board>"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Turn=%d Size=%dx%d\n", b.Turn, b.Width, b.Height)

	agents := make([]game.AgentState, len(b.Agents))
	copy(agents, b.Agents)
	sort.Slice(agents, func(i, j int) bool { return agents[i].ID < agents[j].ID })
	for _, a := range agents {
		fmt.Fprintf(&sb, "Agent %s at %v inv=%d score=%d ms=%d base=%v(%v)\n",
			a.ID, a.Position, a.Inventory, a.Score, a.MillisecondsLeft, a.Base, a.HasBase)
	}

	if b.Width <= 40 && b.Height <= 40 {
		cells := make(map[game.Position]byte, len(b.Entities)+len(b.Agents))
		for _, e := range b.Entities {
			switch e.Kind {
			case game.Collectible:
				cells[e.Position] = byte('0' + e.Value)
			case game.BonusActivator:
				cells[e.Position] = '!'
			case game.Teleporter:
				cells[e.Position] = 'T'
			case game.AgentBase:
				cells[e.Position] = 'B'
			}
		}
		for _, a := range b.Agents {
			cells[a.Position] = 'A'
		}
		for y := 0; y < b.Height; y++ {
			for x := 0; x < b.Width; x++ {
				if c, ok := cells[game.Position{X: x, Y: y}]; ok {
					sb.WriteByte(c)
				} else {
					sb.WriteByte('.')
				}
			}
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func logNextState(t *testing.T, name string, before *game.Board, moves map[string]game.Move, after *game.Board) {
	t.Helper()
	ids := make([]string, 0, len(moves))
	for id := range moves {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	var mv strings.Builder
	mv.WriteString("Moves:")
	for _, id := range ids {
		fmt.Fprintf(&mv, " %s=%v", id, moves[id])
	}
	mv.WriteByte('\n')
	t.Logf("=== %s ===\nBefore:\n%s%sAfter:\n%s", name, dumpState(before), mv.String(), dumpState(after))
}

// quiet settings never spawn anything, so boards only change by the moves.
func quiet() Settings {
	s := DefaultSettings()
	s.Spawn = game.SpawnSettings{}
	return s
}

func at(x, y int) game.Position { return game.Position{X: x, Y: y} }

func single(p game.Position, entities ...game.Entity) *game.Board {
	return &game.Board{
		Width:    10,
		Height:   10,
		Entities: entities,
		Agents:   []game.AgentState{{ID: "me", Position: p, MillisecondsLeft: 60000}},
	}
}

func TestNextState_Move(t *testing.T) {
	before := single(at(3, 3))
	moves := map[string]game.Move{"me": game.East}
	after := NextState(before, moves, nil, quiet())
	logNextState(t, "move east", before, moves, after)

	a := after.Agents[0]
	if a.Position != at(4, 3) {
		t.Fatalf("position=%v want=(4,3)", a.Position)
	}
	if a.MillisecondsLeft != 59000 {
		t.Fatalf("ms=%d want=59000", a.MillisecondsLeft)
	}
	if after.Turn != 1 || before.Agents[0].Position != at(3, 3) {
		t.Fatalf("NextState mutated its input or skipped the turn counter")
	}
}

func TestNextState_IgnoresBadMoves(t *testing.T) {
	cases := map[string]map[string]game.Move{
		"off board": {"me": game.West},
		"not unit":  {"me": {DX: 1, DY: 1}},
		"missing":   {},
	}
	for name, moves := range cases {
		t.Run(name, func(t *testing.T) {
			after := NextState(single(at(0, 0)), moves, nil, quiet())
			if got := after.Agents[0].Position; got != at(0, 0) {
				t.Fatalf("position=%v want=(0,0)", got)
			}
			if got := after.Agents[0].MillisecondsLeft; got != 59000 {
				t.Fatalf("ms=%d want=59000, the clock runs regardless", got)
			}
		})
	}
}

func TestNextState_Collects(t *testing.T) {
	before := single(at(3, 3), game.Entity{Kind: game.Collectible, Position: at(4, 3), Value: 2})
	moves := map[string]game.Move{"me": game.East}
	after := NextState(before, moves, nil, quiet())
	logNextState(t, "collect", before, moves, after)

	if got := after.Agents[0].Inventory; got != 2 {
		t.Fatalf("inventory=%d want=2", got)
	}
	if n := len(after.Collectibles()); n != 0 {
		t.Fatalf("collectibles=%d want=0", n)
	}
}

func TestNextState_CapacityLeavesItem(t *testing.T) {
	before := single(at(3, 3), game.Entity{Kind: game.Collectible, Position: at(4, 3), Value: 2})
	before.Agents[0].Inventory = 4
	after := NextState(before, map[string]game.Move{"me": game.East}, nil, quiet())

	if got := after.Agents[0].Inventory; got != 4 {
		t.Fatalf("inventory=%d want=4", got)
	}
	if n := len(after.Collectibles()); n != 1 {
		t.Fatalf("collectibles=%d want=1, a red does not fit in 4/5", n)
	}
}

func TestNextState_BanksAtOwnBase(t *testing.T) {
	before := single(at(1, 0))
	before.Agents[0].Inventory = 3
	before.Agents[0].Score = 7
	before.Agents[0].Base, before.Agents[0].HasBase = at(0, 0), true
	after := NextState(before, map[string]game.Move{"me": game.West}, nil, quiet())

	a := after.Agents[0]
	if a.Inventory != 0 || a.Score != 10 {
		t.Fatalf("inventory=%d score=%d want 0 and 10", a.Inventory, a.Score)
	}
}

func TestNextState_Teleports(t *testing.T) {
	before := single(at(1, 0),
		game.Entity{Kind: game.Teleporter, Position: at(2, 0), PairID: "1"},
		game.Entity{Kind: game.Teleporter, Position: at(8, 8), PairID: "1"},
	)
	moves := map[string]game.Move{"me": game.East}
	after := NextState(before, moves, nil, quiet())
	logNextState(t, "teleport", before, moves, after)

	if got := after.Agents[0].Position; got != at(8, 8) {
		t.Fatalf("position=%v want=(8,8)", got)
	}
}

func TestNextState_BonusRegenerates(t *testing.T) {
	before := single(at(3, 3),
		game.Entity{Kind: game.BonusActivator, Position: at(4, 3)},
		game.Entity{Kind: game.Collectible, Position: at(0, 9), Value: 2},
	)
	s := quiet()
	s.Spawn = game.SpawnSettings{MinimumCollectibles: 3}
	moves := map[string]game.Move{"me": game.East}
	after := NextState(before, moves, rand.New(rand.NewSource(1)), s)
	logNextState(t, "bonus", before, moves, after)

	if n := len(after.Collectibles()); n != 3 {
		t.Fatalf("collectibles=%d want=3", n)
	}
	for _, c := range after.Collectibles() {
		if c.Value != 1 {
			t.Fatalf("old red survived the regeneration: %v", c)
		}
	}
	bonuses := after.Bonuses()
	if len(bonuses) != 1 || bonuses[0].Position == at(4, 3) {
		t.Fatalf("bonuses=%v want one, moved off (4,3)", bonuses)
	}
}

func TestNextState_ClockExpiredAgentIsFrozen(t *testing.T) {
	before := single(at(3, 3))
	before.Agents[0].MillisecondsLeft = 0
	after := NextState(before, map[string]game.Move{"me": game.East}, nil, quiet())
	if got := after.Agents[0].Position; got != at(3, 3) {
		t.Fatalf("position=%v want=(3,3)", got)
	}
}

func TestNextState_FirstAgentWinsContestedItem(t *testing.T) {
	before := &game.Board{
		Width:    10,
		Height:   10,
		Entities: []game.Entity{{Kind: game.Collectible, Position: at(5, 5), Value: 1}},
		Agents: []game.AgentState{
			{ID: "a", Position: at(4, 5), MillisecondsLeft: 60000},
			{ID: "b", Position: at(6, 5), MillisecondsLeft: 60000},
		},
	}
	moves := map[string]game.Move{"a": game.East, "b": game.West}
	after := NextState(before, moves, nil, quiet())
	logNextState(t, "contested", before, moves, after)

	if after.Agents[0].Inventory != 1 || after.Agents[1].Inventory != 0 {
		t.Fatalf("inventories=%d,%d want 1,0", after.Agents[0].Inventory, after.Agents[1].Inventory)
	}
}

func TestIsGameOverAndWinner(t *testing.T) {
	b := &game.Board{Width: 5, Height: 5, Agents: []game.AgentState{
		{ID: "a", Score: 3, MillisecondsLeft: 1000},
		{ID: "b", Score: 5},
	}}
	s := DefaultSettings()
	if IsGameOver(b, s) {
		t.Fatalf("game over while a still has time")
	}
	b = NextState(b, nil, nil, quiet())
	if !IsGameOver(b, s) {
		t.Fatalf("game should be over:\n%s", dumpState(b))
	}
	if id, ok := Winner(b); !ok || id != "b" {
		t.Fatalf("Winner=%q,%v want b", id, ok)
	}

	b.Agents[0].Score = 5
	if id, ok := Winner(b); ok {
		t.Fatalf("Winner=%q on a tie", id)
	}

	s.MaxTurns = 1
	fresh := &game.Board{Width: 5, Height: 5, Turn: 1, Agents: []game.AgentState{{ID: "a", MillisecondsLeft: 1000}}}
	if !IsGameOver(fresh, s) {
		t.Fatalf("turn limit ignored")
	}
}

func TestNewGame(t *testing.T) {
	b, err := NewGame(15, 15, []string{"a", "b"}, rand.New(rand.NewSource(9)), DefaultSettings())
	if err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	t.Logf("new game:\n%s", dumpState(b))

	if err := b.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	for _, a := range b.Agents {
		if !a.HasBase || a.Base != a.Position || a.MillisecondsLeft != 60000 {
			t.Fatalf("agent %+v should start on its base with a full clock", a)
		}
	}
	if n := len(b.Teleporters()); n != 2 {
		t.Fatalf("teleporters=%d want=2", n)
	}
	if n := len(b.Bonuses()); n != 1 {
		t.Fatalf("bonuses=%d want=1", n)
	}
	if n := len(b.Collectibles()); n != game.DefaultSpawnSettings.MinimumCollectibles {
		t.Fatalf("collectibles=%d want=%d", n, game.DefaultSpawnSettings.MinimumCollectibles)
	}
}

func TestNewGame_DeterministicWithoutRNG(t *testing.T) {
	a, err := NewGame(9, 9, []string{"a", "b", "c"}, nil, DefaultSettings())
	if err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	b, _ := NewGame(9, 9, []string{"a", "b", "c"}, nil, DefaultSettings())
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("boards differ (-a +b):\n%s", diff)
	}
}

func TestNewGame_RejectsTinyBoards(t *testing.T) {
	if _, err := NewGame(3, 3, []string{"a"}, nil, DefaultSettings()); !errors.Is(err, game.ErrInvalidBoard) {
		t.Fatalf("err=%v want ErrInvalidBoard", err)
	}
}
