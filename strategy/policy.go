package strategy

import (
	"github.com/brensch/diamonds/game"
	"github.com/brensch/diamonds/pathfind"
)

type Phase int

const (
	Foraging Phase = iota
	Returning
)

func (p Phase) String() string {
	if p == Returning {
		return "returning"
	}
	return "foraging"
}

// Decision explains a single move.
type Decision struct {
	Phase  Phase
	Reason string
	// Target is the cell being routed to: the objective while foraging, the base while returning.
	Target    game.Position
	HasTarget bool
	Objective game.Entity
	Route     pathfind.Route
	Move      game.Move
	// Fallback is set when the move came from the greedy step rather than the route.
	Fallback bool
}

// Bot owns the goal cache for exactly one agent. Bots are not safe for
// concurrent use and must never be shared between agents.
type Bot struct {
	tuning   Tuning
	selector Selector
	finder   pathfind.Finder

	goal        game.Entity
	hasGoal     bool
	route       pathfind.Route
	teleporters []game.Position
}

func NewBot(t Tuning) *Bot {
	return &Bot{
		tuning:   t,
		selector: NewSelector(t),
		finder:   pathfind.Finder{MaxLength: t.MaxRouteLength},
	}
}

// Decide returns the unit step for this tick.
func (b *Bot) Decide(board *game.Board, agent game.AgentState) game.Move {
	return b.DecideTrace(board, agent).Move
}

// DecideTrace is Decide with the reasoning attached.
func (b *Bot) DecideTrace(board *game.Board, agent game.AgentState) Decision {
	mode := ModeFor(b.tuning, board, agent, true)

	if reason, ok := b.shouldReturn(board, agent, mode); ok {
		b.forget()
		d := Decision{Phase: Returning, Reason: reason, Target: mode.Base, HasTarget: true}
		route, err := b.finder.FindRoute(board, agent.Position, mode.Base)
		if err == nil {
			d.Route = route
		}
		d.Move, d.Fallback = step(board, agent.Position, route, mode.Base)
		return d
	}

	if b.hasGoal && (!board.Has(b.goal) || !b.selector.Eligible(b.goal, agent)) {
		b.forget()
	}
	if !b.hasGoal {
		if target, ok := b.selector.Select(board, agent); ok {
			b.goal, b.hasGoal = target, true
		}
	}

	if b.hasGoal {
		d := Decision{
			Phase:     Foraging,
			Reason:    "objective",
			Target:    b.goal.Position,
			HasTarget: true,
			Objective: b.goal,
		}
		route, err := b.routeToGoal(board, agent.Position)
		if err == nil {
			d.Route = route
		}
		d.Move, d.Fallback = step(board, agent.Position, route, b.goal.Position)
		return d
	}

	d := Decision{Phase: Foraging, Reason: "no target"}
	if mode.HasBase {
		d.Target, d.HasTarget = mode.Base, true
		route, err := b.finder.FindRoute(board, agent.Position, mode.Base)
		if err == nil {
			d.Route = route
		}
		d.Move, d.Fallback = step(board, agent.Position, route, mode.Base)
		return d
	}
	d.Move, d.Fallback = step(board, agent.Position, nil, agent.Position)
	return d
}

// Goal returns the cached objective, if any.
func (b *Bot) Goal() (game.Entity, bool) {
	return b.goal, b.hasGoal
}

func (b *Bot) forget() {
	b.goal = game.Entity{}
	b.hasGoal = false
	b.route = nil
	b.teleporters = nil
}

// routeToGoal reuses the cached route while the agent is still on it and the
// teleporters have not moved, and searches again otherwise.
func (b *Bot) routeToGoal(board *game.Board, from game.Position) (pathfind.Route, error) {
	tps := teleporterLayout(board)
	if _, onRoute := b.route.Next(from); onRoute && sameLayout(tps, b.teleporters) {
		return b.route, nil
	}
	route, err := b.finder.FindRoute(board, from, b.goal.Position)
	if err != nil {
		b.route, b.teleporters = nil, nil
		return nil, err
	}
	b.route, b.teleporters = route, tps
	return route, nil
}

// shouldReturn reports whether the agent must head home, and why.
// An agent without any known base never returns. A clock of zero or less is
// treated as unknown and disables the time-based rules.
func (b *Bot) shouldReturn(board *game.Board, agent game.AgentState, mode Mode) (string, bool) {
	if !mode.HasBase {
		return "", false
	}
	t := b.tuning
	timeKnown := agent.MillisecondsLeft > 0
	timeLeft := int(agent.MillisecondsLeft / 1000)
	steps := agent.Position.Manhattan(mode.Base)
	nearby := b.collectibleNearby(board, agent)

	switch {
	case agent.Inventory >= t.InventoryCapacity:
		return "inventory full", true
	case timeKnown && steps >= timeLeft-t.ReturnMarginSeconds:
		return "out of time", true
	case agent.Inventory > t.BankInventory && steps <= t.BankBaseRadius && !nearby:
		return "bank nearby", true
	case timeKnown && timeLeft <= t.LastChanceSeconds && !nearby:
		return "last chance", true
	}
	return "", false
}

func (b *Bot) collectibleNearby(board *game.Board, agent game.AgentState) bool {
	for _, e := range board.Entities {
		if e.Kind == game.Collectible && b.selector.Eligible(e, agent) &&
			agent.Position.Manhattan(e.Position) <= b.tuning.NearbyRadius {
			return true
		}
	}
	return false
}

// step turns a route into a unit move. Teleporter jumps, missing routes and
// finished routes fall back to a greedy step, and a greedy step of zero
// becomes the first move that stays on the board.
func step(board *game.Board, from game.Position, route pathfind.Route, goal game.Position) (game.Move, bool) {
	target := goal
	if next, ok := route.Next(from); ok {
		if m, ok := game.MoveBetween(from, next); ok {
			return m, false
		}
		target = next
	}
	m := game.MoveToward(from, target)
	if !m.Valid() {
		m = firstOnBoard(board, from)
	}
	return m, true
}

func firstOnBoard(board *game.Board, from game.Position) game.Move {
	for _, m := range game.Moves {
		if from.Add(m).InBounds(board.Width, board.Height) {
			return m
		}
	}
	return game.Moves[0]
}

func teleporterLayout(board *game.Board) []game.Position {
	var out []game.Position
	for _, e := range board.Entities {
		if e.Kind == game.Teleporter {
			out = append(out, e.Position)
		}
	}
	return out
}

func sameLayout(a, b []game.Position) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
