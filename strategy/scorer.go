package strategy

import (
	"github.com/brensch/diamonds/game"
)

// Mode carries the per-agent context the scorer needs.
type Mode struct {
	// IgnoreHighValue zeroes value-2 collectibles once the bot can no longer carry them.
	IgnoreHighValue bool
	// Forage enables the time-pressure term.
	Forage           bool
	MillisecondsLeft int64
	Base             game.Position
	HasBase          bool
}

// ModeFor builds the scoring mode for agent. Without a base of its own the
// agent falls back to the first base on the board.
func ModeFor(t Tuning, board *game.Board, agent game.AgentState, forage bool) Mode {
	m := Mode{
		IgnoreHighValue:  agent.Inventory >= t.IgnoreHighValueAt,
		Forage:           forage,
		MillisecondsLeft: agent.MillisecondsLeft,
		Base:             agent.Base,
		HasBase:          agent.HasBase,
	}
	if !m.HasBase && board != nil {
		m.Base, m.HasBase = board.SharedBase()
	}
	return m
}

// Scorer ranks cells. Lower scores are more attractive.
type Scorer struct {
	Tuning Tuning
}

func NewScorer(t Tuning) Scorer {
	return Scorer{Tuning: t}
}

// Score combines the teleporter-aware distance from `from` to `to` with the
// value of whatever sits on `to`, the density of value around it and, while
// foraging, a penalty that grows as the clock runs down. An empty board
// scores the distance alone.
func (s Scorer) Score(board *game.Board, from, to game.Position, mode Mode) float64 {
	dist := Distance(board, from, to)
	score := float64(dist)
	if board == nil || len(board.Entities) == 0 {
		return score
	}

	if e, ok := board.EntityAt(to); ok {
		score -= s.Weight(board, e, mode)
	}

	score -= s.Tuning.DensityScale * s.density(board, to, mode)

	if mode.Forage && mode.MillisecondsLeft > 0 {
		score += s.Tuning.TimePenaltyScale * float64(dist) * (1000 / float64(mode.MillisecondsLeft))
	}
	return score
}

// Weight is the value of reaching e. Non-collectible, non-bonus entities weigh nothing.
func (s Scorer) Weight(board *game.Board, e game.Entity, mode Mode) float64 {
	switch e.Kind {
	case game.Collectible:
		if e.HighValue() {
			if mode.IgnoreHighValue {
				return 0
			}
			return s.Tuning.HighValueWeight
		}
		return s.Tuning.LowValueWeight
	case game.BonusActivator:
		if mode.HasBase && s.baseStarved(board, mode.Base) {
			return s.Tuning.BonusStarvedWeight
		}
		return s.Tuning.BonusWeight
	default:
		return 0
	}
}

// baseStarved reports whether few high-value collectibles remain near base,
// which is when regenerating the board pays off.
func (s Scorer) baseStarved(board *game.Board, base game.Position) bool {
	n := 0
	for _, e := range board.Entities {
		if e.HighValue() && e.Position.Manhattan(base) <= s.Tuning.StarvedRadius {
			n++
		}
	}
	return n <= s.Tuning.StarvedMaxHighValue
}

// density sums collectible weights around p, including p itself.
func (s Scorer) density(board *game.Board, p game.Position, mode Mode) float64 {
	total := 0.0
	for _, e := range board.Entities {
		if e.Kind == game.Collectible && s.Tuning.DensityMetric.within(e.Position, p, s.Tuning.DensityRadius) {
			total += s.Weight(board, e, mode)
		}
	}
	return total
}
