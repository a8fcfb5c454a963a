package strategy

import (
	"sort"

	"github.com/brensch/diamonds/game"
)

// Scored is a candidate objective with its heuristic score. Lower is better.
type Scored struct {
	Target   game.Entity
	Score    float64
	Distance int
}

// Selector picks the objective for one tick, preferring dense clusters of
// value over isolated items and clusters near base over distant ones.
type Selector struct {
	Tuning Tuning
	Scorer Scorer
}

func NewSelector(t Tuning) Selector {
	return Selector{Tuning: t, Scorer: NewScorer(t)}
}

type cluster struct {
	members    []game.Entity
	score      float64
	anchor     game.Entity // member nearest the agent
	anchorDist int
}

// better is the total order used to rank clusters: higher score, then a
// closer anchor, then more members, then the anchor's board position.
func (c cluster) better(o cluster) bool {
	if c.score != o.score {
		return c.score > o.score
	}
	if c.anchorDist != o.anchorDist {
		return c.anchorDist < o.anchorDist
	}
	if len(c.members) != len(o.members) {
		return len(c.members) > len(o.members)
	}
	return c.anchor.Position.Less(o.anchor.Position)
}

// Eligible reports whether e is worth chasing with the agent's current inventory.
func (s Selector) Eligible(e game.Entity, agent game.AgentState) bool {
	switch e.Kind {
	case game.Collectible:
		return !(e.HighValue() && agent.Inventory >= s.Tuning.IgnoreHighValueAt)
	case game.BonusActivator:
		return true
	default:
		return false
	}
}

// Candidates returns every eligible collectible and bonus activator in board order.
func (s Selector) Candidates(board *game.Board, agent game.AgentState) []game.Entity {
	var out []game.Entity
	for _, e := range board.Entities {
		if s.Eligible(e, agent) {
			out = append(out, e)
		}
	}
	return out
}

// Select returns the objective for this tick, or false when nothing is worth
// chasing and the caller should head for base.
func (s Selector) Select(board *game.Board, agent game.AgentState) (game.Entity, bool) {
	if board == nil {
		return game.Entity{}, false
	}
	candidates := s.Candidates(board, agent)
	if len(candidates) == 0 {
		return game.Entity{}, false
	}
	mode := ModeFor(s.Tuning, board, agent, true)

	// Bank locally first.
	if mode.HasBase {
		var nearBase []game.Entity
		for _, c := range candidates {
			if c.Position.Manhattan(mode.Base) <= s.Tuning.NearBaseRadius {
				nearBase = append(nearBase, c)
			}
		}
		if best, ok := s.bestCluster(board, agent, nearBase, mode); ok {
			return best.anchor, true
		}
	}

	if best, ok := s.bestCluster(board, agent, candidates, mode); ok {
		return best.anchor, true
	}

	nearest := candidates[0]
	for _, c := range candidates[1:] {
		dc, dn := agent.Position.Manhattan(c.Position), agent.Position.Manhattan(nearest.Position)
		if dc < dn || (dc == dn && c.Position.Less(nearest.Position)) {
			nearest = c
		}
	}
	return nearest, true
}

// Rank scores every candidate from the agent's position, best first.
func (s Selector) Rank(board *game.Board, agent game.AgentState) []Scored {
	if board == nil {
		return nil
	}
	mode := ModeFor(s.Tuning, board, agent, true)
	candidates := s.Candidates(board, agent)
	out := make([]Scored, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, Scored{
			Target:   c,
			Score:    s.Scorer.Score(board, agent.Position, c.Position, mode),
			Distance: Distance(board, agent.Position, c.Position),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score < out[j].Score
		}
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].Target.Position.Less(out[j].Target.Position)
	})
	return out
}

// bestCluster builds the cluster around every candidate and returns the
// winner. ok is false when no cluster carries any value.
func (s Selector) bestCluster(board *game.Board, agent game.AgentState, candidates []game.Entity, mode Mode) (cluster, bool) {
	var best cluster
	found := false
	for _, center := range candidates {
		c := cluster{}
		for _, other := range candidates {
			if s.Tuning.ClusterMetric.within(center.Position, other.Position, s.Tuning.ClusterRadius) {
				c.members = append(c.members, other)
				c.score += s.clusterWeight(board, agent, other, mode)
			}
		}
		c.anchor, c.anchorDist = s.nearest(board, agent, c.members, mode)
		if !found || c.better(best) {
			best, found = c, true
		}
	}
	return best, found && best.score > 0
}

// clusterWeight is the scorer's weight, except that a bonus activator only
// counts at its starved weight within NearBaseRadius of the agent. A distant
// activator would otherwise outbid every reachable cluster.
func (s Selector) clusterWeight(board *game.Board, agent game.AgentState, e game.Entity, mode Mode) float64 {
	if e.Kind == game.BonusActivator && Distance(board, agent.Position, e.Position) > s.Tuning.NearBaseRadius {
		return s.Tuning.BonusWeight
	}
	return s.Scorer.Weight(board, e, mode)
}

// nearest returns the member closest to the agent by teleporter-aware
// distance, breaking ties by score and then board position.
func (s Selector) nearest(board *game.Board, agent game.AgentState, members []game.Entity, mode Mode) (game.Entity, int) {
	var best game.Entity
	bestDist := -1
	bestScore := 0.0
	for _, m := range members {
		d := Distance(board, agent.Position, m.Position)
		sc := s.Scorer.Score(board, agent.Position, m.Position, mode)
		switch {
		case bestDist < 0,
			d < bestDist,
			d == bestDist && sc < bestScore,
			d == bestDist && sc == bestScore && m.Position.Less(best.Position):
			best, bestDist, bestScore = m, d, sc
		}
	}
	return best, bestDist
}
