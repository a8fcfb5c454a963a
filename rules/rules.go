// Package rules is a local Diamonds engine used for self-play and tests.
// It is not part of the decision core; bots only ever see the boards it
// produces.
package rules

import (
	"fmt"
	"math/rand"

	"github.com/brensch/diamonds/game"
)

// Settings are the engine knobs.
type Settings struct {
	InventoryCapacity int
	TickMillis        int64 // Clock charged per tick
	GameMillis        int64 // Starting clock per agent
	MaxTurns          int   // 0 means the clock alone ends the game
	Spawn             game.SpawnSettings
}

func DefaultSettings() Settings {
	return Settings{
		InventoryCapacity: 5,
		TickMillis:        1000,
		GameMillis:        60000,
		Spawn:             game.DefaultSpawnSettings,
	}
}

const (
	saltBase     = 0xBA5E
	saltPortal   = 0x7E1E
	saltButton   = 0xB077
	teleportPair = "1"
)

// NewGame places one base per agent with the agent standing on it, a
// teleporter pair and a bonus activator, then spawns collectibles.
func NewGame(width, height int, agentIDs []string, rng *rand.Rand, s Settings) (*game.Board, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: dimensions %dx%d", game.ErrInvalidBoard, width, height)
	}
	if need := len(agentIDs) + 3 + s.Spawn.MinimumCollectibles; need > width*height {
		return nil, fmt.Errorf("%w: %dx%d board cannot fit %d objects", game.ErrInvalidBoard, width, height, need)
	}

	b := &game.Board{Width: width, Height: height}
	for i, id := range agentIDs {
		p, _ := b.PickFree(rng, saltBase+uint64(i))
		b.Agents = append(b.Agents, game.AgentState{
			ID:               id,
			Name:             id,
			Position:         p,
			MillisecondsLeft: s.GameMillis,
			Base:             p,
			HasBase:          true,
		})
		b.Entities = append(b.Entities, game.Entity{Kind: game.AgentBase, Position: p})
	}
	for i := 0; i < 2; i++ {
		p, _ := b.PickFree(rng, saltPortal+uint64(i))
		b.Entities = append(b.Entities, game.Entity{Kind: game.Teleporter, Position: p, PairID: teleportPair})
	}
	p, _ := b.PickFree(rng, saltButton)
	b.Entities = append(b.Entities, game.Entity{Kind: game.BonusActivator, Position: p})

	game.ApplySpawnSettings(b, rng, s.Spawn)
	return b, nil
}

// NextState advances the board by one tick.
//
// Agents act in board order. An agent whose clock has run out, that sent no
// move, or whose move is not a unit step onto the board stays where it is.
// Landing on a teleporter relocates the agent to its pair. A collectible is
// picked up only if it fits in the inventory. Reaching its own base banks the
// inventory into the score. Stepping on the bonus activator regenerates every
// collectible and moves the activator.
func NextState(board *game.Board, moves map[string]game.Move, rng *rand.Rand, s Settings) *game.Board {
	next := board.Clone()
	next.Turn++

	pressed := false
	for i := range next.Agents {
		a := &next.Agents[i]
		if a.MillisecondsLeft <= 0 {
			continue
		}
		a.MillisecondsLeft -= s.TickMillis
		if a.MillisecondsLeft < 0 {
			a.MillisecondsLeft = 0
		}

		m, ok := moves[a.ID]
		if !ok || !m.Valid() {
			continue
		}
		dest := a.Position.Add(m)
		if !dest.InBounds(next.Width, next.Height) {
			continue
		}
		a.Position = dest

		if e, ok := next.EntityAt(dest); ok && e.Kind == game.Teleporter {
			if pair, ok := next.PairOf(e); ok {
				a.Position = pair.Position
			}
		}

		if collect(next, a, s.InventoryCapacity) {
			continue
		}
		if a.HasBase && a.Position == a.Base {
			a.Score += a.Inventory
			a.Inventory = 0
		}
		if e, ok := next.EntityAt(a.Position); ok && e.Kind == game.BonusActivator {
			pressed = true
		}
	}

	if pressed {
		game.RegenerateCollectibles(next, rng, s.Spawn)
		moveActivator(next, rng)
		return next
	}
	game.ApplySpawnSettings(next, rng, s.Spawn)
	return next
}

// collect picks up the collectible under a, if any and if it fits.
func collect(b *game.Board, a *game.AgentState, capacity int) bool {
	for i, e := range b.Entities {
		if e.Kind != game.Collectible || e.Position != a.Position {
			continue
		}
		if a.Inventory+e.Value > capacity {
			return false
		}
		a.Inventory += e.Value
		b.Entities = append(b.Entities[:i], b.Entities[i+1:]...)
		return true
	}
	return false
}

func moveActivator(b *game.Board, rng *rand.Rand) {
	for i, e := range b.Entities {
		if e.Kind != game.BonusActivator {
			continue
		}
		if p, ok := b.PickFree(rng, saltButton); ok {
			b.Entities[i].Position = p
		}
	}
}

// IsGameOver reports whether every clock has run out or the turn limit is hit.
func IsGameOver(board *game.Board, s Settings) bool {
	if s.MaxTurns > 0 && board.Turn >= s.MaxTurns {
		return true
	}
	for _, a := range board.Agents {
		if a.MillisecondsLeft > 0 {
			return false
		}
	}
	return true
}

// Winner returns the agent with the highest score. ok is false on a tie or
// an empty board.
func Winner(board *game.Board) (id string, ok bool) {
	best := -1
	for _, a := range board.Agents {
		switch {
		case a.Score > best:
			id, best, ok = a.ID, a.Score, true
		case a.Score == best:
			ok = false
		}
	}
	return id, ok
}
