// spawn.go implements collectible spawning for the local rules engine.

package game

import (
	"math/rand"
)

// SpawnSettings controls how collectibles are replenished.
type SpawnSettings struct {
	MinimumCollectibles int // Board is topped up to this many after every tick
	HighValueChance     int // Percentage chance (0–100) that a spawned collectible is worth 2
}

// DefaultSpawnSettings roughly matches the public Diamonds engine (a dozen
// diamonds on a 15x15 board, about one in five red).
var DefaultSpawnSettings = SpawnSettings{MinimumCollectibles: 12, HighValueChance: 20}

// ApplySpawnSettings tops the board up to settings.MinimumCollectibles.
// If rng is nil, placement is a deterministic function of the turn.
func ApplySpawnSettings(board *Board, rng *rand.Rand, settings SpawnSettings) {
	spawnCollectibles(board, rng, settings, 0xD1A30D)
}

// RegenerateCollectibles removes every collectible and spawns a fresh set.
// This is the bonus activator's effect.
func RegenerateCollectibles(board *Board, rng *rand.Rand, settings SpawnSettings) {
	kept := board.Entities[:0]
	for _, e := range board.Entities {
		if e.Kind != Collectible {
			kept = append(kept, e)
		}
	}
	board.Entities = kept
	spawnCollectibles(board, rng, settings, 0xB0705)
}

func spawnCollectibles(board *Board, rng *rand.Rand, settings SpawnSettings, salt uint64) {
	if board == nil || board.Width <= 0 || board.Height <= 0 {
		return
	}

	deficit := settings.MinimumCollectibles - len(board.Collectibles())
	if deficit <= 0 {
		return
	}

	free := board.FreeCells()
	for i := 0; i < deficit && len(free) > 0; i++ {
		var idx, roll int
		if rng != nil {
			idx = rng.Intn(len(free))
			roll = rng.Intn(100)
		} else {
			h := deterministicU64Fast(uint64(board.Turn)<<8|uint64(i), salt)
			idx = int(h % uint64(len(free)))
			roll = int((h >> 32) % 100)
		}
		value := 1
		if roll < settings.HighValueChance {
			value = 2
		}
		board.Entities = append(board.Entities, Entity{Kind: Collectible, Position: free[idx], Value: value})
		free[idx] = free[len(free)-1]
		free = free[:len(free)-1]
	}
}

// FreeCells returns every cell not covered by an entity, an agent or a base,
// in row-major order.
func (b *Board) FreeCells() []Position {
	occupied := make(map[Position]bool, len(b.Entities)+2*len(b.Agents))
	for _, e := range b.Entities {
		occupied[e.Position] = true
	}
	for _, a := range b.Agents {
		occupied[a.Position] = true
		if a.HasBase {
			occupied[a.Base] = true
		}
	}

	free := make([]Position, 0, b.Width*b.Height)
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			p := Position{X: x, Y: y}
			if !occupied[p] {
				free = append(free, p)
			}
		}
	}
	return free
}

// PickFree returns a free cell chosen by rng, or by a hash of turn and salt
// when rng is nil.
func (b *Board) PickFree(rng *rand.Rand, salt uint64) (Position, bool) {
	free := b.FreeCells()
	if len(free) == 0 {
		return Position{}, false
	}
	if rng != nil {
		return free[rng.Intn(len(free))], true
	}
	return free[deterministicU64Fast(uint64(b.Turn), salt)%uint64(len(free))], true
}

// deterministicU64Fast is a simple deterministic hasher for reproducibility.
func deterministicU64Fast(a, b uint64) uint64 {
	// Variant of splitmix64
	x := a + b
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
