// visualize.go - Console rendering for watching self-play games.
package selfplay

import (
	"fmt"
	"log"
	"strings"

	"github.com/brensch/diamonds/game"
)

// RenderBoard draws the board top row first, since Y grows downward.
//
//	1 2  collectibles by value   ! bonus activator   T teleporter
//	B    base                    a-z agents (upper case when standing on base)
func RenderBoard(b *game.Board) string {
	grid := make([][]byte, b.Height)
	for y := range grid {
		grid[y] = []byte(strings.Repeat(".", b.Width))
	}
	put := func(p game.Position, c byte) {
		if p.InBounds(b.Width, b.Height) {
			grid[p.Y][p.X] = c
		}
	}

	for _, e := range b.Entities {
		switch e.Kind {
		case game.Collectible:
			put(e.Position, byte('0'+e.Value))
		case game.BonusActivator:
			put(e.Position, '!')
		case game.Teleporter:
			put(e.Position, 'T')
		case game.AgentBase:
			put(e.Position, 'B')
		}
	}
	for i, a := range b.Agents {
		c := byte('a' + i%26)
		if a.HasBase && a.Position == a.Base {
			c -= 'a' - 'A'
		}
		put(a.Position, c)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "=== Turn %d ===\n", b.Turn)
	for _, row := range grid {
		sb.Write(row)
		sb.WriteByte('\n')
	}
	for i, a := range b.Agents {
		fmt.Fprintf(&sb, "%c %-10s inv=%d score=%d time=%.1fs\n",
			byte('a'+i%26), a.ID, a.Inventory, a.Score, float64(a.MillisecondsLeft)/1000)
	}
	return sb.String()
}

func PrintBoard(b *game.Board) {
	log.Print("\n" + RenderBoard(b))
}
