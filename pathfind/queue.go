package pathfind

import (
	"github.com/brensch/diamonds/game"
)

// frontierItem is a single open-set entry.
// seq is the insertion counter; it makes equal priorities pop in FIFO order.
type frontierItem struct {
	pos      game.Position
	g        int
	priority int
	seq      int
}

// frontier implements container/heap ordered by (priority, seq).
type frontier []frontierItem

func (f frontier) Len() int { return len(f) }

func (f frontier) Less(i, j int) bool {
	if f[i].priority != f[j].priority {
		return f[i].priority < f[j].priority
	}
	return f[i].seq < f[j].seq
}

func (f frontier) Swap(i, j int) { f[i], f[j] = f[j], f[i] }

func (f *frontier) Push(x any) { *f = append(*f, x.(frontierItem)) }

func (f *frontier) Pop() any {
	old := *f
	n := len(old)
	item := old[n-1]
	*f = old[:n-1]
	return item
}
