// Package game defines the board snapshot types for the Diamonds game.
//
// A Board is decoded once per tick from the engine's wire format and is
// treated as immutable by the decision core. Entities are identified by
// position and kind, never by engine IDs, so a fresh snapshot can be
// compared against the previous one without any identity tracking.
package game

import (
	"errors"
	"fmt"
)

// ErrInvalidBoard is returned by Validate for snapshots the core must not see.
var ErrInvalidBoard = errors.New("invalid board")

// Position is a board coordinate. (0,0) is the top-left cell and Y grows downward.
type Position struct {
	X int
	Y int
}

func (p Position) Add(m Move) Position {
	return Position{X: p.X + m.DX, Y: p.Y + m.DY}
}

// Manhattan returns |dx| + |dy|.
func (p Position) Manhattan(o Position) int {
	return abs(p.X-o.X) + abs(p.Y-o.Y)
}

// Chebyshev returns max(|dx|, |dy|).
func (p Position) Chebyshev(o Position) int {
	dx, dy := abs(p.X-o.X), abs(p.Y-o.Y)
	if dx > dy {
		return dx
	}
	return dy
}

func (p Position) InBounds(width, height int) bool {
	return p.X >= 0 && p.X < width && p.Y >= 0 && p.Y < height
}

// Less orders positions row-major (y, then x). Used wherever a stable tie-break is needed.
func (p Position) Less(o Position) bool {
	if p.Y != o.Y {
		return p.Y < o.Y
	}
	return p.X < o.X
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

type EntityKind int

const (
	Collectible EntityKind = iota
	BonusActivator
	Teleporter
	AgentBase
)

func (k EntityKind) String() string {
	switch k {
	case Collectible:
		return "collectible"
	case BonusActivator:
		return "bonus"
	case Teleporter:
		return "teleporter"
	case AgentBase:
		return "base"
	default:
		return "unknown"
	}
}

// Entity is a tagged board object.
// Value is only meaningful for collectibles (1 or 2) and PairID only for teleporters.
type Entity struct {
	Kind     EntityKind
	Position Position
	Value    int
	PairID   string
}

// Same reports whether two entities describe the same board object.
func (e Entity) Same(o Entity) bool {
	return e.Kind == o.Kind && e.Position == o.Position && e.Value == o.Value
}

func (e Entity) HighValue() bool {
	return e.Kind == Collectible && e.Value >= 2
}

// AgentState is one bot as seen in a snapshot.
// HasBase is false when the engine did not report a base for this bot.
type AgentState struct {
	ID               string
	Name             string
	Position         Position
	Inventory        int
	Score            int
	MillisecondsLeft int64
	Base             Position
	HasBase          bool
}

// Board is the complete snapshot needed for one decision.
type Board struct {
	Width    int
	Height   int
	Turn     int
	Entities []Entity
	Agents   []AgentState
}

// Validate rejects snapshots that cannot be reasoned about: non-positive
// dimensions, anything placed off the board, or collectibles with values
// outside {1, 2}.
func (b *Board) Validate() error {
	if b == nil {
		return fmt.Errorf("%w: nil board", ErrInvalidBoard)
	}
	if b.Width <= 0 || b.Height <= 0 {
		return fmt.Errorf("%w: dimensions %dx%d", ErrInvalidBoard, b.Width, b.Height)
	}
	for _, e := range b.Entities {
		if !e.Position.InBounds(b.Width, b.Height) {
			return fmt.Errorf("%w: %s at %s out of bounds", ErrInvalidBoard, e.Kind, e.Position)
		}
		if e.Kind == Collectible && (e.Value < 1 || e.Value > 2) {
			return fmt.Errorf("%w: collectible at %s has value %d", ErrInvalidBoard, e.Position, e.Value)
		}
	}
	for _, a := range b.Agents {
		if !a.Position.InBounds(b.Width, b.Height) {
			return fmt.Errorf("%w: agent %q at %s out of bounds", ErrInvalidBoard, a.ID, a.Position)
		}
		if a.HasBase && !a.Base.InBounds(b.Width, b.Height) {
			return fmt.Errorf("%w: base of agent %q at %s out of bounds", ErrInvalidBoard, a.ID, a.Base)
		}
		if a.Inventory < 0 {
			return fmt.Errorf("%w: agent %q has negative inventory", ErrInvalidBoard, a.ID)
		}
	}
	return nil
}

// Clone performs a deep copy of the board.
func (b *Board) Clone() *Board {
	if b == nil {
		return nil
	}

	out := &Board{
		Width:  b.Width,
		Height: b.Height,
		Turn:   b.Turn,
	}

	if len(b.Entities) > 0 {
		out.Entities = make([]Entity, len(b.Entities))
		copy(out.Entities, b.Entities)
	}

	if len(b.Agents) > 0 {
		out.Agents = make([]AgentState, len(b.Agents))
		copy(out.Agents, b.Agents)
	}

	return out
}

func (b *Board) Agent(id string) (AgentState, bool) {
	for _, a := range b.Agents {
		if a.ID == id {
			return a, true
		}
	}
	return AgentState{}, false
}

// SharedBase returns the base of the first agent that has one.
func (b *Board) SharedBase() (Position, bool) {
	for _, a := range b.Agents {
		if a.HasBase {
			return a.Base, true
		}
	}
	return Position{}, false
}

// EntityAt returns the first non-base entity on p. Bases share cells with
// bots and never carry a weight, so they are skipped.
func (b *Board) EntityAt(p Position) (Entity, bool) {
	for _, e := range b.Entities {
		if e.Position == p && e.Kind != AgentBase {
			return e, true
		}
	}
	return Entity{}, false
}

// Has reports whether e is still on the board at its last known position.
func (b *Board) Has(e Entity) bool {
	for _, o := range b.Entities {
		if o.Same(e) {
			return true
		}
	}
	return false
}

func (b *Board) ofKind(kind EntityKind) []Entity {
	var out []Entity
	for _, e := range b.Entities {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func (b *Board) Collectibles() []Entity { return b.ofKind(Collectible) }
func (b *Board) Bonuses() []Entity      { return b.ofKind(BonusActivator) }
func (b *Board) Teleporters() []Entity  { return b.ofKind(Teleporter) }

// PairOf returns the teleporter that t sends a bot to. Teleporters sharing a
// PairID are paired; without IDs the first other teleporter is used.
func (b *Board) PairOf(t Entity) (Entity, bool) {
	var fallback *Entity
	for i := range b.Entities {
		o := b.Entities[i]
		if o.Kind != Teleporter || o.Position == t.Position {
			continue
		}
		if t.PairID != "" && o.PairID == t.PairID {
			return o, true
		}
		if fallback == nil {
			fallback = &b.Entities[i]
		}
	}
	if fallback == nil {
		return Entity{}, false
	}
	return *fallback, true
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
