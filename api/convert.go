package api

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/brensch/diamonds/game"
)

// Decode parses engine board JSON straight into a validated game board.
func Decode(raw []byte) (*game.Board, error) {
	var b Board
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, fmt.Errorf("decode board: %w", err)
	}
	return b.ToGame()
}

// agentID is the identity used for a bot: its botId, else its name, else its object id.
func agentID(o GameObject) string {
	switch {
	case o.Properties.BotID != "":
		return o.Properties.BotID
	case o.Properties.Name != "":
		return o.Properties.Name
	default:
		return string(o.ID)
	}
}

// ToGame resolves every object's kind once and validates the result.
// Unknown object types (walls, future features) are skipped.
func (b Board) ToGame() (*game.Board, error) {
	out := &game.Board{Width: b.Width, Height: b.Height, Turn: b.Turn}

	basesByName := map[string]game.Position{}
	for _, o := range b.GameObjects {
		p := game.Position{X: o.Position.X, Y: o.Position.Y}
		switch o.Type {
		case TypeDiamond:
			value := o.Properties.Points
			if value == 0 {
				value = 1
			}
			out.Entities = append(out.Entities, game.Entity{Kind: game.Collectible, Position: p, Value: value})
		case TypeDiamondButton:
			out.Entities = append(out.Entities, game.Entity{Kind: game.BonusActivator, Position: p})
		case TypeTeleport:
			out.Entities = append(out.Entities, game.Entity{Kind: game.Teleporter, Position: p, PairID: string(o.Properties.PairID)})
		case TypeBase:
			out.Entities = append(out.Entities, game.Entity{Kind: game.AgentBase, Position: p})
			if o.Properties.Name != "" {
				basesByName[o.Properties.Name] = p
			}
		case TypeBot:
			a := game.AgentState{
				ID:               agentID(o),
				Name:             o.Properties.Name,
				Position:         p,
				Inventory:        o.Properties.Diamonds,
				Score:            o.Properties.Score,
				MillisecondsLeft: o.Properties.MillisecondsLeft,
			}
			if o.Properties.Base != nil {
				a.Base = game.Position{X: o.Properties.Base.X, Y: o.Properties.Base.Y}
				a.HasBase = true
			}
			out.Agents = append(out.Agents, a)
		}
	}

	// Bots without an inline base pick up the base object carrying their name.
	for i := range out.Agents {
		a := &out.Agents[i]
		if a.HasBase {
			continue
		}
		if p, ok := basesByName[a.Name]; ok && a.Name != "" {
			a.Base, a.HasBase = p, true
		}
	}

	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

// FromGame renders a board in the engine's format. Object ids are assigned
// sequentially.
func FromGame(b *game.Board) Board {
	out := Board{Width: b.Width, Height: b.Height, Turn: b.Turn}
	next := 0
	id := func() ObjectID {
		next++
		return ObjectID(fmt.Sprint(next))
	}

	for _, e := range b.Entities {
		o := GameObject{ID: id(), Position: Position{X: e.Position.X, Y: e.Position.Y}}
		switch e.Kind {
		case game.Collectible:
			o.Type = TypeDiamond
			o.Properties.Points = e.Value
		case game.BonusActivator:
			o.Type = TypeDiamondButton
		case game.Teleporter:
			o.Type = TypeTeleport
			o.Properties.PairID = ObjectID(e.PairID)
		case game.AgentBase:
			// Written per agent below so the base carries its owner's name.
			continue
		}
		out.GameObjects = append(out.GameObjects, o)
	}
	for _, a := range b.Agents {
		o := GameObject{
			ID:       id(),
			Type:     TypeBot,
			Position: Position{X: a.Position.X, Y: a.Position.Y},
			Properties: Properties{
				BotID:            a.ID,
				Name:             a.Name,
				Diamonds:         a.Inventory,
				Score:            a.Score,
				MillisecondsLeft: a.MillisecondsLeft,
			},
		}
		if a.HasBase {
			o.Properties.Base = &Position{X: a.Base.X, Y: a.Base.Y}
			out.GameObjects = append(out.GameObjects, GameObject{
				ID:         id(),
				Type:       TypeBase,
				Position:   *o.Properties.Base,
				Properties: Properties{Name: a.Name},
			})
		}
		out.GameObjects = append(out.GameObjects, o)
	}
	return out
}

// Agent finds the requesting bot on the decoded board.
func (r MoveRequest) Agent(b *game.Board) (game.AgentState, error) {
	if a, ok := b.Agent(r.BotID); ok {
		return a, nil
	}
	return game.AgentState{}, fmt.Errorf("%w: %q", ErrUnknownBot, r.BotID)
}

// NewMoveResponse encodes m for the wire.
func NewMoveResponse(m game.Move) MoveResponse {
	return MoveResponse{Direction: m.String(), Delta: Delta{X: m.DX, Y: m.DY}}
}

// Move decodes a response, preferring the delta and falling back to the direction.
func (r MoveResponse) Move() (game.Move, error) {
	if m := (game.Move{DX: r.Delta.X, DY: r.Delta.Y}); m.Valid() {
		return m, nil
	}
	if m, ok := game.ParseMove(strings.ToUpper(r.Direction)); ok {
		return m, nil
	}
	return game.Move{}, fmt.Errorf("invalid move response %+v", r)
}
