// Package api holds the Diamonds engine wire types and their conversion to
// and from the game model.
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
)

// ErrUnknownBot is returned when a request names a bot missing from the board.
var ErrUnknownBot = errors.New("unknown bot")

// Engine object type names.
const (
	TypeBot           = "BotGameObject"
	TypeBase          = "BaseGameObject"
	TypeDiamond       = "DiamondGameObject"
	TypeDiamondButton = "DiamondButtonGameObject"
	TypeTeleport      = "TeleportGameObject"
)

type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// ObjectID accepts both numeric and string ids; the engine uses numbers.
type ObjectID string

func (id *ObjectID) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		s, err := strconv.Unquote(string(b))
		if err != nil {
			return err
		}
		*id = ObjectID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ObjectID(n.String())
	return nil
}

type Board struct {
	ID          ObjectID     `json:"id,omitempty"`
	Width       int          `json:"width"`
	Height      int          `json:"height"`
	Turn        int          `json:"turn,omitempty"`
	GameObjects []GameObject `json:"gameObjects"`
}

type GameObject struct {
	ID         ObjectID   `json:"id"`
	Type       string     `json:"type"`
	Position   Position   `json:"position"`
	Properties Properties `json:"properties"`
}

// Properties is the union of every object type's properties.
type Properties struct {
	// Diamonds
	Points int `json:"points,omitempty"`

	// Bots
	BotID            string    `json:"botId,omitempty"`
	Name             string    `json:"name,omitempty"`
	Diamonds         int       `json:"diamonds,omitempty"`
	Score            int       `json:"score,omitempty"`
	InventorySize    int       `json:"inventorySize,omitempty"`
	MillisecondsLeft int64     `json:"millisecondsLeft,omitempty"`
	Base             *Position `json:"base,omitempty"`

	// Teleporters
	PairID ObjectID `json:"pairId,omitempty"`
}

// MoveRequest asks for one step of BotID on Board.
type MoveRequest struct {
	GameID string `json:"game_id"`
	BotID  string `json:"bot_id"`
	Board  Board  `json:"board"`
}

type Delta struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// MoveResponse carries the step both as a direction name and as a delta.
type MoveResponse struct {
	Direction string `json:"direction"`
	Delta     Delta  `json:"delta"`
}

// GameRequest is the body of /start and /end.
type GameRequest struct {
	GameID string `json:"game_id"`
	BotID  string `json:"bot_id"`
	Board  *Board `json:"board,omitempty"`
}

type InfoResponse struct {
	APIVersion string `json:"apiversion"`
	Author     string `json:"author"`
	Name       string `json:"name"`
	Version    string `json:"version"`
}
