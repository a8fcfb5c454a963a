// Package selfplay runs whole games between independent bots on the local
// rules engine and records them as archive rows.
package selfplay

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/brensch/diamonds/game"
	"github.com/brensch/diamonds/rules"
	"github.com/brensch/diamonds/store"
	"github.com/brensch/diamonds/strategy"
	"github.com/google/uuid"
)

type GameResult struct {
	WinnerID string
	Turns    int
	Scores   map[string]int
}

// InProgressGame is a resumable snapshot of an unfinished game. Bot goal
// caches are not saved; resumed bots simply pick fresh objectives.
type InProgressGame struct {
	GameID   string                 `json:"game_id"`
	Board    *game.Board            `json:"board"`
	Rows     []store.ArchiveTurnRow `json:"rows"`
	RNGSeed  int64                  `json:"rng_seed"`
	PausedAt int                    `json:"paused_at"`
}

type Outcome struct {
	Completed  bool
	Rows       []store.ArchiveTurnRow
	Result     GameResult
	Checkpoint *InProgressGame
}

type Options struct {
	Width    int
	Height   int
	Agents   int
	Settings rules.Settings
	Tuning   strategy.Tuning
	Seed     int64  // 0 picks one from the clock
	Source   string // Written to every row
	Trace    bool   // Store full decision traces as JSON
	Verbose  bool   // Print the board every turn
	Resume   *InProgressGame
	OnTurn   func(turn int)
}

// DefaultOptions is a two-bot game on the public engine's 15x15 board.
func DefaultOptions() Options {
	return Options{
		Width:    15,
		Height:   15,
		Agents:   2,
		Settings: rules.DefaultSettings(),
		Tuning:   strategy.DefaultTuning(),
		Source:   "selfplay",
	}
}

// traceEntry is the JSON form of one agent's decision.
type traceEntry struct {
	Phase    string          `json:"phase"`
	Reason   string          `json:"reason"`
	Target   *game.Position  `json:"target,omitempty"`
	Route    []game.Position `json:"route,omitempty"`
	Move     string          `json:"move"`
	Fallback bool            `json:"fallback"`
}

// PlayGame plays one game to completion. When ctx is cancelled the game is
// returned unfinished with a checkpoint that can be passed back as Resume.
func PlayGame(ctx context.Context, opts Options) (Outcome, error) {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	var (
		gameID string
		board  *game.Board
		rows   = make([]store.ArchiveTurnRow, 0, 128)
	)
	if r := opts.Resume; r != nil && r.Board != nil && r.GameID != "" {
		gameID = r.GameID
		board = r.Board.Clone()
		if r.RNGSeed != 0 {
			seed = r.RNGSeed
		}
		rows = append(rows, r.Rows...)
	} else {
		ids := make([]string, opts.Agents)
		for i := range ids {
			ids[i] = fmt.Sprintf("bot%d", i+1)
		}
		var err error
		board, err = rules.NewGame(opts.Width, opts.Height, ids, rand.New(rand.NewSource(seed)), opts.Settings)
		if err != nil {
			return Outcome{}, fmt.Errorf("new game: %w", err)
		}
		gameID = uuid.NewString()
	}
	rng := rand.New(rand.NewSource(seed + int64(board.Turn)))

	bots := make(map[string]*strategy.Bot, len(board.Agents))
	for _, a := range board.Agents {
		bots[a.ID] = strategy.NewBot(opts.Tuning)
	}

	for !rules.IsGameOver(board, opts.Settings) {
		select {
		case <-ctx.Done():
			return Outcome{
				Result: result(board),
				Checkpoint: &InProgressGame{
					GameID:   gameID,
					Board:    board.Clone(),
					Rows:     append([]store.ArchiveTurnRow(nil), rows...),
					RNGSeed:  rng.Int63(),
					PausedAt: board.Turn,
				},
			}, nil
		default:
		}

		if opts.Verbose {
			PrintBoard(board)
		}

		decisions := decideAll(board, bots)
		row := store.RowFromBoard(gameID, opts.Source, board)
		moves := make(map[string]game.Move, len(decisions))
		trace := make(map[string]traceEntry, len(decisions))
		for i, a := range board.Agents {
			d, ok := decisions[a.ID]
			if !ok {
				continue
			}
			moves[a.ID] = d.Move
			fillAgent(&row.Agents[i], d)
			if opts.Trace {
				trace[a.ID] = toTrace(d)
			}
		}
		if opts.Trace {
			raw, err := json.Marshal(trace)
			if err != nil {
				return Outcome{}, fmt.Errorf("encode trace: %w", err)
			}
			row.TraceJSON = raw
		}
		rows = append(rows, row)

		board = rules.NextState(board, moves, rng, opts.Settings)
		if opts.OnTurn != nil {
			opts.OnTurn(board.Turn)
		}
	}

	rows = append(rows, store.RowFromBoard(gameID, opts.Source, board))
	if opts.Verbose {
		PrintBoard(board)
	}
	return Outcome{Completed: true, Rows: rows, Result: result(board)}, nil
}

// decideAll asks every agent that still has time for its move. Each bot is
// only touched by its own goroutine and the board is read-only.
func decideAll(board *game.Board, bots map[string]*strategy.Bot) map[string]strategy.Decision {
	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		out = make(map[string]strategy.Decision, len(board.Agents))
	)
	for _, a := range board.Agents {
		if a.MillisecondsLeft <= 0 {
			continue
		}
		bot := bots[a.ID]
		if bot == nil {
			continue
		}
		wg.Add(1)
		go func(a game.AgentState, bot *strategy.Bot) {
			defer wg.Done()
			d := bot.DecideTrace(board, a)
			mu.Lock()
			out[a.ID] = d
			mu.Unlock()
		}(a, bot)
	}
	wg.Wait()
	return out
}

func fillAgent(dst *store.ArchiveAgent, d strategy.Decision) {
	dst.Move = d.Move.String()
	dst.Phase = d.Phase.String()
	dst.Reason = d.Reason
	dst.HasTarget = d.HasTarget
	dst.TargetX = int32(d.Target.X)
	dst.TargetY = int32(d.Target.Y)
	dst.RouteLen = int32(d.Route.Len())
}

func toTrace(d strategy.Decision) traceEntry {
	t := traceEntry{
		Phase:    d.Phase.String(),
		Reason:   d.Reason,
		Route:    d.Route,
		Move:     d.Move.String(),
		Fallback: d.Fallback,
	}
	if d.HasTarget {
		target := d.Target
		t.Target = &target
	}
	return t
}

func result(board *game.Board) GameResult {
	r := GameResult{Turns: board.Turn, Scores: make(map[string]int, len(board.Agents))}
	for _, a := range board.Agents {
		r.Scores[a.ID] = a.Score
	}
	if id, ok := rules.Winner(board); ok {
		r.WinnerID = id
	}
	return r
}
