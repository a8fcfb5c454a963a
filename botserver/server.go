package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/brensch/diamonds/api"
	"github.com/brensch/diamonds/game"
	"github.com/brensch/diamonds/strategy"
)

// candidateLimit caps how many ranked objectives go into a watch event.
const candidateLimit = 5

type botKey struct {
	game string
	bot  string
}

// seat is one bot in one game. The mutex serializes overlapping requests
// for the same bot, since a strategy.Bot is single-owner.
type seat struct {
	mu  sync.Mutex
	bot *strategy.Bot
}

// Server answers engine requests with one independent Bot per (game, bot).
type Server struct {
	tuning   strategy.Tuning
	selector strategy.Selector
	log      *slog.Logger
	hub      *Hub

	mu    sync.Mutex
	seats map[botKey]*seat
}

func NewServer(t strategy.Tuning, logger *slog.Logger, hub *Hub) *Server {
	return &Server{
		tuning:   t,
		selector: strategy.NewSelector(t),
		log:      logger,
		hub:      hub,
		seats:    map[botKey]*seat{},
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/start", s.handleStart)
	mux.HandleFunc("/move", s.handleMove)
	mux.HandleFunc("/end", s.handleEnd)
	mux.Handle("/watch", s.hub)
	return mux
}

// Candidate is a ranked objective in a watch event.
type Candidate struct {
	Kind     string       `json:"kind"`
	Position api.Position `json:"position"`
	Value    int          `json:"value,omitempty"`
	Score    float64      `json:"score"`
	Distance int          `json:"distance"`
}

// WatchEvent is what spectators receive for every move.
type WatchEvent struct {
	GameID     string         `json:"game_id"`
	BotID      string         `json:"bot_id"`
	Turn       int            `json:"turn"`
	Position   api.Position   `json:"position"`
	Inventory  int            `json:"inventory"`
	Phase      string         `json:"phase"`
	Reason     string         `json:"reason"`
	Target     *api.Position  `json:"target,omitempty"`
	Route      []api.Position `json:"route,omitempty"`
	Move       string         `json:"move"`
	Fallback   bool           `json:"fallback"`
	Candidates []Candidate    `json:"candidates,omitempty"`
	Elapsed    string         `json:"elapsed"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, api.InfoResponse{
		APIVersion: "1",
		Author:     "diamonds",
		Name:       "cluster-astar",
		Version:    "1.0.0",
	})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req api.GameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	key := botKey{game: req.GameID, bot: req.BotID}
	s.mu.Lock()
	s.seats[key] = &seat{bot: strategy.NewBot(s.tuning)}
	s.mu.Unlock()

	s.log.Info("game started", "game", req.GameID, "bot", req.BotID)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req api.MoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	board, err := req.Board.ToGame()
	if err != nil {
		s.log.Warn("rejected board", "game", req.GameID, "bot", req.BotID, "err", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	agent, err := req.Agent(board)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, api.ErrUnknownBot) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}

	st := s.seat(botKey{game: req.GameID, bot: req.BotID})
	st.mu.Lock()
	d := st.bot.DecideTrace(board, agent)
	st.mu.Unlock()

	elapsed := time.Since(start)
	s.log.Debug("move",
		"game", req.GameID,
		"bot", req.BotID,
		"turn", board.Turn,
		"at", agent.Position,
		"phase", d.Phase,
		"reason", d.Reason,
		"move", d.Move,
		"fallback", d.Fallback,
		"elapsed", elapsed,
	)

	writeJSON(w, api.NewMoveResponse(d.Move))

	if s.hub.Watching() {
		s.hub.Broadcast(s.watchEvent(req, board, agent, d, elapsed))
	}
}

func (s *Server) handleEnd(w http.ResponseWriter, r *http.Request) {
	var req api.GameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	delete(s.seats, botKey{game: req.GameID, bot: req.BotID})
	s.mu.Unlock()

	attrs := []any{"game", req.GameID, "bot", req.BotID}
	if req.Board != nil {
		if b, err := req.Board.ToGame(); err == nil {
			if a, ok := b.Agent(req.BotID); ok {
				attrs = append(attrs, "score", a.Score)
			}
		}
	}
	s.log.Info("game ended", attrs...)
	w.WriteHeader(http.StatusOK)
}

// seat returns the bot for key, creating it when the engine skipped /start.
func (s *Server) seat(key botKey) *seat {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.seats[key]
	if !ok {
		st = &seat{bot: strategy.NewBot(s.tuning)}
		s.seats[key] = st
	}
	return st
}

// Seats is the number of live bots.
func (s *Server) Seats() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seats)
}

func (s *Server) watchEvent(req api.MoveRequest, board *game.Board, agent game.AgentState, d strategy.Decision, elapsed time.Duration) WatchEvent {
	ev := WatchEvent{
		GameID:    req.GameID,
		BotID:     req.BotID,
		Turn:      board.Turn,
		Position:  wirePos(agent.Position),
		Inventory: agent.Inventory,
		Phase:     d.Phase.String(),
		Reason:    d.Reason,
		Move:      d.Move.String(),
		Fallback:  d.Fallback,
		Elapsed:   elapsed.String(),
	}
	if d.HasTarget {
		t := wirePos(d.Target)
		ev.Target = &t
	}
	for _, p := range d.Route {
		ev.Route = append(ev.Route, wirePos(p))
	}
	for i, c := range s.selector.Rank(board, agent) {
		if i == candidateLimit {
			break
		}
		ev.Candidates = append(ev.Candidates, Candidate{
			Kind:     c.Target.Kind.String(),
			Position: wirePos(c.Target.Position),
			Value:    c.Target.Value,
			Score:    c.Score,
			Distance: c.Distance,
		})
	}
	return ev
}

func wirePos(p game.Position) api.Position {
	return api.Position{X: p.X, Y: p.Y}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
