package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/brensch/diamonds/selfplay"
	"github.com/brensch/diamonds/store"
	"github.com/brensch/diamonds/strategy"
	tea "github.com/charmbracelet/bubbletea"
)

var totalTurns atomic.Int64
var totalGames atomic.Int64

type GameUpdate struct {
	WorkerID int
	Result   selfplay.GameResult
	Rows     int
}

type model struct {
	gamesPlayed int
	totalRows   int
	turns       int64
	startTime   time.Time
	recentGames []string
	updates     chan GameUpdate
}

func initialModel(updates chan GameUpdate) model {
	return model{
		startTime: time.Now(),
		updates:   updates,
	}
}

type TickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*100, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (m model) Init() tea.Cmd {
	return tea.Batch(waitForUpdate(m.updates), tickCmd())
}

func waitForUpdate(updates chan GameUpdate) tea.Cmd {
	return func() tea.Msg {
		return <-updates
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case TickMsg:
		m.turns = totalTurns.Load()
		return m, tickCmd()
	case GameUpdate:
		m.gamesPlayed++
		m.totalRows += msg.Rows
		m.recentGames = append([]string{describe(msg)}, m.recentGames...)
		if len(m.recentGames) > 10 {
			m.recentGames = m.recentGames[:10]
		}
		return m, waitForUpdate(m.updates)
	}
	return m, nil
}

func (m model) View() string {
	duration := time.Since(m.startTime)
	gamesPerSec := float64(m.gamesPlayed) / duration.Seconds()
	turnsPerSec := float64(m.turns) / duration.Seconds()
	if duration.Seconds() < 1 {
		gamesPerSec = 0
		turnsPerSec = 0
	}

	s := fmt.Sprintf("Games Played: %d\n", m.gamesPlayed)
	s += fmt.Sprintf("Rows Written: %d\n", m.totalRows)
	s += fmt.Sprintf("Total Turns:  %d\n", m.turns)
	s += fmt.Sprintf("Duration:     %s\n", duration.Round(time.Second))
	s += fmt.Sprintf("Games/Sec:    %.2f\n", gamesPerSec)
	s += fmt.Sprintf("Turns/Sec:    %.2f\n\n", turnsPerSec)

	s += "Recent Games:\n"
	for _, g := range m.recentGames {
		s += g + "\n"
	}

	s += "\nPress q to quit.\n"
	return s
}

func describe(u GameUpdate) string {
	winner := u.Result.WinnerID
	if winner == "" {
		winner = "tie"
	}
	return fmt.Sprintf("Worker %d: Winner %s, Turns %d, Scores %v", u.WorkerID, winner, u.Result.Turns, u.Result.Scores)
}

func main() {
	outDir := flag.String("out-dir", getEnvOrDefault("DIAMONDS_OUT_DIR", "data/selfplay"), "Output directory for archived parquet batches")
	checkpointDir := flag.String("checkpoint-dir", getEnvOrDefault("DIAMONDS_CHECKPOINT_DIR", ""), "Where unfinished games are saved on shutdown (default <out-dir>/checkpoints)")
	workers := flag.Int("workers", getEnvIntOrDefault("DIAMONDS_WORKERS", runtime.NumCPU()), "Number of self-play workers")
	gamesPerFlush := flag.Int("games-per-flush", getEnvIntOrDefault("DIAMONDS_GAMES_PER_FLUSH", 50), "Number of games per parquet file")
	maxGames := flag.Int64("max-games", int64(getEnvIntOrDefault("DIAMONDS_MAX_GAMES", 0)), "If > 0, stop after this many games (across all workers)")
	width := flag.Int("width", getEnvIntOrDefault("DIAMONDS_WIDTH", 15), "Board width")
	height := flag.Int("height", getEnvIntOrDefault("DIAMONDS_HEIGHT", 15), "Board height")
	agents := flag.Int("agents", getEnvIntOrDefault("DIAMONDS_AGENTS", 2), "Bots per game")
	gameLength := flag.Duration("game-length", getEnvDurationOrDefault("DIAMONDS_GAME_LENGTH", time.Minute), "Clock each bot starts with")
	tuningPath := flag.String("tuning", getEnvOrDefault("DIAMONDS_TUNING", ""), "Optional YAML file overriding the strategy tuning")
	trace := flag.Bool("trace", getEnvBoolOrDefault("DIAMONDS_TRACE", false), "Store decision traces in every row")
	useTUI := flag.Bool("tui", getEnvBoolOrDefault("DIAMONDS_TUI", false), "Show a live progress view instead of log lines")
	flag.Parse()

	if *checkpointDir == "" {
		*checkpointDir = filepath.Join(*outDir, "checkpoints")
	}

	base := selfplay.DefaultOptions()
	base.Width, base.Height, base.Agents = *width, *height, *agents
	base.Settings.GameMillis = gameLength.Milliseconds()
	base.Trace = *trace
	if *tuningPath != "" {
		t, err := strategy.LoadTuning(*tuningPath)
		if err != nil {
			log.Fatalf("load tuning: %v", err)
		}
		base.Tuning = t
	}
	base.Settings.InventoryCapacity = base.Tuning.InventoryCapacity

	resumes, err := selfplay.TakeCheckpoints(*checkpointDir)
	if err != nil {
		log.Fatalf("load checkpoints: %v", err)
	}
	if len(resumes) > 0 {
		log.Printf("Resuming %d checkpointed games", len(resumes))
	}
	resumeCh := make(chan *selfplay.InProgressGame, len(resumes))
	for _, g := range resumes {
		resumeCh <- g
	}
	close(resumeCh)

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	// The TUI owns the terminal, so logs go to a file while it runs.
	if *useTUI {
		if err := os.MkdirAll(*outDir, 0o755); err != nil {
			log.Fatalf("create out dir: %v", err)
		}
		f, err := os.OpenFile(filepath.Join(*outDir, "selfplay.log"), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
		if err != nil {
			log.Fatalf("error opening log file: %v", err)
		}
		defer f.Close()
		log.SetOutput(f)
	}

	log.Printf("Starting self-play with %d workers (%dx%d, %d bots)", *workers, *width, *height, *agents)

	updates := make(chan GameUpdate, *workers)
	writeReqs := make(chan []store.ArchiveTurnRow, (*workers)*4)

	writerDone := make(chan struct{})
	go func() {
		parquetWriterLoop(*outDir, *gamesPerFlush, writeReqs)
		close(writerDone)
	}()

	var workerWG sync.WaitGroup
	for i := 0; i < *workers; i++ {
		workerWG.Add(1)
		go func(workerID int) {
			defer workerWG.Done()
			for {
				select {
				case <-ctx.Done():
					return
				default:
				}

				opts := base
				opts.OnTurn = func(int) { totalTurns.Add(1) }
				if g, ok := <-resumeCh; ok {
					opts.Resume = g
				}

				out, err := selfplay.PlayGame(ctx, opts)
				if err != nil {
					log.Printf("Worker %d: game failed: %v", workerID, err)
					cancel()
					return
				}
				if !out.Completed {
					if out.Checkpoint != nil {
						path, err := selfplay.SaveCheckpoint(*checkpointDir, out.Checkpoint)
						if err != nil {
							log.Printf("Worker %d: checkpoint failed: %v", workerID, err)
						} else {
							log.Printf("Worker %d: saved unfinished game to %s", workerID, path)
						}
					}
					return
				}

				total := totalGames.Add(1)
				if *maxGames > 0 && total >= *maxGames {
					cancel()
				}
				writeReqs <- out.Rows

				select {
				case updates <- GameUpdate{WorkerID: workerID, Result: out.Result, Rows: len(out.Rows)}:
				default:
				}
			}
		}(i)
	}

	if *useTUI {
		p := tea.NewProgram(initialModel(updates), tea.WithAltScreen(), tea.WithContext(ctx))
		if _, err := p.Run(); err != nil && ctx.Err() == nil {
			log.Printf("tui: %v", err)
		}
		cancel()
		shutdown(&workerWG, writeReqs, writerDone)
		return
	}

	startTime := time.Now()
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdown(&workerWG, writeReqs, writerDone)
			return
		case update := <-updates:
			log.Print(describe(update))
		case <-ticker.C:
			duration := time.Since(startTime)
			log.Printf("Stats: games=%d turns/s=%.1f", totalGames.Load(), float64(totalTurns.Load())/duration.Seconds())
		}
	}
}

func shutdown(workers *sync.WaitGroup, writeReqs chan []store.ArchiveTurnRow, writerDone chan struct{}) {
	log.Printf("Shutdown requested; checkpointing games in progress...")
	workers.Wait()
	close(writeReqs)
	<-writerDone
	log.Printf("Shutdown complete: final parquet flush done (games=%d)", totalGames.Load())
}

// parquetWriterLoop streams finished games into one BatchWriter at a time,
// rolling to a new file every gamesPerFlush games.
func parquetWriterLoop(outDir string, gamesPerFlush int, in <-chan []store.ArchiveTurnRow) {
	if gamesPerFlush <= 0 {
		gamesPerFlush = 50
	}

	var w *store.BatchWriter
	finalize := func(label string) {
		if w == nil {
			return
		}
		path, rows, games, err := w.Finalize()
		w = nil
		if err != nil {
			log.Printf("Parquet %s failed: %v", label, err)
			return
		}
		if path != "" {
			log.Printf("Parquet %s ok: %s (games=%d rows=%d)", label, path, games, rows)
		}
	}

	for rows := range in {
		if len(rows) == 0 {
			continue
		}
		if w == nil {
			var err error
			w, err = store.NewBatchWriter(outDir)
			if err != nil {
				log.Printf("Parquet writer: %v", err)
				continue
			}
		}
		if err := w.WriteGame(rows); err != nil {
			log.Printf("Parquet write failed (rows=%d): %v", len(rows), err)
			continue
		}
		if w.Games() >= gamesPerFlush {
			finalize("flush")
		}
	}
	finalize("final flush")
}
