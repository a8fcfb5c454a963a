package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/brensch/diamonds/selfplay"
	"github.com/brensch/diamonds/store"
	"github.com/brensch/diamonds/strategy"
)

func main() {
	outDir := flag.String("out-dir", filepath.Join("debug_games"), "Output directory for debug games")
	seed := flag.Int64("seed", 0, "Game seed (0 picks one from the clock)")
	width := flag.Int("width", 15, "Board width")
	height := flag.Int("height", 15, "Board height")
	agents := flag.Int("agents", 2, "Bots in the game")
	gameLength := flag.Duration("game-length", time.Minute, "Clock each bot starts with")
	tuningPath := flag.String("tuning", "", "Optional YAML file overriding the strategy tuning")
	quiet := flag.Bool("quiet", false, "Only print the final board")
	archiveDir := flag.String("archive-dir", "", "Also add the game as a batch file in this archive directory")
	flag.Parse()

	opts := selfplay.DefaultOptions()
	opts.Width, opts.Height, opts.Agents = *width, *height, *agents
	opts.Seed = *seed
	opts.Settings.GameMillis = gameLength.Milliseconds()
	opts.Source = "debug"
	opts.Trace = true
	opts.Verbose = !*quiet
	if *tuningPath != "" {
		t, err := strategy.LoadTuning(*tuningPath)
		if err != nil {
			log.Fatalf("Failed to load tuning: %v", err)
		}
		opts.Tuning = t
	}
	opts.Settings.InventoryCapacity = opts.Tuning.InventoryCapacity

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	log.Printf("Generating debug game %dx%d with %d bots", *width, *height, *agents)
	out, err := selfplay.PlayGame(ctx, opts)
	if err != nil {
		log.Fatalf("Failed to play debug game: %v", err)
	}
	if !out.Completed {
		log.Fatalf("Debug game did not finish: %v", ctx.Err())
	}

	last := out.Rows[len(out.Rows)-1]
	if final, err := last.Board(); err == nil && *quiet {
		selfplay.PrintBoard(final)
	}
	winner := out.Result.WinnerID
	if winner == "" {
		winner = "tie"
	}
	log.Printf("Game complete: %d turns, winner: %s, scores: %v", out.Result.Turns, winner, out.Result.Scores)

	parquetPath := filepath.Join(*outDir, fmt.Sprintf("%s.parquet", last.GameID))
	if err := store.WriteArchiveParquet(parquetPath, out.Rows); err != nil {
		log.Fatalf("Failed to write debug game: %v", err)
	}
	log.Printf("Debug game written to: %s (%d rows)", parquetPath, len(out.Rows))

	if *archiveDir != "" {
		batchPath, err := store.WriteArchiveBatchParquetAtomic(*archiveDir, out.Rows)
		if err != nil {
			log.Fatalf("Failed to archive debug game: %v", err)
		}
		log.Printf("Debug game archived to: %s", batchPath)
	}
}
