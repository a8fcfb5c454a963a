package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/brensch/diamonds/selfplay"
	"github.com/brensch/diamonds/store"
	"github.com/parquet-go/parquet-go"
)

func main() {
	inDir := flag.String("in-dir", "", "Directory containing archive parquet shards")
	outDir := flag.String("out-dir", "", "Output directory for per-agent summary shards (optional)")
	showGame := flag.String("game", "", "Render one game's board at -turn instead of summarizing")
	showTurn := flag.Int("turn", 0, "Turn to render with -game")
	flag.Parse()

	if *inDir == "" {
		fmt.Fprintln(os.Stderr, "-in-dir is required")
		os.Exit(2)
	}
	absIn, _ := filepath.Abs(*inDir)

	inputs := findShards(absIn)
	if len(inputs) == 0 {
		fmt.Fprintln(os.Stderr, "no parquet inputs found")
		os.Exit(1)
	}

	if *showGame != "" {
		if err := render(inputs, *showGame, int32(*showTurn), os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "render: %v\n", err)
			os.Exit(1)
		}
		return
	}

	var all []store.AgentSummaryRow
	for _, inPath := range inputs {
		rows, err := readShard(inPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "read %s: %v\n", inPath, err)
			continue
		}
		summary := store.SummarizeGames(rows)
		all = append(all, summary...)

		if *outDir != "" {
			base := filepath.Base(inPath)
			outPath := filepath.Join(*outDir, strings.TrimSuffix(base, filepath.Ext(base))+".summary.parquet")
			if err := store.WriteSummaryParquet(outPath, summary); err != nil {
				fmt.Fprintf(os.Stderr, "write %s: %v\n", outPath, err)
			}
		}
	}

	report(all, os.Stdout)
}

// findShards lists archive shards under dir, skipping in-flight and derived outputs.
func findShards(dir string) []string {
	inputs := make([]string, 0, 64)
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if d.Name() == "tmp" || d.Name() == "checkpoints" {
				return filepath.SkipDir
			}
			return nil
		}
		name := strings.ToLower(d.Name())
		if strings.HasSuffix(name, ".parquet") && !strings.HasSuffix(name, ".summary.parquet") {
			inputs = append(inputs, path)
		}
		return nil
	})
	sort.Strings(inputs)
	return inputs
}

func readShard(path string) ([]store.ArchiveTurnRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := parquet.NewGenericReader[store.ArchiveTurnRow](f)
	defer reader.Close()

	var out []store.ArchiveTurnRow
	buf := make([]store.ArchiveTurnRow, 256)
	for {
		n, err := reader.Read(buf)
		out = append(out, buf[:n]...)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return nil, err
		}
	}
}

func render(inputs []string, gameID string, turn int32, w io.Writer) error {
	for _, path := range inputs {
		rows, err := readShard(path)
		if err != nil {
			return err
		}
		for _, r := range rows {
			if r.GameID != gameID || r.Turn != turn {
				continue
			}
			b, err := r.Board()
			if err != nil {
				return err
			}
			fmt.Fprint(w, selfplay.RenderBoard(b))
			for _, a := range r.Agents {
				if a.Move != "" {
					fmt.Fprintf(w, "%s: %s %s (%s)\n", a.ID, a.Move, a.Phase, a.Reason)
				}
			}
			return nil
		}
	}
	return fmt.Errorf("game %s turn %d not found", gameID, turn)
}

type agentTotals struct {
	games, wins      int
	score, collected int
	reasons          map[string]int
}

func report(rows []store.AgentSummaryRow, w io.Writer) {
	totals := map[string]*agentTotals{}
	games := map[string]bool{}
	for _, r := range rows {
		games[r.GameID] = true
		t, ok := totals[r.AgentID]
		if !ok {
			t = &agentTotals{reasons: map[string]int{}}
			totals[r.AgentID] = t
		}
		t.games++
		t.score += int(r.Score)
		t.collected += int(r.Collected)
		if r.Won {
			t.wins++
		}
		for _, reason := range r.ReturnReasons {
			t.reasons[reason]++
		}
	}

	ids := make([]string, 0, len(totals))
	for id := range totals {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	fmt.Fprintf(w, "games: %d\n", len(games))
	for _, id := range ids {
		t := totals[id]
		fmt.Fprintf(w, "%-10s games=%d wins=%d avg_score=%.2f avg_collected=%.2f returns=%v\n",
			id, t.games, t.wins,
			float64(t.score)/float64(t.games),
			float64(t.collected)/float64(t.games),
			t.reasons)
	}
}
