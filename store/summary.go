package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
)

const summarySchema = "diamonds_agent_summary_v1"

// AgentSummaryRow is one agent's result for one archived game.
type AgentSummaryRow struct {
	GameID  string `parquet:"game_id,dict"`
	AgentID string `parquet:"agent_id,dict"`
	Source  string `parquet:"source,dict"`

	Turns int32 `parquet:"turns"`
	Score int32 `parquet:"score"`
	// Won is false for every agent in a tied game.
	Won bool `parquet:"won"`

	// Collected is the total value picked up; Banked counts deposits.
	Collected int32 `parquet:"collected"`
	Banked    int32 `parquet:"banked"`

	ReturningTurns int32 `parquet:"returning_turns"`
	// ReturnReasons lists why each trip home started, in order.
	ReturnReasons []string `parquet:"return_reasons"`
}

// SummarizeGames folds archive rows into one summary per (game, agent).
// Games appear in first-seen order; rows within a game may be unordered.
func SummarizeGames(rows []ArchiveTurnRow) []AgentSummaryRow {
	order := make([]string, 0)
	byGame := map[string][]ArchiveTurnRow{}
	for _, r := range rows {
		if _, ok := byGame[r.GameID]; !ok {
			order = append(order, r.GameID)
		}
		byGame[r.GameID] = append(byGame[r.GameID], r)
	}

	out := make([]AgentSummaryRow, 0, len(order)*2)
	for _, id := range order {
		out = append(out, summarizeGame(byGame[id])...)
	}
	return out
}

func summarizeGame(rows []ArchiveTurnRow) []AgentSummaryRow {
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Turn < rows[j].Turn })

	idx := map[string]int{}
	var out []AgentSummaryRow
	prev := map[string]ArchiveAgent{}

	for _, r := range rows {
		for _, a := range r.Agents {
			i, ok := idx[a.ID]
			if !ok {
				i = len(out)
				idx[a.ID] = i
				out = append(out, AgentSummaryRow{GameID: r.GameID, AgentID: a.ID, Source: r.Source})
			}
			s := &out[i]
			s.Turns = r.Turn
			s.Score = a.Score

			if p, seen := prev[a.ID]; seen {
				if d := a.Inventory - p.Inventory; d > 0 {
					s.Collected += d
				}
				if a.Score > p.Score {
					s.Banked++
				}
			}
			if a.Phase == "returning" {
				s.ReturningTurns++
				if prev[a.ID].Phase != "returning" {
					s.ReturnReasons = append(s.ReturnReasons, a.Reason)
				}
			}
			prev[a.ID] = a
		}
	}

	best, winner := int32(-1), -1
	for i, s := range out {
		switch {
		case s.Score > best:
			best, winner = s.Score, i
		case s.Score == best:
			winner = -1
		}
	}
	if winner >= 0 {
		out[winner].Won = true
	}
	return out
}

// WriteSummaryParquet writes rows to outPath through a temp file. An empty
// summary writes nothing.
func WriteSummaryParquet(outPath string, rows []AgentSummaryRow) error {
	if len(rows) == 0 {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmpPath := outPath + ".tmp"
	_ = os.Remove(tmpPath)
	err := parquet.WriteFile(tmpPath, rows,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
		parquet.KeyValueMetadata("schema", summarySchema),
	)
	if err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write parquet: %w", err)
	}
	if err := os.Rename(tmpPath, outPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename parquet: %w", err)
	}
	return nil
}

func ReadSummaryParquet(path string) ([]AgentSummaryRow, error) {
	rows, err := parquet.ReadFile[AgentSummaryRow](path)
	if err != nil {
		return nil, fmt.Errorf("read parquet %s: %w", path, err)
	}
	return rows, nil
}
