package store

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func turn(game string, n int32, agents ...ArchiveAgent) ArchiveTurnRow {
	return ArchiveTurnRow{GameID: game, Turn: n, Width: 5, Height: 5, Agents: agents, Source: "test"}
}

func agent(id string, inv, score int32, phase, reason string) ArchiveAgent {
	return ArchiveAgent{ID: id, Inventory: inv, Score: score, Phase: phase, Reason: reason}
}

func TestSummarizeGames(t *testing.T) {
	rows := []ArchiveTurnRow{
		// Out of order on purpose.
		turn("g1", 2, agent("a", 3, 0, "returning", "bank nearby"), agent("b", 1, 0, "foraging", "objective")),
		turn("g1", 0, agent("a", 0, 0, "foraging", "objective"), agent("b", 0, 0, "foraging", "objective")),
		turn("g1", 1, agent("a", 1, 0, "foraging", "objective"), agent("b", 1, 0, "foraging", "objective")),
		turn("g1", 3, agent("a", 0, 3, "foraging", "objective"), agent("b", 1, 0, "returning", "out of time")),
		turn("g1", 4, agent("a", 2, 3, "returning", "inventory full"), agent("b", 0, 1, "foraging", "objective")),
		turn("g2", 0, agent("a", 0, 0, "foraging", "objective")),
	}

	want := []AgentSummaryRow{
		{GameID: "g1", AgentID: "a", Source: "test", Turns: 4, Score: 3, Won: true, Collected: 5, Banked: 1,
			ReturningTurns: 2, ReturnReasons: []string{"bank nearby", "inventory full"}},
		{GameID: "g1", AgentID: "b", Source: "test", Turns: 4, Score: 1, Collected: 1, Banked: 1,
			ReturningTurns: 1, ReturnReasons: []string{"out of time"}},
		{GameID: "g2", AgentID: "a", Source: "test", Turns: 0, Score: 0, Won: true},
	}
	got := SummarizeGames(rows)
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("summary mismatch (-want +got):\n%s", diff)
	}
}

func TestSummarizeGames_TieHasNoWinner(t *testing.T) {
	rows := []ArchiveTurnRow{turn("g", 0, agent("a", 0, 4, "", ""), agent("b", 0, 4, "", ""))}
	for _, s := range SummarizeGames(rows) {
		if s.Won {
			t.Fatalf("%s won a tied game", s.AgentID)
		}
	}
}

func TestSummaryParquet_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "summary.parquet")
	rows := []AgentSummaryRow{
		{GameID: "g", AgentID: "a", Source: "test", Turns: 60, Score: 9, Won: true, Collected: 11, Banked: 3,
			ReturningTurns: 14, ReturnReasons: []string{"inventory full", "out of time"}},
	}
	if err := WriteSummaryParquet(path, rows); err != nil {
		t.Fatalf("WriteSummaryParquet: %v", err)
	}
	got, err := ReadSummaryParquet(path)
	if err != nil {
		t.Fatalf("ReadSummaryParquet: %v", err)
	}
	if diff := cmp.Diff(rows, got, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
}
