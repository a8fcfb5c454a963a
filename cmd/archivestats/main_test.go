package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/brensch/diamonds/selfplay"
	"github.com/brensch/diamonds/store"
)

func TestFindShardsAndReport(t *testing.T) {
	dir := t.TempDir()
	opts := selfplay.DefaultOptions()
	opts.Seed = 4
	opts.Settings.GameMillis = 15000
	out, err := selfplay.PlayGame(context.Background(), opts)
	if err != nil {
		t.Fatalf("PlayGame: %v", err)
	}
	path, err := store.WriteArchiveBatchParquetAtomic(dir, out.Rows)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "checkpoints"), 0o755); err != nil {
		t.Fatal(err)
	}
	_ = os.WriteFile(filepath.Join(dir, "checkpoints", "x.parquet"), []byte("junk"), 0o644)
	_ = os.WriteFile(filepath.Join(dir, "old.summary.parquet"), []byte("junk"), 0o644)

	shards := findShards(dir)
	if len(shards) != 1 || shards[0] != path {
		t.Fatalf("shards=%v want [%s]", shards, path)
	}

	rows, err := readShard(path)
	if err != nil || len(rows) != len(out.Rows) {
		t.Fatalf("readShard=%d rows, %v want %d", len(rows), err, len(out.Rows))
	}

	var buf bytes.Buffer
	report(store.SummarizeGames(rows), &buf)
	if !strings.HasPrefix(buf.String(), "games: 1\n") || !strings.Contains(buf.String(), "bot1") {
		t.Fatalf("report=%q", buf.String())
	}

	buf.Reset()
	if err := render(shards, rows[0].GameID, 3, &buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(buf.String(), "=== Turn 3 ===") || !strings.Contains(buf.String(), "bot1: ") {
		t.Fatalf("render=%q", buf.String())
	}
	if err := render(shards, "nope", 0, &buf); err == nil {
		t.Fatalf("expected an error for a missing game")
	}
}
