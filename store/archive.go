// Package store persists self-play games as parquet turn archives.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/brensch/diamonds/game"
	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
)

const archiveSchema = "diamonds_turn_v1"

// ArchiveTurnRow is one (game, turn) snapshot plus the move each agent made
// from it. One row per turn keeps entity columns from repeating per agent.
type ArchiveTurnRow struct {
	GameID string `parquet:"game_id,dict"`
	Turn   int32  `parquet:"turn"`
	Width  int32  `parquet:"width"`
	Height int32  `parquet:"height"`

	CollectibleX     []int32 `parquet:"collectible_x"`
	CollectibleY     []int32 `parquet:"collectible_y"`
	CollectibleValue []int32 `parquet:"collectible_value"`

	BonusX []int32 `parquet:"bonus_x"`
	BonusY []int32 `parquet:"bonus_y"`

	TeleporterX    []int32  `parquet:"teleporter_x"`
	TeleporterY    []int32  `parquet:"teleporter_y"`
	TeleporterPair []string `parquet:"teleporter_pair"`

	Agents []ArchiveAgent `parquet:"agents"`

	Source string `parquet:"source,dict"`

	// TraceJSON optionally holds the full per-agent decision traces.
	TraceJSON []byte `parquet:"trace_json,optional,zstd"`
}

// ArchiveAgent is one agent on one turn. Move is empty when the agent did
// not act, e.g. on the final turn.
type ArchiveAgent struct {
	ID               string `parquet:"id,dict"`
	X                int32  `parquet:"x"`
	Y                int32  `parquet:"y"`
	Inventory        int32  `parquet:"inventory"`
	Score            int32  `parquet:"score"`
	MillisecondsLeft int64  `parquet:"ms_left"`
	HasBase          bool   `parquet:"has_base"`
	BaseX            int32  `parquet:"base_x"`
	BaseY            int32  `parquet:"base_y"`

	Move      string `parquet:"move,dict"`
	Phase     string `parquet:"phase,dict"`
	Reason    string `parquet:"reason,dict"`
	HasTarget bool   `parquet:"has_target"`
	TargetX   int32  `parquet:"target_x"`
	TargetY   int32  `parquet:"target_y"`
	RouteLen  int32  `parquet:"route_len"`
}

// RowFromBoard flattens a board into an archive row. Agent decision columns
// are left for the caller.
func RowFromBoard(gameID, source string, b *game.Board) ArchiveTurnRow {
	row := ArchiveTurnRow{
		GameID: gameID,
		Turn:   int32(b.Turn),
		Width:  int32(b.Width),
		Height: int32(b.Height),
		Source: source,
	}
	for _, e := range b.Entities {
		x, y := int32(e.Position.X), int32(e.Position.Y)
		switch e.Kind {
		case game.Collectible:
			row.CollectibleX = append(row.CollectibleX, x)
			row.CollectibleY = append(row.CollectibleY, y)
			row.CollectibleValue = append(row.CollectibleValue, int32(e.Value))
		case game.BonusActivator:
			row.BonusX = append(row.BonusX, x)
			row.BonusY = append(row.BonusY, y)
		case game.Teleporter:
			row.TeleporterX = append(row.TeleporterX, x)
			row.TeleporterY = append(row.TeleporterY, y)
			row.TeleporterPair = append(row.TeleporterPair, e.PairID)
		}
	}
	for _, a := range b.Agents {
		row.Agents = append(row.Agents, ArchiveAgent{
			ID:               a.ID,
			X:                int32(a.Position.X),
			Y:                int32(a.Position.Y),
			Inventory:        int32(a.Inventory),
			Score:            int32(a.Score),
			MillisecondsLeft: a.MillisecondsLeft,
			HasBase:          a.HasBase,
			BaseX:            int32(a.Base.X),
			BaseY:            int32(a.Base.Y),
		})
	}
	return row
}

// Board rebuilds the snapshot stored in the row. Bases come back as
// AgentBase entities, one per agent that has one.
func (r ArchiveTurnRow) Board() (*game.Board, error) {
	if len(r.CollectibleX) != len(r.CollectibleY) || len(r.CollectibleX) != len(r.CollectibleValue) ||
		len(r.BonusX) != len(r.BonusY) ||
		len(r.TeleporterX) != len(r.TeleporterY) || len(r.TeleporterX) != len(r.TeleporterPair) {
		return nil, fmt.Errorf("game %s turn %d: ragged entity columns", r.GameID, r.Turn)
	}

	b := &game.Board{Width: int(r.Width), Height: int(r.Height), Turn: int(r.Turn)}
	for _, a := range r.Agents {
		agent := game.AgentState{
			ID:               a.ID,
			Name:             a.ID,
			Position:         game.Position{X: int(a.X), Y: int(a.Y)},
			Inventory:        int(a.Inventory),
			Score:            int(a.Score),
			MillisecondsLeft: a.MillisecondsLeft,
			HasBase:          a.HasBase,
		}
		if a.HasBase {
			agent.Base = game.Position{X: int(a.BaseX), Y: int(a.BaseY)}
			b.Entities = append(b.Entities, game.Entity{Kind: game.AgentBase, Position: agent.Base})
		}
		b.Agents = append(b.Agents, agent)
	}
	for i := range r.TeleporterX {
		b.Entities = append(b.Entities, game.Entity{
			Kind:     game.Teleporter,
			Position: game.Position{X: int(r.TeleporterX[i]), Y: int(r.TeleporterY[i])},
			PairID:   r.TeleporterPair[i],
		})
	}
	for i := range r.BonusX {
		b.Entities = append(b.Entities, game.Entity{
			Kind:     game.BonusActivator,
			Position: game.Position{X: int(r.BonusX[i]), Y: int(r.BonusY[i])},
		})
	}
	for i := range r.CollectibleX {
		b.Entities = append(b.Entities, game.Entity{
			Kind:     game.Collectible,
			Position: game.Position{X: int(r.CollectibleX[i]), Y: int(r.CollectibleY[i])},
			Value:    int(r.CollectibleValue[i]),
		})
	}
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("game %s turn %d: %w", r.GameID, r.Turn, err)
	}
	return b, nil
}

func writerOptions() []parquet.WriterOption {
	return []parquet.WriterOption{
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
		parquet.SkipPageBounds("trace_json"),
		parquet.KeyValueMetadata("schema", archiveSchema),
	}
}

// WriteArchiveParquet writes rows to outPath through a temp file and rename.
func WriteArchiveParquet(outPath string, rows []ArchiveTurnRow) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmpPath := outPath + ".tmp"
	_ = os.Remove(tmpPath)

	if err := parquet.WriteFile(tmpPath, rows, writerOptions()...); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write parquet: %w", err)
	}
	if err := os.Rename(tmpPath, outPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename parquet: %w", err)
	}
	return nil
}

// WriteArchiveBatchParquetAtomic writes rows into outDir/tmp and then moves
// the file into outDir, so readers never observe a partial batch.
func WriteArchiveBatchParquetAtomic(outDir string, rows []ArchiveTurnRow) (string, error) {
	tmpDir := filepath.Join(outDir, "tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return "", fmt.Errorf("create tmp dir: %w", err)
	}

	name := fmt.Sprintf("batch_%d.parquet", time.Now().UnixNano())
	finalPath := filepath.Join(outDir, name)
	tmpPath := filepath.Join(tmpDir, name+".tmp")
	_ = os.Remove(tmpPath)

	if err := parquet.WriteFile(tmpPath, rows, writerOptions()...); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("write parquet: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("rename parquet: %w", err)
	}
	return finalPath, nil
}

// ReadArchiveParquet loads every row of an archive file.
func ReadArchiveParquet(path string) ([]ArchiveTurnRow, error) {
	rows, err := parquet.ReadFile[ArchiveTurnRow](path)
	if err != nil {
		return nil, fmt.Errorf("read parquet %s: %w", path, err)
	}
	return rows, nil
}
