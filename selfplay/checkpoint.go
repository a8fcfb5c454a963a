package selfplay

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const checkpointExt = ".checkpoint.json"

// SaveCheckpoint writes g to dir/<game id>.checkpoint.json via a temp file.
func SaveCheckpoint(dir string, g *InProgressGame) (string, error) {
	if g == nil || g.GameID == "" {
		return "", fmt.Errorf("checkpoint has no game id")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create checkpoint dir: %w", err)
	}
	raw, err := json.Marshal(g)
	if err != nil {
		return "", fmt.Errorf("encode checkpoint %s: %w", g.GameID, err)
	}

	path := filepath.Join(dir, g.GameID+checkpointExt)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return "", fmt.Errorf("write checkpoint: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("rename checkpoint: %w", err)
	}
	return path, nil
}

// TakeCheckpoints loads every checkpoint in dir and removes the files, so a
// game is resumed at most once. A missing dir yields nothing.
func TakeCheckpoints(dir string) ([]*InProgressGame, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), checkpointExt) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	out := make([]*InProgressGame, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		raw, err := os.ReadFile(path)
		if err != nil {
			return out, err
		}
		var g InProgressGame
		if err := json.Unmarshal(raw, &g); err != nil {
			return out, fmt.Errorf("checkpoint %s: %w", name, err)
		}
		if err := os.Remove(path); err != nil {
			return out, err
		}
		out = append(out, &g)
	}
	return out, nil
}
