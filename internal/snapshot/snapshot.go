// Package snapshot persists the generation a run produced so the next run can
// keep its wire indices.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jptrs93/protogen/internal/ir"
)

// Load reads a snapshot. A missing file yields an empty generation, which is
// what the first run of a project sees.
func Load(path string) (*ir.ProtoDef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &ir.ProtoDef{}, nil
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var def ir.ProtoDef
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("read snapshot %s: unmarshal: %w", path, err)
	}
	return &def, nil
}

// Save atomically replaces the snapshot at path.
func Save(path string, def *ir.ProtoDef) error {
	data, err := json.MarshalIndent(def, "", "  ")
	if err != nil {
		return fmt.Errorf("write snapshot: marshal: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("write snapshot: mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".snapshot-tmp-*")
	if err != nil {
		return fmt.Errorf("write snapshot: tmpfile: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write snapshot: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write snapshot: close: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write snapshot: rename: %w", err)
	}
	return nil
}
