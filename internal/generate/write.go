package generate

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

func WriteFiles(outputs []OutputFile) error {
	for _, file := range outputs {
		if err := os.MkdirAll(filepath.Dir(file.Path), 0o755); err != nil {
			return fmt.Errorf("create dir %s: %w", filepath.Dir(file.Path), err)
		}
		if err := os.WriteFile(file.Path, file.Content, 0o644); err != nil {
			return fmt.Errorf("write file %s: %w", file.Path, err)
		}
	}
	return nil
}

// RemoveStale deletes the files of a previous generation that the current one
// no longer produces, so a type that moved to another file does not leave its
// old definition behind. Names are relative to dir. Files that are already
// gone and names reaching outside dir are skipped.
func RemoveStale(dir string, previous, current []string) ([]string, error) {
	keep := map[string]bool{}
	for _, name := range current {
		keep[filepath.Clean(name)] = true
	}
	var removed []string
	for _, name := range previous {
		name = filepath.Clean(name)
		if keep[name] || !filepath.IsLocal(name) {
			continue
		}
		path := filepath.Join(dir, name)
		if err := os.Remove(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return removed, fmt.Errorf("remove %s: %w", path, err)
		}
		removed = append(removed, path)
	}
	return removed, nil
}
