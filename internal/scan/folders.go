package scan

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Folders lists the subdirectories of dir, sorted by name.
func Folders(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list folders in %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}

// MoveProcessed moves folder into dest. An existing folder of the same name
// is kept and the moved one gets a timestamp suffix.
func MoveProcessed(folder, dest string) (string, error) {
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dest, err)
	}
	target := filepath.Join(dest, filepath.Base(folder))
	if _, err := os.Stat(target); err == nil {
		target = fmt.Sprintf("%s-%d", target, time.Now().UnixNano())
	}
	if err := os.Rename(folder, target); err != nil {
		return "", fmt.Errorf("move %s: %w", folder, err)
	}
	return target, nil
}
