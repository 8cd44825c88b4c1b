// Package filex has small filesystem helpers for the server's working
// directories.
package filex

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// EnsureDir creates dir (and parents) with owner-only permissions and
// returns its absolute path.
func EnsureDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("abs %s: %w", dir, err)
	}
	if err := os.MkdirAll(abs, 0o700); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", abs, err)
	}
	return abs, nil
}

// EnsureSubDir creates name under parent.
func EnsureSubDir(parent, name string) (string, error) {
	return EnsureDir(filepath.Join(parent, name))
}

// RemoveOlderThan deletes regular files in dir whose modification time is
// older than maxAge and returns how many were removed. Subdirectories are
// left alone. Individual failures are reported through onErr and skipped.
func RemoveOlderThan(dir string, maxAge time.Duration, now time.Time, onErr func(path string, err error)) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read dir %s: %w", dir, err)
	}

	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())

		info, err := e.Info()
		if err != nil {
			if onErr != nil {
				onErr(path, err)
			}
			continue
		}
		if now.Sub(info.ModTime()) <= maxAge {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			if onErr != nil {
				onErr(path, err)
			}
			continue
		}
		removed++
	}
	return removed, nil
}
