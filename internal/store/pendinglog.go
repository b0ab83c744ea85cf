package store

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// PendingLog is the offline sync log: one attendance file path per line for
// every batch that has not been confirmed uploaded. Appends may introduce
// duplicates; reads deduplicate, and each sync pass rewrites the file
// atomically with only the paths that are still pending.
type PendingLog struct {
	path string
}

// NewPendingLog points at the log file.
func NewPendingLog(path string) *PendingLog {
	return &PendingLog{path: path}
}

// Path returns the backing file path.
func (l *PendingLog) Path() string {
	return l.path
}

// Append records a failed upload. The write is append-only so concurrent
// sessions never lose each other's entries.
func (l *PendingLog) Append(filePath string) error {
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open pending log: %w", err)
	}
	defer f.Close()

	if _, err := fmt.Fprintln(f, filePath); err != nil {
		return fmt.Errorf("failed to append to pending log: %w", err)
	}
	return nil
}

// Read returns the pending paths, deduplicated, preserving first-seen
// order. A missing log file yields an empty list.
func (l *PendingLog) Read() ([]string, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open pending log: %w", err)
	}
	defer f.Close()

	seen := make(map[string]struct{})
	var paths []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if _, dup := seen[line]; dup {
			continue
		}
		seen[line] = struct{}{}
		paths = append(paths, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read pending log: %w", err)
	}
	return paths, nil
}

// Rewrite replaces the log contents with exactly the given paths. The new
// content is written to a temporary file and renamed into place so readers
// never observe a partial log.
func (l *PendingLog) Rewrite(paths []string) error {
	tmp := l.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create pending log: %w", err)
	}

	for _, p := range paths {
		if _, err := fmt.Fprintln(f, p); err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
			return fmt.Errorf("failed to write pending log: %w", err)
		}
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to close pending log: %w", err)
	}

	if err := os.Rename(tmp, l.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace pending log: %w", err)
	}
	return nil
}
