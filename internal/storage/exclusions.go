package storage

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Exclusions is the set of recipients who opted out of the survey.
// The set lives in memory and is rewritten to a newline-delimited file after
// every change, unless persistence is disabled.
type Exclusions struct {
	mu      sync.RWMutex
	ids     map[string]struct{}
	file    string
	persist bool
}

// NewExclusions creates a registry backed by filePath and loads it.
// With persist set to false the file is only read; changes stay in memory.
func NewExclusions(filePath string, persist bool) (*Exclusions, error) {
	e := &Exclusions{
		ids:     make(map[string]struct{}),
		file:    filePath,
		persist: persist,
	}

	if err := e.Load(); err != nil {
		return nil, fmt.Errorf("failed to load exclusions: %w", err)
	}

	return e, nil
}

// Load replaces the in-memory set with the file contents.
// A missing file yields an empty set.
func (e *Exclusions) Load() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.ids = make(map[string]struct{})

	data, err := os.ReadFile(e.file)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		if id := strings.TrimSpace(scanner.Text()); id != "" {
			e.ids[id] = struct{}{}
		}
	}
	return scanner.Err()
}

// Add excludes id. It reports whether the set changed.
func (e *Exclusions) Add(id string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.ids[id]; ok {
		return false, nil
	}
	e.ids[id] = struct{}{}
	return true, e.save()
}

// Remove includes id again. It reports whether the set changed.
func (e *Exclusions) Remove(id string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.ids[id]; !ok {
		return false, nil
	}
	delete(e.ids, id)
	return true, e.save()
}

// Clear removes every exclusion and returns how many there were
func (e *Exclusions) Clear() (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := len(e.ids)
	e.ids = make(map[string]struct{})
	return n, e.save()
}

// Contains reports whether id is excluded
func (e *Exclusions) Contains(id string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	_, ok := e.ids[id]
	return ok
}

// List returns the excluded IDs sorted
func (e *Exclusions) List() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	ids := make([]string, 0, len(e.ids))
	for id := range e.ids {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of excluded recipients
func (e *Exclusions) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.ids)
}

// Persistent reports whether changes are written to disk
func (e *Exclusions) Persistent() bool {
	return e.persist
}

// save writes the whole set to file. Callers hold the lock.
func (e *Exclusions) save() error {
	if !e.persist {
		return nil
	}

	ids := make([]string, 0, len(e.ids))
	for id := range e.ids {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var buf bytes.Buffer
	for _, id := range ids {
		buf.WriteString(id)
		buf.WriteByte('\n')
	}

	// Ensure directory exists
	dir := filepath.Dir(e.file)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(e.file, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write exclusions: %w", err)
	}
	return nil
}
