package store

import (
	"fmt"
	"maps"
	"slices"
)

// Memory is an in-process key to text map. Keys are used verbatim; callers
// prefix them with MemoryPrefix.
type Memory struct {
	entries map[string]string
}

// NewMemory returns a Memory holding a copy of seed.
func NewMemory(seed map[string]string) *Memory {
	entries := make(map[string]string, len(seed))
	maps.Copy(entries, seed)
	return &Memory{entries: entries}
}

// List returns all keys, sorted.
func (m *Memory) List() ([]string, error) {
	return slices.Sorted(maps.Keys(m.entries)), nil
}

func (m *Memory) Read(key string) (string, error) {
	content, ok := m.entries[key]
	if !ok {
		return "", fmt.Errorf("memory read %q: %w", key, ErrNotFound)
	}
	return content, nil
}

func (m *Memory) Write(key, content string) error {
	m.entries[key] = content
	return nil
}

func (m *Memory) Remove(key string) error {
	if _, ok := m.entries[key]; !ok {
		return fmt.Errorf("memory remove %q: %w", key, ErrNotFound)
	}
	delete(m.entries, key)
	return nil
}

// Entries returns a copy of the map.
func (m *Memory) Entries() map[string]string {
	out := make(map[string]string, len(m.entries))
	maps.Copy(out, m.entries)
	return out
}
