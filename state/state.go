// Package state ties the directory and memory stores together behind
// versioned patch application and snapshot-based rollback.
package state

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ByteMirror/editstore/config"
	"github.com/ByteMirror/editstore/store"
	"github.com/google/uuid"
)

// Options tunes diff reconstruction.
type Options struct {
	// DiffWriteThreshold is the fraction of current lines that may change
	// before DiffPath emits a single Write instead of Replace hunks.
	DiffWriteThreshold float64
	// DiffContextLines is the unchanged context kept around each hunk.
	DiffContextLines int
}

// DefaultOptions mirrors config.DefaultConfig.
func DefaultOptions() Options {
	return Options{
		DiffWriteThreshold: config.DefaultDiffWriteThreshold,
		DiffContextLines:   config.DefaultDiffContextLines,
	}
}

// OptionsFromConfig extracts the state tunables from cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	opts := DefaultOptions()
	if cfg == nil {
		return opts
	}
	if cfg.DiffWriteThreshold > 0 {
		opts.DiffWriteThreshold = cfg.DiffWriteThreshold
	}
	if cfg.DiffContextLines >= 0 {
		opts.DiffContextLines = cfg.DiffContextLines
	}
	return opts
}

// State owns at most one Directory and exactly one Memory store. It is not
// safe for concurrent use; callers serialize access.
type State struct {
	sessionID string
	opts      Options

	directory *store.Directory
	memory    *store.Memory

	snapshots []snapshotEntry
	nextID    uint64
}

// New returns an empty State with no directory attached.
func New(opts Options) *State {
	if opts.DiffWriteThreshold <= 0 {
		opts.DiffWriteThreshold = config.DefaultDiffWriteThreshold
	}
	if opts.DiffContextLines < 0 {
		opts.DiffContextLines = config.DefaultDiffContextLines
	}
	return &State{
		sessionID: uuid.NewString(),
		opts:      opts,
		memory:    store.NewMemory(nil),
	}
}

// AttachDirectory sets the filesystem store. It may be called once.
func (s *State) AttachDirectory(dir *store.Directory) error {
	if dir == nil {
		return fmt.Errorf("attach directory: nil directory: %w", store.ErrInternal)
	}
	if s.directory != nil {
		return fmt.Errorf("attach directory %s: already attached to %s: %w", dir.Root(), s.directory.Root(), store.ErrInternal)
	}
	s.directory = dir
	return nil
}

// SeedMemory preloads memory entries outside of any patch. Keys without
// the memory prefix get one.
func (s *State) SeedMemory(entries map[string]string) {
	for k, v := range entries {
		if !store.IsMemoryPath(k) {
			k = store.MemoryPrefix + k
		}
		_ = s.memory.Write(store.CleanMemoryPath(k), v)
	}
}

// SeedMemoryFrom preloads config seeds.
func (s *State) SeedMemoryFrom(seeds []config.Seed) {
	entries := make(map[string]string, len(seeds))
	for _, seed := range seeds {
		entries[seed.Key] = seed.Body
	}
	s.SeedMemory(entries)
}

func (s *State) SessionID() string { return s.sessionID }

// Directory returns the attached directory, or nil.
func (s *State) Directory() *store.Directory { return s.directory }

func (s *State) Memory() *store.Memory { return s.memory }

// route returns the store responsible for path and the canonical form of
// path within it.
func (s *State) route(path string) (store.SubStore, string, error) {
	if store.IsMemoryPath(path) {
		key := store.CleanMemoryPath(path)
		if key == store.MemoryPrefix {
			return nil, "", fmt.Errorf("memory path %q names no entry: %w", path, store.ErrPath)
		}
		return s.memory, key, nil
	}
	if s.directory == nil {
		return nil, "", fmt.Errorf("%s: no matching store: %w", path, store.ErrNotFound)
	}
	rel, err := s.directory.Resolve(path)
	if err != nil {
		return nil, "", err
	}
	return s.directory, rel, nil
}

// Canonical returns the form of path used for snapshots and listings.
func (s *State) Canonical(path string) (string, error) {
	_, p, err := s.route(path)
	return p, err
}

func (s *State) Read(path string) (string, error) {
	sub, p, err := s.route(path)
	if err != nil {
		return "", err
	}
	return sub.Read(p)
}

func (s *State) write(path, content string) error {
	sub, p, err := s.route(path)
	if err != nil {
		return err
	}
	return sub.Write(p, content)
}

// remove deletes path, treating an already missing path as removed.
func (s *State) remove(path string) error {
	sub, p, err := s.route(path)
	if err != nil {
		return err
	}
	if err := sub.Remove(p); err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	return nil
}

// List returns every memory key followed by the directory listing.
func (s *State) List() ([]string, error) {
	files, err := s.memory.List()
	if err != nil {
		return nil, err
	}
	if s.directory != nil {
		dirFiles, err := s.directory.List()
		if err != nil {
			return nil, err
		}
		files = append(files, dirFiles...)
	}
	return files, nil
}

// Find matches patterns against both stores. Memory patterns (those with
// the memory prefix) match memory keys; all others resolve against cwd
// inside the directory root. The result is sorted and de-duplicated.
func (s *State) Find(cwd store.AbsPath, patterns []string) ([]string, error) {
	found := make(map[string]struct{})
	var keys []string
	for _, pattern := range patterns {
		if store.IsMemoryPath(pattern) {
			if keys == nil {
				var err error
				if keys, err = s.memory.List(); err != nil {
					return nil, err
				}
			}
			match := store.CompilePattern(strings.TrimPrefix(store.CleanMemoryPath(pattern), store.MemoryPrefix))
			for _, k := range keys {
				if match(strings.TrimPrefix(k, store.MemoryPrefix)) {
					found[k] = struct{}{}
				}
			}
			continue
		}

		if s.directory == nil {
			return nil, fmt.Errorf("find %q: no matching store: %w", pattern, store.ErrNotFound)
		}
		files, err := store.FindFiles(s.directory.Root(), cwd, pattern, s.directory.Options())
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			found[f] = struct{}{}
		}
	}

	out := make([]string, 0, len(found))
	for p := range found {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}
