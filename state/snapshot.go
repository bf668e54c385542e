package state

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/ByteMirror/editstore/log"
	"github.com/ByteMirror/editstore/store"
)

// Snapshot is the pre-image of every path a patch was about to touch.
// Paths that did not exist are listed in Created and also carry an empty
// entry in Content.
type Snapshot struct {
	Content map[string]string `json:"content"`
	Created []string          `json:"created"`
}

func (s Snapshot) wasCreated(path string) bool {
	return slices.Contains(s.Created, path)
}

type snapshotEntry struct {
	ID       uint64   `json:"id"`
	Snapshot Snapshot `json:"snapshot"`
}

// SnapshotInfo describes one snapshot on the stack.
type SnapshotInfo struct {
	ID      uint64   `json:"id"`
	Paths   []string `json:"paths"`
	Created []string `json:"created,omitempty"`
}

// RevertInfo lists what a revert changed.
type RevertInfo struct {
	Reverted []uint64 `json:"reverted"`
	Restored []string `json:"restored"`
	Removed  []string `json:"removed"`
}

// Snapshot records the current content of paths and returns the new
// snapshot id. Ids are never reused.
func (s *State) Snapshot(paths []string) (uint64, error) {
	canonical := make([]string, 0, len(paths))
	for _, p := range paths {
		c, err := s.Canonical(p)
		if err != nil {
			return 0, err
		}
		canonical = append(canonical, c)
	}
	return s.snapshot(canonical)
}

func (s *State) snapshot(paths []string) (uint64, error) {
	snap := Snapshot{Content: make(map[string]string, len(paths))}
	for _, p := range paths {
		if _, ok := snap.Content[p]; ok {
			continue
		}
		content, err := s.Read(p)
		switch {
		case errors.Is(err, store.ErrNotFound):
			snap.Created = append(snap.Created, p)
			snap.Content[p] = ""
		case err != nil:
			return 0, fmt.Errorf("snapshot %s: %w", p, err)
		default:
			snap.Content[p] = content
		}
	}

	id := s.nextID
	s.nextID++
	s.snapshots = append(s.snapshots, snapshotEntry{ID: id, Snapshot: snap})
	return id, nil
}

// Snapshots describes the stack, oldest first.
func (s *State) Snapshots() []SnapshotInfo {
	out := make([]SnapshotInfo, 0, len(s.snapshots))
	for _, e := range s.snapshots {
		out = append(out, SnapshotInfo{
			ID:      e.ID,
			Paths:   slices.Sorted(maps.Keys(e.Snapshot.Content)),
			Created: slices.Clone(e.Snapshot.Created),
		})
	}
	return out
}

// Revert rolls back snapshot id and every earlier snapshot, newest first,
// then drops them from the stack. Later snapshots stay. Paths created by a
// reverted snapshot are removed.
func (s *State) Revert(id uint64) (RevertInfo, error) {
	cut := slices.IndexFunc(s.snapshots, func(e snapshotEntry) bool { return e.ID > id })
	if cut < 0 {
		cut = len(s.snapshots)
	}
	if cut == 0 {
		return RevertInfo{}, fmt.Errorf("revert: snapshot %d: %w", id, store.ErrNotFound)
	}
	toRevert := s.snapshots[:cut]
	s.snapshots = slices.Clone(s.snapshots[cut:])

	restored := make(map[string]struct{})
	removed := make(map[string]struct{})
	var info RevertInfo
	var errs []error
	for i := len(toRevert) - 1; i >= 0; i-- {
		e := toRevert[i]
		info.Reverted = append(info.Reverted, e.ID)
		for _, p := range e.Snapshot.Created {
			if err := s.remove(p); err != nil {
				errs = append(errs, err)
				continue
			}
			removed[p] = struct{}{}
			delete(restored, p)
		}
		for p, content := range e.Snapshot.Content {
			if e.Snapshot.wasCreated(p) {
				continue
			}
			if err := s.write(p, content); err != nil {
				errs = append(errs, err)
				continue
			}
			restored[p] = struct{}{}
			delete(removed, p)
		}
	}

	info.Restored = slices.Sorted(maps.Keys(restored))
	info.Removed = slices.Sorted(maps.Keys(removed))
	log.InfoLog.Printf("reverted snapshots %v: restored=%d removed=%d", info.Reverted, len(info.Restored), len(info.Removed))
	if err := errors.Join(errs...); err != nil {
		return info, fmt.Errorf("revert %d: %w", id, err)
	}
	return info, nil
}

// original returns the content path had before the oldest snapshot on the
// stack that mentions it.
func (s *State) original(path string) (string, bool) {
	for _, e := range s.snapshots {
		if content, ok := e.Snapshot.Content[path]; ok {
			return content, true
		}
	}
	return "", false
}

// previousLayer returns the most recent snapshot before id that mentions
// path.
func (s *State) previousLayer(path string, before uint64) (Snapshot, bool) {
	for i := len(s.snapshots) - 1; i >= 0; i-- {
		e := s.snapshots[i]
		if e.ID >= before {
			continue
		}
		if _, ok := e.Snapshot.Content[path]; ok {
			return e.Snapshot, true
		}
	}
	return Snapshot{}, false
}
