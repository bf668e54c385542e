package state

import (
	"errors"
	"fmt"

	"github.com/ByteMirror/editstore/change"
	"github.com/ByteMirror/editstore/log"
	"github.com/ByteMirror/editstore/store"
)

// Failure is a change that could not be applied.
type Failure struct {
	Change  change.Change `json:"change"`
	Kind    store.Kind    `json:"kind"`
	Message string        `json:"message"`
}

func newFailure(c change.Change, err error) Failure {
	return Failure{Change: c, Kind: store.KindOf(err), Message: err.Error()}
}

func (f Failure) Error() string { return f.Message }

// Retryable reports whether a revised proposal could succeed.
func (f Failure) Retryable() bool { return f.Kind == store.KindPatch }

// PatchInfo is the outcome of one Patch call. RollbackID names the
// snapshot taken before it was applied.
type PatchInfo struct {
	RollbackID     uint64    `json:"rollback_id"`
	Succeeded      int       `json:"succeeded"`
	ShouldContinue bool      `json:"should_continue"`
	Failures       []Failure `json:"failures,omitempty"`
}

// Patch snapshots every path p touches, then applies each change in order.
// A failing change is recorded in Failures, in change order, and does not
// stop the rest.
// The returned error is reserved for snapshot failures, in which case
// nothing was applied.
func (s *State) Patch(p change.Patch) (PatchInfo, error) {
	var info PatchInfo
	resolved := make(change.Patch, 0, len(p))
	failed := make([]*Failure, len(p))
	var touched change.Patch
	for i, c := range p {
		canonical, err := s.Canonical(c.Path)
		if err != nil {
			f := newFailure(c, err)
			failed[i] = &f
			resolved = append(resolved, c)
			continue
		}
		resolved = append(resolved, c.WithPath(canonical))
		touched = append(touched, resolved[i])
	}

	id, err := s.snapshot(touched.AffectedFiles())
	if err != nil {
		return PatchInfo{}, err
	}
	info.RollbackID = id

	for i, c := range resolved {
		if failed[i] != nil {
			continue
		}
		if err := s.apply(c, id); err != nil {
			f := newFailure(p[i], err)
			failed[i] = &f
			log.WarningLog.Printf("patch %d: %s failed: %v", id, c, err)
			continue
		}
		info.Succeeded++
		if c.IsView() {
			info.ShouldContinue = true
		}
	}
	for _, f := range failed {
		if f != nil {
			info.Failures = append(info.Failures, *f)
		}
	}

	log.InfoLog.Printf("patch %d applied: succeeded=%d failed=%d continue=%t", id, info.Succeeded, len(info.Failures), info.ShouldContinue)
	return info, nil
}

func (s *State) apply(c change.Change, snapshotID uint64) error {
	switch {
	case c.Kind == change.KindUndo:
		return s.undo(c.Path, snapshotID)
	case !c.Mutates():
		return c.Validate()
	}

	current, err := s.Read(c.Path)
	if err != nil {
		if !(c.Kind == change.KindWrite && errors.Is(err, store.ErrNotFound)) {
			return err
		}
		current = ""
	}
	next, err := c.Apply(current)
	if err != nil {
		return err
	}
	return s.write(c.Path, next)
}

// undo restores path to the pre-image held by the most recent snapshot
// taken before snapshotID that mentions it.
func (s *State) undo(path string, snapshotID uint64) error {
	prev, ok := s.previousLayer(path, snapshotID)
	if !ok {
		return fmt.Errorf("undo %s: no earlier snapshot: %w", path, store.ErrPatch)
	}
	if prev.wasCreated(path) {
		return s.remove(path)
	}
	return s.write(path, prev.Content[path])
}

// View finds patterns like Find and records a View change for every match.
func (s *State) View(cwd store.AbsPath, patterns []string) (uint64, int, error) {
	matches, err := s.Find(cwd, patterns)
	if err != nil {
		return 0, 0, err
	}
	p := make(change.Patch, 0, len(matches))
	for _, m := range matches {
		p = p.View(m)
	}
	info, err := s.Patch(p)
	if err != nil {
		return 0, 0, err
	}
	return info.RollbackID, len(matches), nil
}

// Excerpt returns the text shown by a View or ViewRange change.
func (s *State) Excerpt(c change.Change) (string, error) {
	content, err := s.Read(c.Path)
	if err != nil {
		return "", err
	}
	return c.Excerpt(content)
}
