package state

import (
	"errors"
	"strings"

	"github.com/ByteMirror/editstore/change"
	"github.com/ByteMirror/editstore/store"
	"github.com/pmezard/go-difflib/difflib"
)

// DiffPath reconstructs a patch that turns the original content of path
// (its pre-image in the oldest snapshot mentioning it) into its current
// content. ok is false when no snapshot mentions path.
func (s *State) DiffPath(path string) (p change.Patch, ok bool, err error) {
	canonical, err := s.Canonical(path)
	if err != nil {
		return nil, false, err
	}
	original, ok := s.original(canonical)
	if !ok {
		return nil, false, nil
	}
	current, err := s.Read(canonical)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return nil, true, err
		}
		current = ""
	}
	return diffPatch(canonical, original, current, s.opts), true, nil
}

// diffPatch returns Replace hunks, or a single Write when either side is
// empty, when more than opts.DiffWriteThreshold of the current lines
// changed, or when the hunks would not replay exactly.
func diffPatch(path, original, current string, opts Options) change.Patch {
	if original == current {
		return nil
	}
	rewrite := change.NewPatch(change.Write(path, current))
	if original == "" || current == "" {
		return rewrite
	}

	a, b := splitKeepEnds(original), splitKeepEnds(current)
	m := difflib.NewMatcher(a, b)

	changed := 0
	for _, op := range m.GetOpCodes() {
		if op.Tag != 'e' {
			changed += max(op.I2-op.I1, op.J2-op.J1)
		}
	}
	if float64(changed) > opts.DiffWriteThreshold*float64(len(b)) {
		return rewrite
	}

	var hunks change.Patch
	for _, group := range m.GetGroupedOpCodes(opts.DiffContextLines) {
		first, last := group[0], group[len(group)-1]
		old := strings.Join(a[first.I1:last.I2], "")
		repl := strings.Join(b[first.J1:last.J2], "")
		hunks = hunks.Replace(path, old, repl)
	}

	if got, err := hunks.ApplyTo(path, original); err != nil || got != current {
		return rewrite
	}
	return hunks
}

// splitKeepEnds splits s into lines that keep their "\n".
func splitKeepEnds(s string) []string {
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
