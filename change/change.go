// Package change implements the edit primitives applied to a single text
// blob and the ordered Patch that batches them.
package change

import (
	"fmt"
	"strings"

	"github.com/ByteMirror/editstore/store"
)

// Kind tags the variant of a Change.
type Kind string

const (
	KindWrite        Kind = "write"
	KindReplace      Kind = "replace"
	KindReplaceFuzzy Kind = "replace_fuzzy"
	KindInsert       Kind = "insert"
	KindView         Kind = "view"
	KindViewRange    Kind = "view_range"
	KindUndo         Kind = "undo"
)

// Change is one mutation or view targeting a single path. Which payload
// fields are meaningful depends on Kind:
//
//	write          Content
//	replace        Old, New (Old must occur exactly once)
//	replace_fuzzy  Old, New (lines compared with surrounding whitespace trimmed)
//	insert         Line (0-based), New
//	view_range     Start, End (1-based, inclusive; End 0 reads to the end)
type Change struct {
	Kind    Kind   `json:"kind"`
	Path    string `json:"path"`
	Content string `json:"content,omitempty"`
	Old     string `json:"old,omitempty"`
	New     string `json:"new,omitempty"`
	Line    int    `json:"line,omitempty"`
	Start   int    `json:"start,omitempty"`
	End     int    `json:"end,omitempty"`
}

func Write(path, content string) Change {
	return Change{Kind: KindWrite, Path: path, Content: content}
}

func Replace(path, old, new string) Change {
	return Change{Kind: KindReplace, Path: path, Old: old, New: new}
}

func ReplaceFuzzy(path, old, new string) Change {
	return Change{Kind: KindReplaceFuzzy, Path: path, Old: old, New: new}
}

func Insert(path string, line int, new string) Change {
	return Change{Kind: KindInsert, Path: path, Line: line, New: new}
}

func View(path string) Change {
	return Change{Kind: KindView, Path: path}
}

// ViewRange views lines start..end (1-based, inclusive). end 0 means the
// end of the file.
func ViewRange(path string, start, end int) Change {
	return Change{Kind: KindViewRange, Path: path, Start: start, End: end}
}

func Undo(path string) Change {
	return Change{Kind: KindUndo, Path: path}
}

// Name is the human-readable variant name.
func (c Change) Name() string {
	switch c.Kind {
	case KindWrite:
		return "Write"
	case KindReplace:
		return "Replace"
	case KindReplaceFuzzy:
		return "Fuzzy replace"
	case KindInsert:
		return "Insert"
	case KindView:
		return "View"
	case KindViewRange:
		return "View range"
	case KindUndo:
		return "Undo"
	default:
		return string(c.Kind)
	}
}

// IsView reports whether c only reads its path.
func (c Change) IsView() bool {
	return c.Kind == KindView || c.Kind == KindViewRange
}

// Mutates reports whether Apply can alter content.
func (c Change) Mutates() bool {
	switch c.Kind {
	case KindWrite, KindReplace, KindReplaceFuzzy, KindInsert:
		return true
	}
	return false
}

// WithPath returns a copy of c targeting p.
func (c Change) WithPath(p string) Change {
	c.Path = p
	return c
}

// Validate checks the payload without looking at any file content.
func (c Change) Validate() error {
	if strings.TrimSpace(c.Path) == "" {
		return fmt.Errorf("%s: empty path: %w", c.Name(), store.ErrPath)
	}
	switch c.Kind {
	case KindWrite, KindView, KindUndo:
		return nil
	case KindReplace:
		if c.Old == "" {
			return fmt.Errorf("replace %s: empty search text: %w", c.Path, store.ErrPatch)
		}
		return nil
	case KindReplaceFuzzy:
		if strings.TrimSpace(c.Old) == "" {
			return fmt.Errorf("fuzzy replace %s: blank search text: %w", c.Path, store.ErrPatch)
		}
		return nil
	case KindInsert:
		if c.Line < 0 {
			return fmt.Errorf("insert %s: negative line %d: %w", c.Path, c.Line, store.ErrPatch)
		}
		return nil
	case KindViewRange:
		if c.Start < 1 || (c.End != 0 && c.End < c.Start) {
			return fmt.Errorf("view range %s: invalid range %d-%d: %w", c.Path, c.Start, c.End, store.ErrPatch)
		}
		return nil
	default:
		return fmt.Errorf("unknown change kind %q: %w", c.Kind, store.ErrInternal)
	}
}

// Apply returns content with c applied. View, ViewRange and Undo return
// content unchanged.
func (c Change) Apply(content string) (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}
	switch c.Kind {
	case KindWrite:
		return c.Content, nil
	case KindReplace:
		return replaceExact(c.Path, content, c.Old, c.New)
	case KindReplaceFuzzy:
		return replaceFuzzy(c.Path, content, c.Old, c.New)
	case KindInsert:
		return insertAt(c.Path, content, c.Line, c.New)
	default:
		return content, nil
	}
}

func (c Change) String() string {
	switch c.Kind {
	case KindInsert:
		return fmt.Sprintf("%s %s:%d", c.Name(), c.Path, c.Line)
	case KindViewRange:
		if c.End == 0 {
			return fmt.Sprintf("%s %s:%d-", c.Name(), c.Path, c.Start)
		}
		return fmt.Sprintf("%s %s:%d-%d", c.Name(), c.Path, c.Start, c.End)
	default:
		return c.Name() + " " + c.Path
	}
}
