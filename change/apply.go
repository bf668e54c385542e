package change

import (
	"fmt"
	"strings"

	"github.com/ByteMirror/editstore/store"
)

func replaceExact(path, content, old, new string) (string, error) {
	switch n := strings.Count(content, old); n {
	case 0:
		return "", fmt.Errorf("replace %s: search text not found: %w", path, store.ErrPatch)
	case 1:
		return strings.Replace(content, old, new, 1), nil
	default:
		return "", fmt.Errorf("replace %s: search text found %d times, expected exactly once: %w", path, n, store.ErrPatch)
	}
}

// replaceFuzzy replaces the first window of lines whose trimmed text equals
// the trimmed lines of old. new is inserted verbatim.
func replaceFuzzy(path, content, old, new string) (string, error) {
	search := strings.Split(old, "\n")
	trailingNewline := len(search) > 1 && search[len(search)-1] == ""
	if trailingNewline {
		search = search[:len(search)-1]
	}
	for i := range search {
		search[i] = strings.TrimSpace(search[i])
	}

	lines := strings.Split(content, "\n")
	start := 0
	for i := 0; i+len(search) <= len(lines); i++ {
		if windowMatches(lines[i:i+len(search)], search) {
			end := start
			for j, l := range lines[i : i+len(search)] {
				end += len(l)
				if j < len(search)-1 {
					end++
				}
			}
			if trailingNewline && end < len(content) {
				end++
			}
			return content[:start] + new + content[end:], nil
		}
		start += len(lines[i]) + 1
	}
	return "", fmt.Errorf("fuzzy replace %s: no matching block of %d lines: %w", path, len(search), store.ErrPatch)
}

func windowMatches(window, trimmed []string) bool {
	for j, l := range window {
		if strings.TrimSpace(l) != trimmed[j] {
			return false
		}
	}
	return true
}

// insertAt inserts text at the start of 0-based line. Inserting at the line
// count of a file without a final newline appends one first.
func insertAt(path, content string, line int, text string) (string, error) {
	lines := splitLines(content)
	if line > len(lines) {
		return "", fmt.Errorf("insert %s: line %d out of range, file has %d lines: %w", path, line, len(lines), store.ErrPatch)
	}
	offset := 0
	for _, l := range lines[:line] {
		offset += len(l) + 1
	}
	if line == len(lines) && content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return content[:offset] + text + content[offset:], nil
}

// splitLines splits on "\n" without producing a trailing empty line for a
// final newline. Carriage returns stay in the line.
func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.Split(content, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// Excerpt returns the text a View or ViewRange shows, with 1-based line
// numbers. Other kinds return an error.
func (c Change) Excerpt(content string) (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}
	lines := splitLines(content)
	first, last := 1, len(lines)
	switch c.Kind {
	case KindView:
	case KindViewRange:
		if c.Start > len(lines) && !(c.Start == 1 && len(lines) == 0) {
			return "", fmt.Errorf("view range %s: start %d beyond %d lines: %w", c.Path, c.Start, len(lines), store.ErrPatch)
		}
		first = c.Start
		if c.End != 0 && c.End < last {
			last = c.End
		}
	default:
		return "", fmt.Errorf("%s has no excerpt: %w", c.Name(), store.ErrInternal)
	}

	width := len(fmt.Sprint(last))
	var b strings.Builder
	for n := first; n <= last; n++ {
		fmt.Fprintf(&b, "%*d  %s\n", width, n, lines[n-1])
	}
	return b.String(), nil
}
