package change

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/ansi"
	"github.com/muesli/reflow/indent"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// Detail selects how much a rendering shows.
type Detail int

const (
	// DetailSummary prints change and file counts.
	DetailSummary Detail = iota
	// DetailFiles adds one line per file with its change-type counts.
	DetailFiles
	// DetailFull prints every change with its before/after text.
	DetailFull
)

var (
	AdditionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#22c55e"))
	DeletionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ef4444"))
	HunkStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#0ea5e9"))

	pathStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0A868")).
			Bold(true)
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#999999", Dark: "#666666"})
)

const (
	pathColumnWidth = 48
	bodyIndent      = 4
)

// kindOrder fixes the order counts are printed in.
var kindOrder = []Kind{KindWrite, KindReplace, KindReplaceFuzzy, KindInsert, KindView, KindViewRange, KindUndo}

// Render writes c at the given detail level.
func (c Change) Render(w io.Writer, detail Detail) error {
	var b strings.Builder
	c.render(&b, detail)
	_, err := io.WriteString(w, b.String())
	return err
}

func (c Change) render(b *strings.Builder, detail Detail) {
	if detail < DetailFull {
		fmt.Fprintf(b, "%s %s\n", c.Name(), pathStyle.Render(c.target()))
		return
	}

	b.WriteString(HunkStyle.Render("@@ "+c.Name()+" "+c.target()+" @@") + "\n")
	var body string
	switch c.Kind {
	case KindWrite:
		body = prefixLines(c.Content, "+", AdditionStyle)
	case KindReplace, KindReplaceFuzzy:
		body = lineDiff(c.Old, c.New)
	case KindInsert:
		body = prefixLines(c.New, "+", AdditionStyle)
	}
	if body != "" {
		b.WriteString(indent.String(body, bodyIndent))
	}
}

// target is the path plus any line information.
func (c Change) target() string {
	switch c.Kind {
	case KindInsert:
		return fmt.Sprintf("%s:%d", c.Path, c.Line)
	case KindViewRange:
		if c.End == 0 {
			return fmt.Sprintf("%s:%d-", c.Path, c.Start)
		}
		return fmt.Sprintf("%s:%d-%d", c.Path, c.Start, c.End)
	}
	return c.Path
}

// Render writes p at the given detail level.
func (p Patch) Render(w io.Writer, detail Detail) error {
	var b strings.Builder
	b.WriteString(p.summary() + "\n")

	switch detail {
	case DetailFiles:
		for _, path := range p.AffectedFiles() {
			counts := make(map[Kind]int)
			for _, c := range p {
				if c.Path == path {
					counts[c.Kind]++
				}
			}
			name := pathStyle.Render(runewidth.Truncate(path, pathColumnWidth, "…"))
			fmt.Fprintf(&b, "  %s  %s\n", padRight(name, pathColumnWidth), dimStyle.Render(formatCounts(counts)))
		}
	case DetailFull:
		for _, c := range p {
			c.render(&b, DetailFull)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func (p Patch) summary() string {
	counts := make(map[Kind]int)
	for _, c := range p {
		counts[c.Kind]++
	}
	files := len(p.AffectedFiles())
	s := fmt.Sprintf("%d %s to %d %s", len(p), plural(len(p), "change", "changes"), files, plural(files, "file", "files"))
	if len(p) > 0 {
		s += " (" + formatCounts(counts) + ")"
	}
	return s
}

func formatCounts(counts map[Kind]int) string {
	var parts []string
	for _, k := range kindOrder {
		if n := counts[k]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, strings.ReplaceAll(string(k), "_", " ")))
		}
	}
	return strings.Join(parts, ", ")
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// padRight pads s to width printable cells, ignoring ANSI sequences.
func padRight(s string, width int) string {
	if w := ansi.PrintableRuneWidth(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

func prefixLines(text, prefix string, style lipgloss.Style) string {
	var b strings.Builder
	for _, line := range splitLines(text) {
		b.WriteString(style.Render(prefix+line) + "\n")
	}
	return b.String()
}

// lineDiff renders a line-level diff of old and new.
func lineDiff(old, new string) string {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(old, new)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var out strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			out.WriteString(prefixLines(d.Text, "+", AdditionStyle))
		case diffmatchpatch.DiffDelete:
			out.WriteString(prefixLines(d.Text, "-", DeletionStyle))
		default:
			for _, line := range splitLines(d.Text) {
				out.WriteString(" " + line + "\n")
			}
		}
	}
	return out.String()
}
