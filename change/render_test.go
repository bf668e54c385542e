package change

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func plainRendering(t *testing.T) {
	t.Helper()
	lipgloss.SetColorProfile(termenv.Ascii)
}

func samplePatch() Patch {
	return NewPatch().
		Replace("main.go", "a\nb\nc\n", "a\nB\nc\n").
		Write("README.md", "hello\n").
		View("main.go").
		Insert("::notes.md", 0, "todo\n")
}

func TestPatchRender_Summary(t *testing.T) {
	plainRendering(t)
	var buf bytes.Buffer
	require.NoError(t, samplePatch().Render(&buf, DetailSummary))
	assert.Equal(t, "4 changes to 3 files (1 write, 1 replace, 1 insert, 1 view)\n", buf.String())

	buf.Reset()
	require.NoError(t, NewPatch().Render(&buf, DetailSummary))
	assert.Equal(t, "0 changes to 0 files\n", buf.String())
}

func TestPatchRender_Files(t *testing.T) {
	plainRendering(t)
	var buf bytes.Buffer
	require.NoError(t, samplePatch().Render(&buf, DetailFiles))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[1], "main.go")
	assert.True(t, strings.HasSuffix(lines[1], "1 replace, 1 view"))
	assert.True(t, strings.HasSuffix(lines[2], "1 write"))
	assert.Contains(t, lines[3], "::notes.md")
}

func TestPatchRender_Full(t *testing.T) {
	plainRendering(t)
	var buf bytes.Buffer
	require.NoError(t, samplePatch().Render(&buf, DetailFull))
	out := buf.String()

	assert.Contains(t, out, "@@ Replace main.go @@")
	assert.Contains(t, out, "    -b\n")
	assert.Contains(t, out, "    +B\n")
	assert.Contains(t, out, "     a\n")
	assert.Contains(t, out, "@@ Write README.md @@\n    +hello\n")
	assert.Contains(t, out, "@@ Insert ::notes.md:0 @@\n    +todo\n")
	assert.Contains(t, out, "@@ View main.go @@\n")
}

func TestChangeRender_Summary(t *testing.T) {
	plainRendering(t)
	var buf bytes.Buffer
	require.NoError(t, ViewRange("a.go", 3, 9).Render(&buf, DetailSummary))
	assert.Equal(t, "View range a.go:3-9\n", buf.String())
}
