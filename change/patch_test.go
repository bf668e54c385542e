package change

import (
	"testing"

	"github.com/ByteMirror/editstore/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatch_AffectedFilesDeduplicatesInOrder(t *testing.T) {
	p := NewPatch().
		Write("b.go", "package b").
		Replace("a.go", "x", "y").
		View("b.go").
		Insert("::notes.md", 0, "hi\n")

	assert.Equal(t, []string{"b.go", "a.go", "::notes.md"}, p.AffectedFiles())
	assert.Len(t, p, 4)
	assert.True(t, p.HasViews())
	assert.False(t, NewPatch(Write("a", "b")).HasViews())
}

func TestPatch_ValidateJoinsErrors(t *testing.T) {
	p := NewPatch(Replace("a.go", "", "x"), Change{Kind: "bogus", Path: "b"}, Write("c", "ok"))
	err := p.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrPatch)
	assert.ErrorIs(t, err, store.ErrInternal)
}

func TestPatch_ApplyToFiltersByPath(t *testing.T) {
	p := NewPatch().
		Replace("a.txt", "one", "1").
		Write("b.txt", "ignored").
		Insert("a.txt", 0, "zero\n")

	got, err := p.ApplyTo("a.txt", "one\ntwo")
	require.NoError(t, err)
	assert.Equal(t, "zero\n1\ntwo", got)
}
