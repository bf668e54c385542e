package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_ReadWriteRemove(t *testing.T) {
	seed := map[string]string{"::foo.txt": "foo"}
	mem := NewMemory(seed)
	seed["::foo.txt"] = "mutated"

	content, err := mem.Read("::foo.txt")
	require.NoError(t, err)
	assert.Equal(t, "foo", content)

	require.NoError(t, mem.Write("::bar.txt", "bar"))
	require.NoError(t, mem.Write("::bar.txt", "bar2"))
	keys, err := mem.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"::bar.txt", "::foo.txt"}, keys)

	require.NoError(t, mem.Remove("::foo.txt"))
	_, err = mem.Read("::foo.txt")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, mem.Remove("::foo.txt"), ErrNotFound)

	entries := mem.Entries()
	entries["::bar.txt"] = "changed"
	content, err = mem.Read("::bar.txt")
	require.NoError(t, err)
	assert.Equal(t, "bar2", content)
}

func TestCleanMemoryPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"::a.txt", "::a.txt"},
		{"::./a//b.txt", "::a/b.txt"},
		{"::/a.txt", "::a.txt"},
		{`::dir\a.txt`, "::dir/a.txt"},
		{"::*.txt", "::*.txt"},
		{"::", "::"},
		{"::.", "::"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanMemoryPath(tt.in))
		})
	}
	assert.True(t, IsMemoryPath("::x"))
	assert.False(t, IsMemoryPath("x::y"))
}
