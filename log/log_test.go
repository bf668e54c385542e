package log

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialize_WritesTaggedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "editstore.log")
	require.NoError(t, Initialize(path, "mcp"))
	t.Cleanup(Close)

	InfoLog.Printf("patch applied: rollback=%d", 3)
	WarningLog.Printf("watcher: %s changed", "a.go")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[mcp] INFO:")
	assert.Contains(t, string(data), "patch applied: rollback=3")
	assert.Contains(t, string(data), "[mcp] WARNING:")
}

func TestEvery_RateLimits(t *testing.T) {
	every := NewEvery(50 * time.Millisecond)
	assert.True(t, every.ShouldLog())
	assert.False(t, every.ShouldLog())

	time.Sleep(80 * time.Millisecond)
	assert.True(t, every.ShouldLog())
	assert.False(t, every.ShouldLog())
}
