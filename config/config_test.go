package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), ConfigFileName))
	require.NoError(t, err)
	assert.Equal(t, DefaultDiffWriteThreshold, cfg.DiffWriteThreshold)
	assert.Equal(t, DefaultDiffContextLines, cfg.DiffContextLines)
}

func TestLoadConfig_ResolvesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)
	data := "root: workspace\ndiff_write_threshold: 0.8\nseed_dir: /abs/seeds\nwatch: true\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "workspace"), cfg.Root)
	assert.Equal(t, "/abs/seeds", cfg.SeedDir)
	assert.Equal(t, 0.8, cfg.DiffWriteThreshold)
	assert.Equal(t, DefaultDiffContextLines, cfg.DiffContextLines)
	assert.True(t, cfg.Watch)
}

func TestLoadConfig_ZeroDiffContextIsKept(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("diff_context_lines: 0\n"), 0600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.DiffContextLines)

	require.NoError(t, os.WriteFile(path, []byte("diff_context_lines: -2\n"), 0600))
	cfg, err = LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultDiffContextLines, cfg.DiffContextLines)

	cfg.DiffContextLines = 0
	require.NoError(t, SaveConfig(path, cfg))
	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 0, loaded.DiffContextLines)
}

func TestLoadConfig_RejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("root: [unterminated"), 0600))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestSaveConfig_RoundTripsThroughDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", ConfigFileName)
	cfg := DefaultConfig()
	cfg.Root = "/srv/project"
	cfg.IncludeHidden = true
	require.NoError(t, SaveConfig(path, cfg))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestAtomicWriteFile_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")
	require.NoError(t, AtomicWriteFile(path, []byte("one"), 0644))
	require.NoError(t, AtomicWriteFile(path, []byte("two"), 0644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestGetConfigDir_HonorsEnv(t *testing.T) {
	t.Setenv("EDITSTORE_DIR", "/tmp/editstore-test")
	dir, err := GetConfigDir()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/editstore-test", dir)
}
