package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ByteMirror/editstore/change"
	"github.com/ByteMirror/editstore/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	base := t.TempDir()
	root := filepath.Join(base, "root")
	seeds := filepath.Join(base, "seeds")
	require.NoError(t, os.MkdirAll(root, 0755))
	require.NoError(t, os.MkdirAll(seeds, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(seeds, "plan.md"), []byte("---\nkey: plan.md\n---\nship it\n"), 0644))

	cfg := config.DefaultConfig()
	cfg.Root = root
	cfg.SeedDir = seeds
	cfg.SessionFile = filepath.Join(base, "session.json")
	return cfg
}

func TestOpen_FreshSessionIsSeeded(t *testing.T) {
	cfg := testConfig(t)
	s, err := Open(cfg)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, cfg.Root, s.State.Directory().Root().String())
	body, err := s.State.Read("::plan.md")
	require.NoError(t, err)
	assert.Equal(t, "ship it\n", body)
}

func TestOpen_ResumesSavedSession(t *testing.T) {
	cfg := testConfig(t)
	s, err := Open(cfg)
	require.NoError(t, err)
	_, err = s.State.Patch(change.NewPatch().Write("a.txt", "hello").Write("::plan.md", "changed\n"))
	require.NoError(t, err)
	require.NoError(t, s.Save())
	id := s.State.SessionID()
	s.Close()

	resumed, err := Open(cfg)
	require.NoError(t, err)
	defer resumed.Close()
	assert.Equal(t, id, resumed.State.SessionID())
	require.Len(t, resumed.State.Snapshots(), 1)

	body, err := resumed.State.Read("::plan.md")
	require.NoError(t, err)
	assert.Equal(t, "changed\n", body, "seeds must not overwrite a resumed session")

	_, err = resumed.State.Revert(0)
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(cfg.Root, "a.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestOpen_LocksSessionFile(t *testing.T) {
	cfg := testConfig(t)
	s, err := Open(cfg)
	require.NoError(t, err)
	defer s.Close()

	_, err = Open(cfg)
	assert.Error(t, err)
}

func TestOpen_InProcessSession(t *testing.T) {
	cfg := testConfig(t)
	cfg.SessionFile = ""
	s, err := Open(cfg)
	require.NoError(t, err)
	defer s.Close()

	assert.Empty(t, s.File())
	assert.NoError(t, s.Save())
}
