package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDirectory(t *testing.T) *Directory {
	t.Helper()
	root, err := NewAbsPath(t.TempDir())
	require.NoError(t, err)
	dir, err := NewDirectory(root, ListOptions{})
	require.NoError(t, err)
	return dir
}

func TestDirectory_WriteCreatesParentsAndReads(t *testing.T) {
	dir := newTestDirectory(t)
	require.NoError(t, dir.Write("pkg/deep/a.go", "package deep\n"))

	content, err := dir.Read("pkg/deep/a.go")
	require.NoError(t, err)
	assert.Equal(t, "package deep\n", content)

	content, err = dir.Read(dir.Root().Join("pkg/deep/a.go"))
	require.NoError(t, err)
	assert.Equal(t, "package deep\n", content)

	files, err := dir.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"pkg/deep/a.go"}, files)
}

func TestDirectory_MissingFiles(t *testing.T) {
	dir := newTestDirectory(t)

	_, err := dir.Read("nope.txt")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, os.ErrNotExist)

	err = dir.Remove("nope.txt")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDirectory_Remove(t *testing.T) {
	dir := newTestDirectory(t)
	require.NoError(t, dir.Write("a.txt", "a"))
	require.NoError(t, dir.Remove("a.txt"))

	_, err := dir.Read("a.txt")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDirectory_RejectsEscapes(t *testing.T) {
	dir := newTestDirectory(t)

	for _, p := range []string{"../x.txt", "/etc/passwd", `..\..\x`, "*.go", "."} {
		t.Run(p, func(t *testing.T) {
			assert.ErrorIs(t, dir.Write(p, "x"), ErrPath)
			_, err := dir.Read(p)
			assert.ErrorIs(t, err, ErrPath)
		})
	}
}

func TestDirectory_RejectsSymlinkEscape(t *testing.T) {
	dir := newTestDirectory(t)
	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret.txt"), []byte("s"), 0644))
	require.NoError(t, os.Symlink(outside, dir.Root().Join("link")))

	_, err := dir.Read("link/secret.txt")
	assert.ErrorIs(t, err, ErrPath)
	assert.ErrorIs(t, dir.Write("link/new.txt", "x"), ErrPath)

	_, statErr := os.Stat(filepath.Join(outside, "new.txt"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestDirectory_WriteKeepsMode(t *testing.T) {
	dir := newTestDirectory(t)
	p := dir.Root().Join("run.sh")
	require.NoError(t, os.WriteFile(p, []byte("#!/bin/sh\n"), 0755))

	require.NoError(t, dir.Write("run.sh", "#!/bin/sh\necho hi\n"))
	info, err := os.Stat(p)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0755), info.Mode().Perm())
}

func TestDirectory_ReadRejectsBinary(t *testing.T) {
	dir := newTestDirectory(t)
	require.NoError(t, os.WriteFile(dir.Root().Join("blob.bin"), []byte{0xff, 0xfe, 0x00}, 0644))

	_, err := dir.Read("blob.bin")
	assert.ErrorIs(t, err, ErrInternal)
}

func TestNewDirectory_RequiresExistingDir(t *testing.T) {
	root, err := NewAbsPath(filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)
	_, err = NewDirectory(root, ListOptions{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDirectory_WatcherReportsExternalEditsOnly(t *testing.T) {
	dir := newTestDirectory(t)
	changes := make(chan []string, 4)
	stop, err := dir.StartWatcher(func(paths []string) { changes <- paths })
	require.NoError(t, err)
	t.Cleanup(stop)

	require.NoError(t, dir.Write("engine.txt", "mine"))
	require.NoError(t, os.WriteFile(dir.Root().Join("external.txt"), []byte("theirs"), 0644))

	select {
	case paths := <-changes:
		assert.Equal(t, []string{"external.txt"}, paths)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not report the external edit")
	}
}

func TestDirectory_WatcherStopIsIdempotent(t *testing.T) {
	dir := newTestDirectory(t)
	stop, err := dir.StartWatcher(func([]string) {})
	require.NoError(t, err)
	t.Cleanup(stop)

	assert.NotPanics(t, func() {
		stop()
		stop()
	})
}
