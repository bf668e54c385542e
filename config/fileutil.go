package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// AtomicWriteFile replaces path with data. The bytes land in a synced
// sibling temp file named "<base>.tmp<digits>" which is renamed over path,
// then the directory is synced so the rename itself is durable.
func AtomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmpPath, err := writeTemp(dir, filepath.Base(path)+".tmp", data, perm)
	if err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	syncDir(dir)
	return nil
}

func writeTemp(dir, prefix string, data []byte, perm os.FileMode) (_ string, err error) {
	f, err := os.CreateTemp(dir, prefix)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := f.Name()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close temp file: %w", cerr)
		}
		if err != nil {
			os.Remove(tmpPath)
		}
	}()

	if err := f.Chmod(perm); err != nil {
		return "", fmt.Errorf("failed to set temp file permissions: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		return "", fmt.Errorf("failed to sync temp file: %w", err)
	}
	return tmpPath, nil
}

// syncDir is best effort; some platforms refuse to fsync a directory.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	d.Close()
}
