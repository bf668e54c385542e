package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/ByteMirror/editstore/config"
)

// Directory is a filesystem subtree. Every path is confined to the root.
type Directory struct {
	root AbsPath
	opts ListOptions

	// selfWrites remembers when the engine last touched a path so the
	// watcher can tell its own writes from out-of-band edits.
	selfWrites sync.Map // rel -> time.Time
}

// NewDirectory returns a Directory rooted at root, which must exist.
func NewDirectory(root AbsPath, opts ListOptions) (*Directory, error) {
	info, err := os.Stat(root.String())
	if err != nil {
		return nil, wrapFSError("open directory", root.String(), err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("open directory %s: not a directory: %w", root, ErrPath)
	}
	return &Directory{root: root, opts: opts}, nil
}

func (d *Directory) Root() AbsPath { return d.root }

// Options returns the listing options the directory was opened with.
func (d *Directory) Options() ListOptions { return d.opts }

// Resolve confines p (root-relative or absolute) to the root and returns
// its root-relative form.
func (d *Directory) Resolve(p string) (string, error) {
	if globStart(p) {
		return "", fmt.Errorf("resolve %q: glob is not a file path: %w", p, ErrPath)
	}
	rel, err := Normalize(d.root, d.root, p)
	if err != nil {
		return "", err
	}
	if rel == "." {
		return "", fmt.Errorf("resolve %q: names the root directory: %w", p, ErrPath)
	}
	return rel, nil
}

// absPath resolves p and rejects targets that leave the root through a
// symlink, including symlinked parents of files that do not exist yet.
func (d *Directory) absPath(p string) (string, string, error) {
	rel, err := d.Resolve(p)
	if err != nil {
		return "", "", err
	}
	target := d.root.Join(rel)

	rootReal, err := filepath.EvalSymlinks(d.root.String())
	if err != nil {
		return "", "", wrapFSError("resolve root", d.root.String(), err)
	}

	existing := target
	for {
		if _, err := os.Lstat(existing); err == nil {
			break
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", "", fmt.Errorf("stat %s: %w: %w", existing, ErrIO, err)
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			break
		}
		existing = parent
	}
	existingReal, err := filepath.EvalSymlinks(existing)
	if err != nil {
		return "", "", wrapFSError("resolve", existing, err)
	}
	suffix, err := filepath.Rel(existing, target)
	if err != nil {
		return "", "", fmt.Errorf("resolve %q: %w: %w", p, ErrInternal, err)
	}
	resolved := filepath.Clean(filepath.Join(existingReal, suffix))
	if !withinRoot(rootReal, resolved) {
		return "", "", fmt.Errorf("resolve %q: escapes root via symlink: %w", p, ErrPath)
	}
	return rel, target, nil
}

func withinRoot(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (d *Directory) List() ([]string, error) {
	return List(d.root, d.opts)
}

func (d *Directory) Read(p string) (string, error) {
	_, abs, err := d.absPath(p)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return "", wrapFSError("read", p, err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("read %s: content is not valid UTF-8: %w", p, ErrInternal)
	}
	return string(data), nil
}

// Write creates parent directories as needed and keeps the mode of an
// existing file.
func (d *Directory) Write(p, content string) error {
	rel, abs, err := d.absPath(p)
	if err != nil {
		return err
	}
	perm := os.FileMode(0644)
	if info, err := os.Stat(abs); err == nil {
		if info.IsDir() {
			return fmt.Errorf("write %s: is a directory: %w", p, ErrPath)
		}
		perm = info.Mode().Perm()
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return fmt.Errorf("write %s: create parents: %w: %w", p, ErrIO, err)
	}
	d.selfWrites.Store(rel, time.Now())
	if err := config.AtomicWriteFile(abs, []byte(content), perm); err != nil {
		return fmt.Errorf("write %s: %w: %w", p, ErrIO, err)
	}
	return nil
}

func (d *Directory) Remove(p string) error {
	rel, abs, err := d.absPath(p)
	if err != nil {
		return err
	}
	info, err := os.Lstat(abs)
	if err != nil {
		return wrapFSError("remove", p, err)
	}
	if info.IsDir() {
		return fmt.Errorf("remove %s: is a directory: %w", p, ErrPath)
	}
	d.selfWrites.Store(rel, time.Now())
	if err := os.Remove(abs); err != nil {
		return wrapFSError("remove", p, err)
	}
	return nil
}

// touchedSince reports whether the engine wrote rel after t.
func (d *Directory) touchedSince(rel string, t time.Time) bool {
	v, ok := d.selfWrites.Load(rel)
	if !ok {
		return false
	}
	return !v.(time.Time).Before(t)
}
