package store

import (
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// atomicTempRe matches the temp files config.AtomicWriteFile renames into place.
var atomicTempRe = regexp.MustCompile(`\.tmp\d+$`)

const (
	watchDebounce   = 500 * time.Millisecond
	selfWriteWindow = 2 * time.Second
)

// StartWatcher watches the directory tree for edits made outside the
// engine and calls onChange with the affected root-relative paths after a
// quiet period. Writes made through the Directory itself are not reported.
// Returns a stop function that is safe to call more than once.
func (d *Directory) StartWatcher(onChange func(paths []string)) (stop func(), err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return func() {}, err
	}
	if err := d.watchTree(watcher, d.root.String()); err != nil {
		watcher.Close()
		return func() {}, err
	}

	done := make(chan struct{})
	go func() {
		defer watcher.Close()
		pending := map[string]struct{}{}
		timer := time.NewTimer(24 * time.Hour) // initially idle
		timer.Stop()

		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				rel, ok := d.eventPath(event)
				if !ok {
					continue
				}
				if event.Has(fsnotify.Create) {
					if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
						_ = d.watchTree(watcher, event.Name)
						continue
					}
				}
				if d.touchedSince(rel, time.Now().Add(-selfWriteWindow)) {
					continue
				}
				pending[rel] = struct{}{}
				timer.Reset(watchDebounce)

			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}

			case <-timer.C:
				if len(pending) == 0 {
					continue
				}
				paths := make([]string, 0, len(pending))
				for rel := range pending {
					paths = append(paths, rel)
				}
				sort.Strings(paths)
				pending = map[string]struct{}{}
				onChange(paths)

			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(done) }) }, nil
}

// watchTree adds dir and every non-ignored directory below it.
func (d *Directory) watchTree(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			if p == dir {
				return err
			}
			return nil
		}
		if !entry.IsDir() {
			return nil
		}
		name := entry.Name()
		if p != d.root.String() && (name == gitDir || (!d.opts.IncludeHidden && isHidden(name))) {
			return filepath.SkipDir
		}
		return w.Add(p)
	})
}

func (d *Directory) eventPath(event fsnotify.Event) (string, bool) {
	rel, err := filepath.Rel(d.root.String(), event.Name)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	base := filepath.Base(event.Name)
	if strings.HasPrefix(rel, gitDir+"/") || (!d.opts.IncludeHidden && isHidden(base)) {
		return "", false
	}
	if atomicTempRe.MatchString(base) {
		return "", false
	}
	return rel, true
}
