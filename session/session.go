// Package session opens the State a binary works on: it attaches the
// configured root, seeds memory, and keeps the state file locked and
// saved between invocations.
package session

import (
	"errors"
	"fmt"
	"os"

	"github.com/ByteMirror/editstore/config"
	"github.com/ByteMirror/editstore/log"
	"github.com/ByteMirror/editstore/state"
	"github.com/ByteMirror/editstore/store"
)

// Session is an opened State plus the file it persists to.
type Session struct {
	State *state.State

	file    string
	release func()
}

// Open builds the State described by cfg. When cfg.SessionFile is set the
// file is locked for the life of the Session and loaded if it exists;
// otherwise the State lives only in this process. Memory seeds are applied
// to fresh sessions only.
func Open(cfg *config.Config) (*Session, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	dir, err := openDirectory(cfg)
	if err != nil {
		return nil, err
	}
	opts := state.OptionsFromConfig(cfg)

	s := &Session{file: cfg.SessionFile, release: func() {}}
	if s.file != "" {
		if s.release, err = state.LockSession(s.file); err != nil {
			return nil, err
		}
		st, err := state.Load(s.file, opts, dir)
		switch {
		case err == nil:
			log.InfoLog.Printf("resumed session %s from %s (%d snapshots)", st.SessionID(), s.file, len(st.Snapshots()))
			s.State = st
			return s, nil
		case !errors.Is(err, store.ErrNotFound):
			s.release()
			return nil, err
		}
	}

	st := state.New(opts)
	if dir != nil {
		if err := st.AttachDirectory(dir); err != nil {
			s.release()
			return nil, err
		}
	}
	seeds, err := loadSeeds(cfg)
	if err != nil {
		log.WarningLog.Printf("seeds: %v", err)
	}
	st.SeedMemoryFrom(seeds)
	log.InfoLog.Printf("new session %s: root=%q seeds=%d", st.SessionID(), cfg.Root, len(seeds))

	s.State = st
	return s, nil
}

func openDirectory(cfg *config.Config) (*store.Directory, error) {
	root := cfg.Root
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("get working directory: %w: %w", store.ErrIO, err)
		}
		root = wd
	}
	abs, err := store.NewAbsPath(root)
	if err != nil {
		return nil, err
	}
	return store.NewDirectory(abs, store.ListOptions{
		IncludeHidden:    cfg.IncludeHidden,
		GlobalIgnoreFile: cfg.GlobalIgnoreFile,
	})
}

func loadSeeds(cfg *config.Config) ([]config.Seed, error) {
	if cfg.SeedDir != "" {
		return config.LoadSeedsFrom(cfg.SeedDir)
	}
	return config.LoadSeeds()
}

// File is the state file path, or "" for an in-process session.
func (s *Session) File() string { return s.file }

// Save writes the State to the session file. It is a no-op for in-process
// sessions.
func (s *Session) Save() error {
	if s.file == "" {
		return nil
	}
	return s.State.Save(s.file)
}

// Close releases the session file lock.
func (s *Session) Close() {
	if s.release != nil {
		s.release()
		s.release = nil
	}
}
