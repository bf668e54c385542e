package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ByteMirror/editstore/config"
	"github.com/ByteMirror/editstore/store"
)

const stateFileVersion = 1

type stateFile struct {
	Version   int             `json:"version"`
	SessionID string          `json:"session_id"`
	State     serializedState `json:"state"`
}

type serializedState struct {
	Root           string            `json:"root,omitempty"`
	Memory         map[string]string `json:"memory"`
	Snapshots      []snapshotEntry   `json:"snapshots"`
	NextSnapshotID uint64            `json:"next_snapshot_id"`
}

func (s *State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.serialize())
}

// UnmarshalJSON restores memory and the snapshot stack. The recorded
// directory root is not re-attached; see Load.
func (s *State) UnmarshalJSON(data []byte) error {
	var ss serializedState
	if err := json.Unmarshal(data, &ss); err != nil {
		return fmt.Errorf("decode state: %w: %w", store.ErrInternal, err)
	}
	return s.restore(ss)
}

func (s *State) serialize() serializedState {
	ss := serializedState{
		Memory:         s.memory.Entries(),
		Snapshots:      s.snapshots,
		NextSnapshotID: s.nextID,
	}
	if ss.Snapshots == nil {
		ss.Snapshots = []snapshotEntry{}
	}
	if s.directory != nil {
		ss.Root = s.directory.Root().String()
	}
	return ss
}

func (s *State) restore(ss serializedState) error {
	for _, e := range ss.Snapshots {
		if e.ID >= ss.NextSnapshotID {
			return fmt.Errorf("decode state: snapshot %d not below next id %d: %w", e.ID, ss.NextSnapshotID, store.ErrInternal)
		}
		for _, p := range e.Snapshot.Created {
			if _, ok := e.Snapshot.Content[p]; !ok {
				return fmt.Errorf("decode state: created path %s missing from snapshot %d: %w", p, e.ID, store.ErrInternal)
			}
		}
	}
	if s.opts == (Options{}) {
		s.opts = DefaultOptions()
	}
	s.memory = store.NewMemory(ss.Memory)
	s.snapshots = ss.Snapshots
	s.nextID = ss.NextSnapshotID
	return nil
}

// Save writes the state to path as versioned JSON, atomically.
func (s *State) Save(path string) error {
	data, err := json.MarshalIndent(stateFile{
		Version:   stateFileVersion,
		SessionID: s.sessionID,
		State:     s.serialize(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w: %w", store.ErrInternal, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("save state: %w: %w", store.ErrIO, err)
	}
	if err := config.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("save state: %w: %w", store.ErrIO, err)
	}
	return nil
}

// Load reads a state file written by Save. dir is attached when non-nil;
// otherwise the recorded root, if any, is reopened with default listing
// options. A missing file is ErrNotFound.
func Load(path string, opts Options, dir *store.Directory) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load state %s: %w: %w", path, store.ErrNotFound, err)
		}
		return nil, fmt.Errorf("load state %s: %w: %w", path, store.ErrIO, err)
	}

	var f stateFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("load state %s: %w: %w", path, store.ErrInternal, err)
	}
	if f.Version != stateFileVersion {
		return nil, fmt.Errorf("load state %s: unsupported version %d: %w", path, f.Version, store.ErrInternal)
	}

	s := New(opts)
	if f.SessionID != "" {
		s.sessionID = f.SessionID
	}
	if err := s.restore(f.State); err != nil {
		return nil, err
	}

	if dir == nil && f.State.Root != "" {
		root, err := store.NewAbsPath(f.State.Root)
		if err != nil {
			return nil, err
		}
		if dir, err = store.NewDirectory(root, store.ListOptions{}); err != nil {
			return nil, err
		}
	}
	if dir != nil {
		if err := s.AttachDirectory(dir); err != nil {
			return nil, err
		}
	}
	return s, nil
}
