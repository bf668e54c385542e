//go:build unix

package state

import (
	"fmt"
	"os"

	"github.com/ByteMirror/editstore/store"
	"golang.org/x/sys/unix"
)

// LockSession takes an exclusive advisory lock on path+".lock" so two
// processes never load, patch and save the same session file at once.
// It fails immediately if another process holds the lock.
func LockSession(path string) (release func(), err error) {
	f, err := os.OpenFile(path+".lock", os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("lock session: %w: %w", store.ErrIO, err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, fmt.Errorf("lock session %s: held by another process: %w: %w", path, store.ErrIO, err)
	}
	return func() {
		_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
		f.Close()
	}, nil
}
