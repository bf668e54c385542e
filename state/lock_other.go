//go:build !unix

package state

// LockSession is a no-op on platforms without flock.
func LockSession(path string) (release func(), err error) {
	return func() {}, nil
}
