//go:build unix

package provisioner

import (
	"errors"
	"fmt"
	"os"

	"github.com/ruteri/ergo-devnet-provisioning/interfaces"
	"golang.org/x/sys/unix"
)

// nodeLock is an exclusive advisory lock on a node's file pair.
type nodeLock struct {
	f *os.File
}

// lockNode takes the lock without blocking. ErrNodeLocked means another
// Generate or Rotate is rewriting the same node.
func lockNode(path string) (*nodeLock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("%w: %s", interfaces.ErrNodeLocked, path)
		}
		return nil, fmt.Errorf("failed to lock %s: %w", path, err)
	}
	return &nodeLock{f: f}, nil
}

func (l *nodeLock) Unlock() error {
	defer l.f.Close()
	return unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
}
