//go:build !unix

package provisioner

// nodeLock is a no-op where flock is unavailable; single-operator use only.
type nodeLock struct{}

func lockNode(path string) (*nodeLock, error) {
	return &nodeLock{}, nil
}

func (l *nodeLock) Unlock() error {
	return nil
}
