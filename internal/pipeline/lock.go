// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"errors"
	"fmt"
	"os"
)

// ErrRunInProgress means another collection run holds the lock.
var ErrRunInProgress = errors.New("another run is in progress")

// runLock is a lock file guarding the store against concurrent runs.
// Creation with O_EXCL is the atomicity primitive; a crashed run leaves
// the file behind and the operator removes it by hand.
type runLock struct {
	path string
}

func acquireRunLock(path string) (*runLock, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("%w (lock file %s)", ErrRunInProgress, path)
		}
		return nil, fmt.Errorf("creating lock file: %w", err)
	}
	fmt.Fprintf(f, "%d\n", os.Getpid())
	f.Close()
	return &runLock{path: path}, nil
}

func (l *runLock) release() error {
	return os.Remove(l.path)
}
