package cli

import (
	"context"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"
)

const lockDirMode = 0o700

// acquireLock takes the process-wide operation lock and returns a function releasing it.
func (c *App) acquireLock(ctx context.Context) (func(), error) {
	if c.lockFile == "" {
		return func() {}, nil
	}

	fn, err := expandPath(c.lockFile)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(fn), lockDirMode); err != nil {
		return nil, errors.Wrap(err, "unable to create lock directory")
	}

	l := flock.New(fn)

	ok, err := l.TryLock()
	if err != nil {
		return nil, errors.Wrap(err, "unable to acquire lock")
	}

	if !ok {
		return nil, errors.Errorf("another steamvault operation is in progress (lock %v)", fn)
	}

	log(ctx).Debugf("acquired lock %v", fn)

	return func() {
		if err := l.Unlock(); err != nil {
			log(ctx).Errorf("unable to release lock %v: %v", fn, err)
		}
	}, nil
}
