// Package storage contains the default [domain.Storage] implementation.
//
// Datafiles are replaced atomically: the new content is written and synced to
// a temporary file ending in "~", which is then renamed over the datafile.
// Ownership of a datafile is tracked by an advisory lock on a sibling
// ".lock" file.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/dadi/api-filestore/domain"
)

var (
	osSpecificEnsureDir = func(o osOps, dir string, mode os.FileMode) error {
		return o.MkdirAll(dir, mode)
	}
	osSpecificSync = func(f *os.File, _ bool) error {
		return f.Sync()
	}
)

// Storage implements domain.Storage.
type Storage struct {
	osOpts      osOps
	lockTimeout time.Duration
	lockRetry   time.Duration
}

// NewStorage returns a new implementation of domain.Storage.
func NewStorage(opts ...Option) domain.Storage {
	s := Storage{
		osOpts:    &osImpl{},
		lockRetry: 50 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return &s
}

// CrashSafeWriteFile implements domain.Storage.
func (d *Storage) CrashSafeWriteFile(filename string, data []byte, dirMode os.FileMode, fileMode os.FileMode) error {
	tempFilename := filename + "~"

	if err := d.flushToStorage(filepath.Dir(filename), true, dirMode); err != nil {
		return err
	}

	exists, err := d.Exists(filename)
	if err != nil {
		return err
	}

	if exists {
		if err := d.flushToStorage(filename, false, fileMode); err != nil {
			return err
		}
	}

	if err := d.osOpts.WriteFile(tempFilename, data, fileMode); err != nil {
		return err
	}

	if err := d.flushToStorage(tempFilename, false, fileMode); err != nil {
		return err
	}

	if err := d.osOpts.Rename(tempFilename, filename); err != nil {
		return err
	}

	return d.flushToStorage(filepath.Dir(filename), true, dirMode)
}

// EnsureDatafileIntegrity implements domain.Storage.
func (d *Storage) EnsureDatafileIntegrity(filename string, mode os.FileMode) error {
	tempFilename := filename + "~"

	filenameExists, err := d.Exists(filename)
	if err != nil {
		return err
	}
	// Write was successful
	if filenameExists {
		return nil
	}

	oldFilenameExists, err := d.Exists(tempFilename)
	if err != nil {
		return err
	}
	// New database
	if !oldFilenameExists {
		return d.osOpts.WriteFile(filename, nil, mode)
	}
	return d.osOpts.Rename(tempFilename, filename)
}

// EnsureParentDirectoryExists implements domain.Storage.
func (d *Storage) EnsureParentDirectoryExists(filename string, mode os.FileMode) error {
	dir, err := filepath.Abs(filepath.Dir(filename))
	if err != nil {
		return err
	}
	return osSpecificEnsureDir(d.osOpts, dir, mode)
}

// Exists implements domain.Storage.
func (d *Storage) Exists(filename string) (bool, error) {
	_, err := d.osOpts.Stat(filename)
	if err != nil {
		if d.osOpts.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (d *Storage) flushToStorage(filename string, isDir bool, mode os.FileMode) error {
	flags := os.O_RDWR
	if isDir {
		flags = os.O_RDONLY
	}

	fileHandle, err := d.osOpts.OpenFile(filename, flags, mode)
	if err != nil {
		return domain.ErrFlushToStorage{ErrorOnFsync: err}
	}

	if err := osSpecificSync(fileHandle, isDir); err != nil {
		_ = fileHandle.Close()
		return domain.ErrFlushToStorage{ErrorOnFsync: err}
	}

	if err := fileHandle.Close(); err != nil {
		return domain.ErrFlushToStorage{ErrorOnClose: err}
	}

	return nil
}

// ReadFile implements domain.Storage.
func (d *Storage) ReadFile(filename string) ([]byte, error) {
	return d.osOpts.ReadFile(filename)
}

// Remove implements domain.Storage.
func (d *Storage) Remove(filename string) error {
	return d.osOpts.Remove(filename)
}

// Lock implements domain.Storage. Without a lock timeout a single attempt is
// made; otherwise the lock is retried until the timeout or the context
// expire.
func (d *Storage) Lock(ctx context.Context, filename string) (domain.Unlocker, error) {
	fl := flock.New(filename + ".lock")

	var locked bool
	var err error
	if d.lockTimeout <= 0 {
		locked, err = fl.TryLock()
	} else {
		lockCtx, cancel := context.WithTimeout(ctx, d.lockTimeout)
		defer cancel()
		locked, err = fl.TryLockContext(lockCtx, d.lockRetry)
		if err != nil && lockCtx.Err() != nil && ctx.Err() == nil {
			// our own timeout, not the caller's
			err = nil
		}
	}
	if err != nil {
		return nil, fmt.Errorf("locking %q: %w", filename, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", domain.ErrDatabaseLocked, filename)
	}
	return fl, nil
}
