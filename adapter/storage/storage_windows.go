//go:build windows

package storage

import (
	"os"
	"path/filepath"
)

func init() {
	// MkdirAll fails on a bare volume root such as "C:\".
	osSpecificEnsureDir = func(o osOps, dir string, mode os.FileMode) error {
		if dir == filepath.VolumeName(dir)+string(os.PathSeparator) {
			return nil
		}
		return o.MkdirAll(dir, mode)
	}

	// Directories cannot be opened for syncing.
	osSpecificSync = func(f *os.File, isDir bool) error {
		if isDir {
			return nil
		}
		return f.Sync()
	}
}
