//go:build !windows

package persistence

import (
	"context"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

// Cannot cause EMFILE errors by opening too many file descriptors
//
// Not run on Windows as there is no clean way to set maximum file
// descriptors. Not an issue as the code itself is tested.
func (s *PersistenceTestSuite) TestCannotCauseEMFILEErrorsByOpeningTooManyFileDescriptors() {
	ctx, cancel := context.WithTimeout(s.T().Context(), 5000*time.Millisecond)
	defer cancel()

	N := 64

	var originalRLimit syscall.Rlimit
	s.NoError(syscall.Getrlimit(syscall.RLIMIT_NOFILE, &originalRLimit))

	rLimit := syscall.Rlimit{
		Cur: 128,
		Max: originalRLimit.Max,
	}
	s.NoError(syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit))
	defer func() {
		s.NoError(syscall.Setrlimit(syscall.RLIMIT_NOFILE, &originalRLimit))
	}()

	fdsFile := filepath.Join(s.T().TempDir(), "openFdsTestFile")
	var filehandles []*os.File
	var err error
	for range N {
		var filehandle *os.File
		filehandle, err = os.OpenFile(fdsFile, os.O_RDONLY|os.O_CREATE, 0666)
		if err != nil {
			break
		}
		filehandles = append(filehandles, filehandle)
	}
	s.NoError(err)
	for _, fh := range filehandles {
		fh.Close()
	}

	for range N * 2 {
		if err = s.p.PersistDatabase(ctx, s.snapshot()); err != nil {
			break
		}
		if _, err = s.p.LoadDatabase(ctx); err != nil {
			break
		}
	}
	s.NoError(err)

	select {
	case <-ctx.Done():
		s.Fail(ctx.Err().Error())
	default:
	}
}
