//go:build linux

package channel

import (
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// Linux exposes the POSIX shared-memory namespace as a tmpfs mount at
// /dev/shm, so a named region is just a regular file there. This mirrors
// the teacher's per-platform split in internal/sherpa (sherpa_linux.go /
// sherpa_darwin.go), where platform-specific files converge on the same
// exported surface.
const shmDir = "/dev/shm"

func shmPath(name string) string {
	return filepath.Join(shmDir, strings.TrimPrefix(name, "/"))
}

// CreateOrOpen opens the named region, creating and zero-truncating it
// to the full header+ring size if it does not already exist, and maps
// it read/write. It is the producer's entry point.
func CreateOrOpen(name string) (*Channel, error) {
	path := shmPath(name)

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, &IOError{Op: "open", Err: err}
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, &IOError{Op: "stat", Err: err}
	}
	freshlyCreated := info.Size() == 0

	if freshlyCreated {
		if err := file.Truncate(TotalSize); err != nil {
			return nil, &IOError{Op: "truncate", Err: err}
		}
	}

	data, err := unix.Mmap(int(file.Fd()), 0, TotalSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, &IOError{Op: "mmap", Err: err}
	}

	return newView(data, name, true, freshlyCreated)
}

// OpenExisting opens the named region without creating it. It is the
// consumer's entry point; ErrNotFound is a soft failure the caller
// retries on the next callback.
func OpenExisting(name string) (*Channel, error) {
	path := shmPath(name)

	file, err := os.OpenFile(path, os.O_RDWR, 0o600)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, &IOError{Op: "open", Err: err}
	}
	defer file.Close()

	data, err := unix.Mmap(int(file.Fd()), 0, TotalSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, &IOError{Op: "mmap", Err: err}
	}

	return newView(data, name, false, false)
}

func platformUnlink(name string) error {
	if err := os.Remove(shmPath(name)); err != nil && !os.IsNotExist(err) {
		return &IOError{Op: "unlink", Err: err}
	}
	return nil
}
