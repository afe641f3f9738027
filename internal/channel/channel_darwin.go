//go:build darwin

package channel

// macOS does not expose /dev/shm the way Linux does, so a named POSIX
// shared-memory object has to go through the real shm_open/shm_unlink
// syscalls via cgo. This mirrors the teacher's per-platform cgo split in
// internal/sherpa (sherpa_linux.go uses a pure-Go import, sherpa_darwin.go
// does too, but both funnel through platform-specific bindings); here the
// platform difference is deep enough that this file needs cgo directly
// rather than an alternate Go package.

/*
#include <fcntl.h>
#include <stdlib.h>
#include <sys/mman.h>
#include <sys/stat.h>
#include <unistd.h>
#include <errno.h>

static int mng_shm_open(const char *name, int oflag, mode_t mode) {
	return shm_open(name, oflag, mode);
}

static int mng_shm_unlink(const char *name) {
	return shm_unlink(name);
}
*/
import "C"

import (
	"os"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

func shmOpen(name string, oflag int, mode uint32) (int, error) {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))

	fd, err := C.mng_shm_open(cname, C.int(oflag), C.mode_t(mode))
	if fd < 0 {
		return -1, err
	}
	return int(fd), nil
}

func shmUnlink(name string) error {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))

	if rc, err := C.mng_shm_unlink(cname); rc < 0 {
		return err
	}
	return nil
}

// CreateOrOpen opens the named POSIX shared-memory object, creating and
// zero-truncating it to the full header+ring size if it does not already
// exist, and maps it read/write. It is the producer's entry point.
func CreateOrOpen(name string) (*Channel, error) {
	fd, err := shmOpen(name, syscall.O_RDWR|syscall.O_CREAT, 0o600)
	if err != nil {
		return nil, &IOError{Op: "shm_open", Err: err}
	}
	defer unix.Close(fd)

	file := os.NewFile(uintptr(fd), name)
	info, err := file.Stat()
	if err != nil {
		return nil, &IOError{Op: "stat", Err: err}
	}
	freshlyCreated := info.Size() == 0

	if freshlyCreated {
		if err := unix.Ftruncate(fd, TotalSize); err != nil {
			return nil, &IOError{Op: "ftruncate", Err: err}
		}
	}

	data, err := unix.Mmap(fd, 0, TotalSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, &IOError{Op: "mmap", Err: err}
	}

	return newView(data, name, true, freshlyCreated)
}

// OpenExisting opens the named region without creating it. It is the
// consumer's entry point; ErrNotFound is a soft failure the caller
// retries on the next callback.
func OpenExisting(name string) (*Channel, error) {
	fd, err := shmOpen(name, syscall.O_RDWR, 0o600)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, &IOError{Op: "shm_open", Err: err}
	}
	defer unix.Close(fd)

	data, err := unix.Mmap(fd, 0, TotalSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, &IOError{Op: "mmap", Err: err}
	}

	return newView(data, name, false, false)
}

func platformUnlink(name string) error {
	if err := shmUnlink(name); err != nil {
		return &IOError{Op: "shm_unlink", Err: err}
	}
	return nil
}
