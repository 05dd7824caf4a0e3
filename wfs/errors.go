package wfs

import (
	"errors"
	"fmt"
	"syscall"

	"github.com/dendrascience/wfs/disk"
)

// Sentinel errors for package wfs.
// These errors can be checked with errors.Is() for specific error handling.
var (
	ErrNotFound = errors.New("no such file or directory")
	ErrExists   = errors.New("file exists")
	ErrNotDir   = errors.New("not a directory")
	ErrIsDir    = errors.New("is a directory")
	ErrNotEmpty = errors.New("directory not empty")
	ErrNoSpace  = errors.New("no space left in image")
	ErrInvalid  = errors.New("invalid argument")
	ErrReadOnly = errors.New("read-only image")

	// ErrCorrupt is the same value as disk.ErrCorrupt so that format errors
	// surfaced by the disk package match it too.
	ErrCorrupt = disk.ErrCorrupt

	ErrNameTooLong = fmt.Errorf("%w: name longer than %d bytes", ErrInvalid, disk.MaxNameLen)
)

// Errno maps an engine error onto the errno a filesystem call should fail
// with. A nil error maps to 0.
func Errno(err error) syscall.Errno {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrNotFound):
		return syscall.ENOENT
	case errors.Is(err, ErrExists):
		return syscall.EEXIST
	case errors.Is(err, ErrNotDir):
		return syscall.ENOTDIR
	case errors.Is(err, ErrIsDir):
		return syscall.EISDIR
	case errors.Is(err, ErrNotEmpty):
		return syscall.ENOTEMPTY
	case errors.Is(err, ErrNoSpace):
		return syscall.ENOSPC
	case errors.Is(err, ErrNameTooLong):
		return syscall.ENAMETOOLONG
	case errors.Is(err, ErrInvalid):
		return syscall.EINVAL
	case errors.Is(err, ErrReadOnly):
		return syscall.EROFS
	}
	return syscall.EIO
}
