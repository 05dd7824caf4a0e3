package disk

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// Image is a fixed-capacity byte region holding a superblock and a log.
type Image interface {
	// Bytes returns the whole region. Writes to it are writes to the image.
	Bytes() []byte

	// Sync ensures writes are persisted to the backing store.
	Sync() error

	// ReadOnly reports whether Bytes must not be written.
	ReadOnly() bool

	// Close releases the region and makes the image unusable.
	Close() error
}

var ErrInUse = errors.New("image is in use by another process")

type Options struct {
	ReadOnly bool
}

var _ Image = (*fileImage)(nil)

type fileImage struct {
	f        *os.File
	data     []byte
	readOnly bool
	once     sync.Once
}

// Open maps the image file at path. An exclusive advisory lock is held for
// the lifetime of the image (shared for read-only opens), so a mounted image
// cannot be compacted underneath the mount.
func Open(path string, opts Options) (Image, error) {
	flag := os.O_RDWR
	if opts.ReadOnly {
		flag = os.O_RDONLY
	}
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, err
	}

	lock := unix.LOCK_EX
	if opts.ReadOnly {
		lock = unix.LOCK_SH
	}
	if err := unix.Flock(int(f.Fd()), lock|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("%s: %w", path, ErrInUse)
		}
		return nil, fmt.Errorf("locking %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.Size() < SizeSuperBlock+SizeInode {
		f.Close()
		return nil, fmt.Errorf("%s: %w (%d bytes)", path, ErrTooSmall, info.Size())
	}
	if info.Size() > int64(^uint32(0)) {
		f.Close()
		return nil, fmt.Errorf("%s: image larger than 4 GiB is not addressable", path)
	}

	prot := unix.PROT_READ | unix.PROT_WRITE
	if opts.ReadOnly {
		prot = unix.PROT_READ
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(info.Size()), prot, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mapping %s: %w", path, err)
	}

	return &fileImage{f: f, data: data, readOnly: opts.ReadOnly}, nil
}

func (i *fileImage) Bytes() []byte { return i.data }

func (i *fileImage) ReadOnly() bool { return i.readOnly }

func (i *fileImage) Sync() error {
	if i.readOnly {
		return nil
	}
	return unix.Msync(i.data, unix.MS_SYNC)
}

func (i *fileImage) Close() error {
	var err error
	i.once.Do(func() {
		err = errors.Join(
			i.Sync(),
			unix.Munmap(i.data),
			i.f.Close(), // releases the flock
		)
		i.data = nil
	})
	return err
}

var _ Image = (*memImage)(nil)

type memImage struct {
	data     []byte
	readOnly bool
}

// NewMemImage returns a zeroed in-memory image of the given capacity.
func NewMemImage(capacity int) Image {
	return &memImage{data: make([]byte, capacity)}
}

// MemImageFrom wraps an existing buffer without copying it.
func MemImageFrom(data []byte, readOnly bool) Image {
	return &memImage{data: data, readOnly: readOnly}
}

func (m *memImage) Bytes() []byte  { return m.data }
func (m *memImage) Sync() error    { return nil }
func (m *memImage) ReadOnly() bool { return m.readOnly }
func (m *memImage) Close() error   { return nil }
