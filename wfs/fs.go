package wfs

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/dendrascience/wfs/disk"
)

// Options configures an engine.
type Options struct {
	// ReadOnly opens the image without write access. Only used by Open.
	ReadOnly bool

	// SyncWrites flushes the image after every committed append.
	SyncWrites bool

	// Now provides timestamps for new records. If nil, time.Now is used.
	Now func() time.Time

	// Logger receives diagnostic messages. If nil, errors go to stderr.
	Logger *slog.Logger
}

// FS is a mounted image. It owns the image and the cached head for its
// lifetime; all operations go through it.
type FS struct {
	img    disk.Image
	head   uint32
	opts   Options
	logger *slog.Logger

	// mu serializes appends. Readers hold it shared so they never see a
	// record before head covers it.
	mu sync.RWMutex
}

// Open maps the image at path and returns an engine over it.
func Open(path string, opts Options) (*FS, error) {
	img, err := disk.Open(path, disk.Options{ReadOnly: opts.ReadOnly})
	if err != nil {
		return nil, err
	}
	fs, err := New(img, opts)
	if err != nil {
		img.Close()
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return fs, nil
}

// New returns an engine over an already mapped image. The superblock and
// root record are validated up front.
func New(img disk.Image, opts Options) (*FS, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelError,
		}))
	}

	sb, err := disk.DecodeSuperBlock(img.Bytes())
	if err != nil {
		return nil, err
	}
	if sb.Head < disk.LogStart || uint64(sb.Head) > uint64(len(img.Bytes())) {
		return nil, fmt.Errorf("%w: head %d outside image of %d bytes", ErrCorrupt, sb.Head, len(img.Bytes()))
	}

	fs := &FS{
		img:    img,
		head:   sb.Head,
		opts:   opts,
		logger: logger,
	}

	root, err := fs.findLatest(disk.RootID)
	if err != nil {
		return nil, fmt.Errorf("%w: root record: %v", ErrCorrupt, err)
	}
	if root.Inode.IsDeleted() || !root.Inode.IsDir() {
		return nil, fmt.Errorf("%w: root is not a live directory", ErrCorrupt)
	}

	logger.Debug("image opened", "capacity", len(img.Bytes()), "head", sb.Head)
	return fs, nil
}

// Close flushes and releases the image.
func (fs *FS) Close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.img.Close()
}

// Sync flushes pending writes to the backing file.
func (fs *FS) Sync() error {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.img.Sync()
}

// Head returns the current end of the log.
func (fs *FS) Head() uint32 {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.head
}

func (fs *FS) now() uint32 {
	return uint32(fs.opts.Now().Unix())
}

// commit appends records in order and then publishes them by advancing
// head. Capacity is checked before any byte is copied, so a failed commit
// leaves the image untouched. Callers hold fs.mu exclusively.
func (fs *FS) commit(records ...[]byte) error {
	if fs.img.ReadOnly() {
		return ErrReadOnly
	}
	var total uint64
	for _, r := range records {
		total += uint64(len(r))
	}
	buf := fs.img.Bytes()
	free := uint64(len(buf)) - uint64(fs.head)
	if total > free {
		return fmt.Errorf("%w: append of %d bytes, %d free", ErrNoSpace, total, free)
	}

	off := fs.head
	for _, r := range records {
		copy(buf[off:], r)
		off += uint32(len(r))
	}
	if err := disk.EncodeSuperBlock(buf, disk.SuperBlock{Magic: disk.Magic, Head: off}); err != nil {
		return err
	}
	fs.logger.Debug("log append", "records", len(records), "bytes", total, "head", off)
	fs.head = off

	if fs.opts.SyncWrites {
		return fs.img.Sync()
	}
	return nil
}
