package disk

import (
	"fmt"
	"os"
	"time"
)

// DefaultImageSize is the capacity mkfs uses when none is given.
const DefaultImageSize = 1 << 20

type FormatOptions struct {
	// Perm holds the root directory's permission bits. Zero means 0755.
	Perm uint32
	UID  uint32
	GID  uint32
	// Now defaults to time.Now.
	Now func() time.Time
}

// Format writes a fresh superblock and root directory record into img,
// discarding any previous log.
func Format(img Image, opts FormatOptions) error {
	buf := img.Bytes()
	if img.ReadOnly() {
		return fmt.Errorf("cannot format a read-only image")
	}
	if len(buf) < SizeSuperBlock+SizeInode {
		return fmt.Errorf("%w: %d bytes, need at least %d", ErrTooSmall, len(buf), SizeSuperBlock+SizeInode)
	}
	if opts.Perm == 0 {
		opts.Perm = 0o755
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	now := uint32(opts.Now().Unix())

	root := Inode{
		ID:    RootID,
		Mode:  S_IFDIR | opts.Perm&PermMask,
		UID:   opts.UID,
		GID:   opts.GID,
		Atime: now,
		Mtime: now,
		Ctime: now,
		Links: 1,
	}
	clear(buf)
	if err := EncodeInode(buf[LogStart:], root); err != nil {
		return err
	}
	if err := EncodeSuperBlock(buf, SuperBlock{Magic: Magic, Head: LogStart + SizeInode}); err != nil {
		return err
	}
	return img.Sync()
}

// Create creates (or truncates) the file at path to size bytes and formats
// it. This is the only setup the engine needs before first use.
func Create(path string, size int64, opts FormatOptions) error {
	if size < SizeSuperBlock+SizeInode {
		return fmt.Errorf("%w: %d bytes, need at least %d", ErrTooSmall, size, SizeSuperBlock+SizeInode)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if err := f.Truncate(size); err != nil {
		f.Close()
		return fmt.Errorf("sizing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	img, err := Open(path, Options{})
	if err != nil {
		return err
	}
	if err := Format(img, opts); err != nil {
		img.Close()
		return err
	}
	return img.Close()
}
