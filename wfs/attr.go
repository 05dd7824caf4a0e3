package wfs

import (
	"fmt"
	"os"
	"time"

	"github.com/dendrascience/wfs/disk"
)

// Attr is the OS-facing view of an inode. Device and block counts have no
// meaning in the log and are always zero.
type Attr struct {
	ID     uint32
	Mode   uint32
	Nlink  uint32
	UID    uint32
	GID    uint32
	Size   uint64
	Atime  time.Time
	Mtime  time.Time
	Ctime  time.Time
	Dev    uint64
	Blocks uint64
}

// IsDir reports whether a describes a directory.
func (a Attr) IsDir() bool {
	return a.Mode&disk.S_IFMT == disk.S_IFDIR
}

// FileMode converts Mode to an os.FileMode.
func (a Attr) FileMode() os.FileMode {
	m := os.FileMode(a.Mode & 0777)
	if a.IsDir() {
		m |= os.ModeDir
	}
	if a.Mode&0o4000 != 0 {
		m |= os.ModeSetuid
	}
	if a.Mode&0o2000 != 0 {
		m |= os.ModeSetgid
	}
	if a.Mode&0o1000 != 0 {
		m |= os.ModeSticky
	}
	return m
}

func attrOf(ino disk.Inode) Attr {
	return Attr{
		ID:    ino.ID,
		Mode:  ino.Mode,
		Nlink: ino.Links,
		UID:   ino.UID,
		GID:   ino.GID,
		Size:  uint64(ino.Size),
		Atime: time.Unix(int64(ino.Atime), 0),
		Mtime: time.Unix(int64(ino.Mtime), 0),
		Ctime: time.Unix(int64(ino.Ctime), 0),
	}
}

// Getattr returns the attributes of path.
func (fs *FS) Getattr(path string) (Attr, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	e, err := fs.resolve(path)
	if err != nil {
		return Attr{}, err
	}
	return attrOf(e.Inode), nil
}

// DirEntry is one live child of a directory.
type DirEntry struct {
	Name string
	ID   uint32
	Mode uint32
}

func (d DirEntry) IsDir() bool {
	return d.Mode&disk.S_IFMT == disk.S_IFDIR
}

// ListDir returns ".", ".." and the names in the directory at path, in
// the order they are stored. Entries whose target is tombstoned are
// skipped; an entry whose target is missing makes the listing Corrupt.
func (fs *FS) ListDir(path string) ([]string, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	entries, err := fs.children(path)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries)+2)
	names = append(names, ".", "..")
	for _, e := range entries {
		names = append(names, e.Name)
	}
	return names, nil
}

// ReadDir returns the children of the directory at path along with their
// ids and modes. Dot entries are not included.
func (fs *FS) ReadDir(path string) ([]DirEntry, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	return fs.children(path)
}

// children resolves every entry of the directory at path to its latest
// live record.
func (fs *FS) children(path string) ([]DirEntry, error) {
	entries, err := fs.dirents(path)
	if err != nil {
		return nil, err
	}
	out := make([]DirEntry, 0, len(entries))
	for _, d := range entries {
		if d.ID > uint64(^uint32(0)) {
			return nil, fmt.Errorf("%w: %s references id %d out of range", ErrCorrupt, path, d.ID)
		}
		child, err := fs.findLatest(uint32(d.ID))
		if err != nil {
			return nil, fmt.Errorf("%w: %s references missing id %d", ErrCorrupt, path, d.ID)
		}
		if child.Inode.IsDeleted() {
			continue
		}
		out = append(out, DirEntry{Name: d.Name, ID: child.Inode.ID, Mode: child.Inode.Mode})
	}
	return out, nil
}

func (fs *FS) dirents(path string) ([]disk.Dirent, error) {
	e, err := fs.resolve(path)
	if err != nil {
		return nil, err
	}
	if !e.Inode.IsDir() {
		return nil, fmt.Errorf("list %s: %w", path, ErrNotDir)
	}
	return disk.DecodeDirents(e.Payload)
}

// Stats summarizes space use in the image.
type Stats struct {
	Capacity uint64
	Head     uint64
	Free     uint64
	Records  uint64
	LiveIDs  uint64
}

// Statfs scans the log and reports space use.
func (fs *FS) Statfs() (Stats, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	buf := fs.img.Bytes()
	st := Stats{
		Capacity: uint64(len(buf)),
		Head:     uint64(fs.head),
		Free:     uint64(len(buf)) - uint64(fs.head),
	}
	latest := make(map[uint32]bool)
	sc := disk.NewScanner(buf, fs.head)
	for sc.Next() {
		rec := sc.Record()
		st.Records++
		latest[rec.Inode.ID] = !rec.Inode.IsDeleted()
	}
	if err := sc.Err(); err != nil {
		return Stats{}, err
	}
	for _, live := range latest {
		if live {
			st.LiveIDs++
		}
	}
	return st, nil
}
