package wfs

import (
	"fmt"
	"math"
	"strings"

	"github.com/dendrascience/wfs/disk"
)

// Entry is a copy of one log record.
type Entry struct {
	Offset  uint32
	Inode   disk.Inode
	Payload []byte
}

// FindLatest returns the newest record for id, tombstone or not. Callers
// decide what a tombstone means; it always shadows older live records.
func (fs *FS) FindLatest(id uint32) (*Entry, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.findLatest(id)
}

func (fs *FS) findLatest(id uint32) (*Entry, error) {
	buf := fs.img.Bytes()
	found := false
	var latest uint32

	sc := disk.NewScanner(buf, fs.head)
	for sc.Next() {
		rec := sc.Record()
		if rec.Inode.ID == id {
			latest = rec.Offset
			found = true
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("id %d: %w", id, ErrNotFound)
	}

	rec, err := disk.RecordAt(buf, fs.head, latest)
	if err != nil {
		return nil, err
	}
	return &Entry{
		Offset:  rec.Offset,
		Inode:   rec.Inode,
		Payload: append([]byte(nil), rec.Payload...),
	}, nil
}

// nextID returns one past the largest id anywhere in the log.
func (fs *FS) nextID() (uint32, error) {
	var max uint32
	sc := disk.NewScanner(fs.img.Bytes(), fs.head)
	for sc.Next() {
		if id := sc.Record().Inode.ID; id > max {
			max = id
		}
	}
	if err := sc.Err(); err != nil {
		return 0, err
	}
	if max == math.MaxUint32 {
		return 0, fmt.Errorf("%w: inode ids exhausted", ErrNoSpace)
	}
	return max + 1, nil
}

// Resolve walks path from the root and returns the live record it names.
func (fs *FS) Resolve(path string) (*Entry, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.resolve(path)
}

func (fs *FS) resolve(path string) (*Entry, error) {
	parts, err := splitPath(path)
	if err != nil {
		return nil, err
	}
	return fs.walk(parts, path)
}

func (fs *FS) walk(parts []string, path string) (*Entry, error) {
	cur, err := fs.findLatest(disk.RootID)
	if err != nil {
		return nil, fmt.Errorf("%w: root record missing", ErrCorrupt)
	}
	if cur.Inode.IsDeleted() {
		return nil, fmt.Errorf("%w: root is tombstoned", ErrCorrupt)
	}

	for _, name := range parts {
		if !cur.Inode.IsDir() {
			return nil, fmt.Errorf("resolve %s: %w", path, ErrNotDir)
		}
		entries, err := disk.DecodeDirents(cur.Payload)
		if err != nil {
			return nil, fmt.Errorf("directory id %d: %w", cur.Inode.ID, err)
		}
		id, ok := lookupName(entries, name)
		if !ok {
			return nil, fmt.Errorf("resolve %s: %w", path, ErrNotFound)
		}
		if id > math.MaxUint32 {
			return nil, fmt.Errorf("%w: directory id %d references id %d out of range", ErrCorrupt, cur.Inode.ID, id)
		}
		next, err := fs.findLatest(uint32(id))
		if err != nil {
			return nil, fmt.Errorf("%w: directory id %d references missing id %d", ErrCorrupt, cur.Inode.ID, id)
		}
		if next.Inode.IsDeleted() {
			return nil, fmt.Errorf("resolve %s: %w", path, ErrNotFound)
		}
		cur = next
	}
	return cur, nil
}

func lookupName(entries []disk.Dirent, name string) (uint64, bool) {
	for _, e := range entries {
		if e.Name == name {
			return e.ID, true
		}
	}
	return 0, false
}

// splitPath splits a slash-delimited path into components. Empty and "."
// components are skipped, so "" and "/" both name the root.
func splitPath(path string) ([]string, error) {
	var parts []string
	for _, c := range strings.Split(path, "/") {
		switch c {
		case "", ".":
			continue
		case "..":
			return nil, fmt.Errorf("%w: path %q contains ..", ErrInvalid, path)
		}
		if len(c) > disk.MaxNameLen {
			return nil, fmt.Errorf("%q: %w", c, ErrNameTooLong)
		}
		if strings.IndexByte(c, 0) >= 0 {
			return nil, fmt.Errorf("%w: path %q contains NUL", ErrInvalid, path)
		}
		parts = append(parts, c)
	}
	return parts, nil
}

// splitParent returns the components of path's parent and its final name.
// The root has no parent.
func splitParent(path string) ([]string, string, error) {
	parts, err := splitPath(path)
	if err != nil {
		return nil, "", err
	}
	if len(parts) == 0 {
		return nil, "", fmt.Errorf("%w: the root directory has no parent", ErrInvalid)
	}
	return parts[:len(parts)-1], parts[len(parts)-1], nil
}
