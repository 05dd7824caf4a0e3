package wfs

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/dendrascience/wfs/disk"
)

// Kind selects the type of object Create makes.
type Kind uint32

const (
	KindFile = Kind(disk.S_IFREG)
	KindDir  = Kind(disk.S_IFDIR)
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDir:
		return "directory"
	}
	return fmt.Sprintf("Kind(%#o)", uint32(k))
}

// Cred is the owner recorded on new objects.
type Cred struct {
	UID uint32
	GID uint32
}

// Create adds name under the directory at parent and returns the new id.
// The updated parent record is appended before the new object's record.
func (fs *FS) Create(parent, name string, kind Kind, perm uint32, cred Cred) (uint32, error) {
	if kind != KindFile && kind != KindDir {
		return 0, fmt.Errorf("%w: unknown kind %v", ErrInvalid, kind)
	}
	if len(name) > disk.MaxNameLen {
		return 0, fmt.Errorf("%q: %w", name, ErrNameTooLong)
	}
	if !disk.ValidName(name) {
		return 0, fmt.Errorf("%w: bad name %q", ErrInvalid, name)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.img.ReadOnly() {
		return 0, ErrReadOnly
	}
	dir, err := fs.resolve(parent)
	if err != nil {
		return 0, err
	}
	if !dir.Inode.IsDir() {
		return 0, fmt.Errorf("create in %s: %w", parent, ErrNotDir)
	}
	entries, err := disk.DecodeDirents(dir.Payload)
	if err != nil {
		return 0, err
	}
	if id, ok := lookupName(entries, name); ok {
		live, err := fs.liveID(id)
		if err != nil {
			return 0, err
		}
		if live {
			return 0, fmt.Errorf("create %s in %s: %w", name, parent, ErrExists)
		}
		// A stale entry for a tombstoned id is replaced.
		entries = slices.DeleteFunc(entries, func(e disk.Dirent) bool { return e.Name == name })
	}

	id, err := fs.nextID()
	if err != nil {
		return 0, err
	}
	entries = append(entries, disk.Dirent{Name: name, ID: uint64(id)})

	now := fs.now()
	child := disk.Inode{
		ID:    id,
		Mode:  uint32(kind) | perm&disk.PermMask,
		UID:   cred.UID,
		GID:   cred.GID,
		Atime: now,
		Mtime: now,
		Ctime: now,
		Links: 1,
	}
	if err := fs.commit(
		disk.EncodeRecord(dir.Inode, disk.EncodeDirents(entries)),
		disk.EncodeRecord(child, nil),
	); err != nil {
		return 0, err
	}
	fs.logger.Debug("created", "parent", parent, "name", name, "id", id, "kind", kind)
	return id, nil
}

// liveID reports whether id's newest record is live. A missing id is a
// dangling reference.
func (fs *FS) liveID(id uint64) (bool, error) {
	if id > math.MaxUint32 {
		return false, fmt.Errorf("%w: reference to id %d out of range", ErrCorrupt, id)
	}
	e, err := fs.findLatest(uint32(id))
	if errors.Is(err, ErrNotFound) {
		return false, fmt.Errorf("%w: dangling reference to id %d", ErrCorrupt, id)
	}
	if err != nil {
		return false, err
	}
	return !e.Inode.IsDeleted(), nil
}

// Write copies data into the file at path starting at offset and returns
// len(data). Writing past the end zero-fills the gap.
func (fs *FS) Write(path string, data []byte, offset int64) (int, error) {
	if offset < 0 {
		return 0, fmt.Errorf("%w: negative offset %d", ErrInvalid, offset)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.img.ReadOnly() {
		return 0, ErrReadOnly
	}
	e, err := fs.resolve(path)
	if err != nil {
		return 0, err
	}
	if e.Inode.IsDir() {
		return 0, fmt.Errorf("write %s: %w", path, ErrIsDir)
	}
	if len(data) == 0 {
		return 0, nil
	}

	end := uint64(offset) + uint64(len(data))
	if end > uint64(len(fs.img.Bytes())) {
		return 0, fmt.Errorf("%w: write ends at %d, beyond image capacity", ErrNoSpace, end)
	}
	payload := e.Payload
	if end > uint64(len(payload)) {
		payload = append(payload, make([]byte, end-uint64(len(payload)))...)
	}
	copy(payload[offset:], data)

	ino := e.Inode
	now := fs.now()
	ino.Atime, ino.Mtime, ino.Ctime = now, now, now
	if err := fs.commit(disk.EncodeRecord(ino, payload)); err != nil {
		return 0, err
	}
	return len(data), nil
}

// Read copies up to len(buf) bytes of the file at path starting at offset.
// Reading at or past the end returns 0.
func (fs *FS) Read(path string, buf []byte, offset int64) (int, error) {
	if offset < 0 {
		return 0, fmt.Errorf("%w: negative offset %d", ErrInvalid, offset)
	}

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	e, err := fs.resolve(path)
	if err != nil {
		return 0, err
	}
	if e.Inode.IsDir() {
		return 0, fmt.Errorf("read %s: %w", path, ErrIsDir)
	}
	if offset >= int64(len(e.Payload)) {
		return 0, nil
	}
	return copy(buf, e.Payload[offset:]), nil
}

// Unlink removes path from its parent. Directories must be empty. A
// tombstone for the target is appended before the updated parent.
func (fs *FS) Unlink(path string) error {
	dirParts, name, err := splitParent(path)
	if err != nil {
		return err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.img.ReadOnly() {
		return ErrReadOnly
	}
	dir, err := fs.walk(dirParts, path)
	if err != nil {
		return err
	}
	if !dir.Inode.IsDir() {
		return fmt.Errorf("unlink %s: %w", path, ErrNotDir)
	}
	entries, err := disk.DecodeDirents(dir.Payload)
	if err != nil {
		return err
	}
	id, ok := lookupName(entries, name)
	if !ok {
		return fmt.Errorf("unlink %s: %w", path, ErrNotFound)
	}
	target, err := fs.walk(append(dirParts, name), path)
	if err != nil {
		return err
	}
	if target.Inode.IsDir() && len(target.Payload) > 0 {
		return fmt.Errorf("unlink %s: %w", path, ErrNotEmpty)
	}

	entries = slices.DeleteFunc(entries, func(e disk.Dirent) bool { return e.ID == id })

	tomb := target.Inode
	tomb.Deleted = 1
	tomb.Ctime = fs.now()
	if err := fs.commit(
		disk.EncodeRecord(tomb, nil),
		disk.EncodeRecord(dir.Inode, disk.EncodeDirents(entries)),
	); err != nil {
		return err
	}
	fs.logger.Debug("unlinked", "path", path, "id", target.Inode.ID)
	return nil
}

// SetAttr lists the attributes Setattr changes. Nil fields are left alone.
type SetAttr struct {
	Size  *uint64
	Mode  *uint32
	UID   *uint32
	GID   *uint32
	Atime *time.Time
	Mtime *time.Time
}

// Setattr appends one record for path with the requested changes applied.
// Size truncates or zero-extends regular files. Only permission bits of
// Mode are used; the type never changes.
func (fs *FS) Setattr(path string, sa SetAttr) (Attr, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.img.ReadOnly() {
		return Attr{}, ErrReadOnly
	}
	e, err := fs.resolve(path)
	if err != nil {
		return Attr{}, err
	}

	ino := e.Inode
	payload := e.Payload
	now := fs.now()
	if sa.Size != nil {
		if ino.IsDir() {
			return Attr{}, fmt.Errorf("truncate %s: %w", path, ErrIsDir)
		}
		size := *sa.Size
		if size > uint64(len(fs.img.Bytes())) {
			return Attr{}, fmt.Errorf("%w: size %d beyond image capacity", ErrNoSpace, size)
		}
		if size <= uint64(len(payload)) {
			payload = payload[:size]
		} else {
			payload = append(payload, make([]byte, size-uint64(len(payload)))...)
		}
		ino.Mtime = now
	}
	if sa.Mode != nil {
		ino.Mode = ino.Mode&disk.S_IFMT | *sa.Mode&disk.PermMask
	}
	if sa.UID != nil {
		ino.UID = *sa.UID
	}
	if sa.GID != nil {
		ino.GID = *sa.GID
	}
	if sa.Atime != nil {
		ino.Atime = uint32(sa.Atime.Unix())
	}
	if sa.Mtime != nil {
		ino.Mtime = uint32(sa.Mtime.Unix())
	}
	ino.Ctime = now

	rec := disk.EncodeRecord(ino, payload)
	if err := fs.commit(rec); err != nil {
		return Attr{}, err
	}
	ino.Size = uint32(len(payload))
	return attrOf(ino), nil
}
