package disk

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	Magic = 0xdeadbeef

	SizeSuperBlock = 8
	SizeInode      = 44
	SizeName       = 32
	SizeDirent     = SizeName + 8

	// LogStart is the offset of the first record.
	LogStart = SizeSuperBlock

	// MaxNameLen leaves room for the terminating NUL in the name buffer.
	MaxNameLen = SizeName - 1

	RootID = 0
)

// Mode type bits, as stored in Inode.Mode.
const (
	S_IFMT  uint32 = 0170000
	S_IFDIR uint32 = 0040000
	S_IFREG uint32 = 0100000

	PermMask uint32 = 07777
)

var byteOrder = binary.LittleEndian

var (
	ErrCorrupt  = errors.New("corrupt image")
	ErrBadMagic = fmt.Errorf("%w: bad superblock magic", ErrCorrupt)
	ErrTooSmall = errors.New("image too small")
)

type SuperBlock struct {
	Magic uint32
	Head  uint32
}

// Inode is the fixed header of every log record. Field order is the
// on-disk order.
type Inode struct {
	ID      uint32
	Deleted uint32
	Mode    uint32
	UID     uint32
	GID     uint32
	Flags   uint32
	Size    uint32
	Atime   uint32
	Mtime   uint32
	Ctime   uint32
	Links   uint32
}

func (i *Inode) IsDir() bool {
	return i.Mode&S_IFMT == S_IFDIR
}

func (i *Inode) IsRegular() bool {
	return i.Mode&S_IFMT == S_IFREG
}

func (i *Inode) IsDeleted() bool {
	return i.Deleted != 0
}

// RecordLen is the length of the record this inode heads.
func (i *Inode) RecordLen() uint32 {
	return SizeInode + i.Size
}

type rawDirent struct {
	Name [SizeName]byte
	ID   uint64
}

// Dirent is one entry of a directory payload.
type Dirent struct {
	Name string
	ID   uint64
}

func DecodeSuperBlock(b []byte) (SuperBlock, error) {
	var sb SuperBlock
	if len(b) < SizeSuperBlock {
		return sb, ErrTooSmall
	}
	if _, err := binary.Decode(b[:SizeSuperBlock], byteOrder, &sb); err != nil {
		return sb, err
	}
	if sb.Magic != Magic {
		return sb, ErrBadMagic
	}
	return sb, nil
}

func EncodeSuperBlock(b []byte, sb SuperBlock) error {
	_, err := binary.Encode(b[:SizeSuperBlock], byteOrder, &sb)
	return err
}

func DecodeInode(b []byte) (Inode, error) {
	var ino Inode
	if len(b) < SizeInode {
		return ino, fmt.Errorf("%w: short inode (%d bytes)", ErrCorrupt, len(b))
	}
	_, err := binary.Decode(b[:SizeInode], byteOrder, &ino)
	return ino, err
}

func EncodeInode(b []byte, ino Inode) error {
	_, err := binary.Encode(b[:SizeInode], byteOrder, &ino)
	return err
}

// EncodeRecord returns the inode followed by payload. The inode's Size is
// set to len(payload).
func EncodeRecord(ino Inode, payload []byte) []byte {
	ino.Size = uint32(len(payload))
	buf := make([]byte, SizeInode+len(payload))
	// Encoding a fixed-size struct into a large enough buffer cannot fail.
	_ = EncodeInode(buf, ino)
	copy(buf[SizeInode:], payload)
	return buf
}

// DecodeDirents parses a directory payload.
func DecodeDirents(payload []byte) ([]Dirent, error) {
	if len(payload)%SizeDirent != 0 {
		return nil, fmt.Errorf("%w: directory payload of %d bytes is not a multiple of %d",
			ErrCorrupt, len(payload), SizeDirent)
	}
	entries := make([]Dirent, 0, len(payload)/SizeDirent)
	for off := 0; off < len(payload); off += SizeDirent {
		var raw rawDirent
		if _, err := binary.Decode(payload[off:off+SizeDirent], byteOrder, &raw); err != nil {
			return nil, err
		}
		name := raw.Name[:]
		if i := bytes.IndexByte(name, 0); i >= 0 {
			name = name[:i]
		}
		entries = append(entries, Dirent{Name: string(name), ID: raw.ID})
	}
	return entries, nil
}

// EncodeDirents packs entries into a directory payload. Names must already
// be validated with ValidName.
func EncodeDirents(entries []Dirent) []byte {
	buf := make([]byte, len(entries)*SizeDirent)
	for i, e := range entries {
		var raw rawDirent
		copy(raw.Name[:], e.Name)
		raw.ID = e.ID
		_, _ = binary.Encode(buf[i*SizeDirent:], byteOrder, &raw)
	}
	return buf
}

// ValidName reports whether name can be stored in a directory entry.
func ValidName(name string) bool {
	if name == "" || name == "." || name == ".." || len(name) > MaxNameLen {
		return false
	}
	return !bytes.ContainsAny([]byte(name), "/\x00")
}
