package disk

import "fmt"

// Record is one log entry. Payload aliases the scanned buffer and is only
// valid until the buffer is next written.
type Record struct {
	Offset  uint32
	Inode   Inode
	Payload []byte
}

// End returns the offset just past the record.
func (r *Record) End() uint32 {
	return r.Offset + r.Inode.RecordLen()
}

// Scanner walks the records in [LogStart, head). Every record header and
// payload is checked to lie below head before it is exposed.
//
//	sc := disk.NewScanner(img.Bytes(), head)
//	for sc.Next() {
//		rec := sc.Record()
//	}
//	if err := sc.Err(); err != nil { ... }
type Scanner struct {
	buf  []byte
	head uint32
	pos  uint32
	rec  Record
	err  error
}

func NewScanner(buf []byte, head uint32) *Scanner {
	s := &Scanner{buf: buf, head: head, pos: LogStart}
	if uint64(head) > uint64(len(buf)) || head < LogStart {
		s.err = fmt.Errorf("%w: head %d outside image of %d bytes", ErrCorrupt, head, len(buf))
	}
	return s
}

// Next advances to the next record. It returns false at head or on error.
func (s *Scanner) Next() bool {
	if s.err != nil || s.pos == s.head {
		return false
	}
	if uint64(s.pos)+SizeInode > uint64(s.head) {
		s.err = fmt.Errorf("%w: truncated inode at offset %d (head %d)", ErrCorrupt, s.pos, s.head)
		return false
	}
	ino, err := DecodeInode(s.buf[s.pos : s.pos+SizeInode])
	if err != nil {
		s.err = err
		return false
	}
	end := uint64(s.pos) + SizeInode + uint64(ino.Size)
	if end > uint64(s.head) {
		s.err = fmt.Errorf("%w: record for id %d at offset %d runs %d bytes past head",
			ErrCorrupt, ino.ID, s.pos, end-uint64(s.head))
		return false
	}
	s.rec = Record{
		Offset:  s.pos,
		Inode:   ino,
		Payload: s.buf[s.pos+SizeInode : end],
	}
	s.pos = uint32(end)
	return true
}

func (s *Scanner) Record() Record {
	return s.rec
}

func (s *Scanner) Err() error {
	return s.err
}

// RecordAt decodes the record at off, checking it against head.
func RecordAt(buf []byte, head, off uint32) (Record, error) {
	if off < LogStart || uint64(off)+SizeInode > uint64(head) || uint64(head) > uint64(len(buf)) {
		return Record{}, fmt.Errorf("%w: no record at offset %d (head %d)", ErrCorrupt, off, head)
	}
	ino, err := DecodeInode(buf[off : off+SizeInode])
	if err != nil {
		return Record{}, err
	}
	end := uint64(off) + SizeInode + uint64(ino.Size)
	if end > uint64(head) {
		return Record{}, fmt.Errorf("%w: record at offset %d runs past head", ErrCorrupt, off)
	}
	return Record{Offset: off, Inode: ino, Payload: buf[off+SizeInode : end]}, nil
}
