package wfs

import (
	"errors"
	"fmt"
	"slices"

	"github.com/dendrascience/wfs/disk"
)

// Problem is one inconsistency found by Check.
type Problem struct {
	ID      uint32
	Offset  uint32
	Message string
	// Fatal problems stop the check; nothing past them was examined.
	Fatal bool
}

func (p Problem) String() string {
	if p.Offset == 0 {
		return p.Message
	}
	return fmt.Sprintf("offset %d, id %d: %s", p.Offset, p.ID, p.Message)
}

// Report is the result of Check.
type Report struct {
	Capacity   uint64
	Head       uint32
	Records    int
	LiveIDs    int
	Tombstones int // ids whose newest record is a tombstone
	Superseded int // records shadowed by a newer record of the same id
	LiveBytes  uint64
	DeadBytes  uint64
	Problems   []Problem
}

// OK reports whether no problems were found.
func (r *Report) OK() bool {
	return len(r.Problems) == 0
}

func (r *Report) add(p Problem) {
	r.Problems = append(r.Problems, p)
}

// Check scans img read-only and reports its statistics and every
// inconsistency it can find. The error is non-nil only when img cannot be
// read at all.
func Check(img disk.Image) (*Report, error) {
	buf := img.Bytes()
	r := &Report{Capacity: uint64(len(buf))}

	sb, err := disk.DecodeSuperBlock(buf)
	if errors.Is(err, disk.ErrTooSmall) {
		return nil, err
	}
	if err != nil {
		r.add(Problem{Message: err.Error(), Fatal: true})
		return r, nil
	}
	r.Head = sb.Head
	if sb.Head < disk.LogStart || uint64(sb.Head) > r.Capacity {
		r.add(Problem{Message: fmt.Sprintf("head %d outside image of %d bytes", sb.Head, r.Capacity), Fatal: true})
		return r, nil
	}

	latest := make(map[uint32]disk.Record)
	sc := disk.NewScanner(buf, sb.Head)
	for sc.Next() {
		rec := sc.Record()
		r.Records++
		if prev, ok := latest[rec.Inode.ID]; ok {
			r.Superseded++
			r.DeadBytes += uint64(prev.Inode.RecordLen())
		}
		latest[rec.Inode.ID] = rec
	}
	if err := sc.Err(); err != nil {
		r.add(Problem{Message: err.Error(), Fatal: true})
		return r, nil
	}

	ids := make([]uint32, 0, len(latest))
	for id, rec := range latest {
		ids = append(ids, id)
		if rec.Inode.IsDeleted() {
			r.Tombstones++
			r.DeadBytes += uint64(rec.Inode.RecordLen())
		} else {
			r.LiveIDs++
			r.LiveBytes += uint64(rec.Inode.RecordLen())
		}
	}
	slices.Sort(ids)

	root, ok := latest[disk.RootID]
	switch {
	case !ok:
		r.add(Problem{Message: "root record missing"})
	case root.Inode.IsDeleted():
		r.add(Problem{ID: disk.RootID, Offset: root.Offset, Message: "root is tombstoned"})
	case !root.Inode.IsDir():
		r.add(Problem{ID: disk.RootID, Offset: root.Offset, Message: "root is not a directory"})
	}

	referenced := make(map[uint32]int)
	for _, id := range ids {
		rec := latest[id]
		if rec.Inode.IsDeleted() || !rec.Inode.IsDir() {
			continue
		}
		entries, err := disk.DecodeDirents(rec.Payload)
		if err != nil {
			r.add(Problem{ID: id, Offset: rec.Offset, Message: err.Error()})
			continue
		}
		seen := make(map[string]bool, len(entries))
		for _, e := range entries {
			if seen[e.Name] {
				r.add(Problem{ID: id, Offset: rec.Offset, Message: fmt.Sprintf("duplicate name %q", e.Name)})
			}
			seen[e.Name] = true

			child, ok := latest[uint32(e.ID)]
			switch {
			case e.ID > uint64(^uint32(0)) || !ok:
				r.add(Problem{ID: id, Offset: rec.Offset, Message: fmt.Sprintf("%q references missing id %d", e.Name, e.ID)})
				continue
			case child.Inode.IsDeleted():
				r.add(Problem{ID: id, Offset: rec.Offset, Message: fmt.Sprintf("%q references tombstoned id %d", e.Name, e.ID)})
				continue
			case e.ID == disk.RootID:
				r.add(Problem{ID: id, Offset: rec.Offset, Message: fmt.Sprintf("%q references the root", e.Name)})
				continue
			}
			referenced[uint32(e.ID)]++
		}
	}

	reachable := reachableFrom(latest, disk.RootID)
	for _, id := range ids {
		rec := latest[id]
		if id == disk.RootID || rec.Inode.IsDeleted() {
			continue
		}
		if !reachable[id] {
			r.add(Problem{ID: id, Offset: rec.Offset, Message: "live id is not reachable from the root"})
		}
		if n := referenced[id]; n > 1 {
			r.add(Problem{ID: id, Offset: rec.Offset, Message: fmt.Sprintf("referenced by %d directory entries", n)})
		}
	}
	return r, nil
}

// reachableFrom walks live directories breadth first from root.
func reachableFrom(latest map[uint32]disk.Record, root uint32) map[uint32]bool {
	seen := map[uint32]bool{root: true}
	queue := []uint32{root}
	for len(queue) > 0 {
		rec, ok := latest[queue[0]]
		queue = queue[1:]
		if !ok || rec.Inode.IsDeleted() || !rec.Inode.IsDir() {
			continue
		}
		entries, err := disk.DecodeDirents(rec.Payload)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.ID > uint64(^uint32(0)) {
				continue
			}
			id := uint32(e.ID)
			if !seen[id] {
				seen[id] = true
				queue = append(queue, id)
			}
		}
	}
	return seen
}
