package wfs

import (
	"fmt"
	"slices"

	"github.com/dendrascience/wfs/disk"
)

// CompactStats describes one compaction.
type CompactStats struct {
	RecordsBefore int
	RecordsAfter  int
	Dropped       int // ids whose newest record was a tombstone
	HeadBefore    uint32
	HeadAfter     uint32
}

// Reclaimed returns the number of log bytes freed.
func (s CompactStats) Reclaimed() uint32 {
	return s.HeadBefore - s.HeadAfter
}

// Compact rewrites the log in img so that it holds only the newest live
// record of each id, in ascending id order. The new log is built aside
// and copied over once complete, so a corrupt image is left untouched.
// The caller must have exclusive use of img.
func Compact(img disk.Image) (CompactStats, error) {
	if img.ReadOnly() {
		return CompactStats{}, ErrReadOnly
	}
	buf := img.Bytes()
	sb, err := disk.DecodeSuperBlock(buf)
	if err != nil {
		return CompactStats{}, err
	}
	body, stats, err := compactLog(buf, sb.Head)
	if err != nil {
		return stats, err
	}

	copy(buf[disk.LogStart:], body)
	head := uint32(disk.LogStart + len(body))
	clear(buf[head:sb.Head])
	if err := disk.EncodeSuperBlock(buf, disk.SuperBlock{Magic: disk.Magic, Head: head}); err != nil {
		return stats, err
	}
	stats.HeadAfter = head
	return stats, img.Sync()
}

// PlanCompact reports what Compact would do to img without changing it.
func PlanCompact(img disk.Image) (CompactStats, error) {
	buf := img.Bytes()
	sb, err := disk.DecodeSuperBlock(buf)
	if err != nil {
		return CompactStats{}, err
	}
	body, stats, err := compactLog(buf, sb.Head)
	if err != nil {
		return stats, err
	}
	stats.HeadAfter = uint32(disk.LogStart + len(body))
	return stats, nil
}

// compactLog returns the compacted log body without touching buf.
func compactLog(buf []byte, head uint32) ([]byte, CompactStats, error) {
	stats := CompactStats{HeadBefore: head}

	latest := make(map[uint32]uint32)
	sc := disk.NewScanner(buf, head)
	for sc.Next() {
		rec := sc.Record()
		latest[rec.Inode.ID] = rec.Offset
		stats.RecordsBefore++
	}
	if err := sc.Err(); err != nil {
		return nil, stats, err
	}
	if _, ok := latest[disk.RootID]; !ok {
		return nil, stats, fmt.Errorf("%w: root record missing", ErrCorrupt)
	}

	ids := make([]uint32, 0, len(latest))
	for id := range latest {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	var body []byte
	for _, id := range ids {
		rec, err := disk.RecordAt(buf, head, latest[id])
		if err != nil {
			return nil, stats, err
		}
		if rec.Inode.IsDeleted() {
			if id == disk.RootID {
				return nil, stats, fmt.Errorf("%w: root is tombstoned", ErrCorrupt)
			}
			stats.Dropped++
			continue
		}
		body = append(body, buf[rec.Offset:rec.End()]...)
		stats.RecordsAfter++
	}
	return body, stats, nil
}

// Compact compacts the engine's own image while holding the write lock.
func (fs *FS) Compact() (CompactStats, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	stats, err := Compact(fs.img)
	if stats.HeadAfter != 0 {
		fs.head = stats.HeadAfter
	}
	if err != nil {
		return stats, err
	}
	fs.logger.Info("compacted", "records_before", stats.RecordsBefore,
		"records_after", stats.RecordsAfter, "reclaimed", stats.Reclaimed())
	return stats, nil
}
