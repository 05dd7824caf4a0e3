package wfs

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dendrascience/wfs/disk"
)

func hasProblem(r *Report, substr string) bool {
	for _, p := range r.Problems {
		if strings.Contains(p.Message, substr) {
			return true
		}
	}
	return false
}

// appendRaw commits records without any of the engine's checks.
func appendRaw(t *testing.T, fs *FS, records ...[]byte) {
	t.Helper()
	fs.mu.Lock()
	defer fs.mu.Unlock()
	require.NoError(t, fs.commit(records...))
}

func TestCheckClean(t *testing.T) {
	fs, img := newTestFS(t, 64*1024)
	populate(t, fs)

	r, err := Check(img)
	require.NoError(t, err)
	assert.True(t, r.OK(), "problems: %v", r.Problems)
	assert.Equal(t, fs.Head(), r.Head)
	assert.Equal(t, 6, r.LiveIDs)
	assert.Equal(t, 2, r.Tombstones)
	assert.Positive(t, r.Superseded)
	assert.Equal(t, uint64(fs.Head()-disk.LogStart), r.LiveBytes+r.DeadBytes)
}

func TestCheckProblems(t *testing.T) {
	root := disk.Inode{ID: disk.RootID, Mode: disk.S_IFDIR | 0755, Links: 1}
	file := func(id uint32) []byte {
		return disk.EncodeRecord(disk.Inode{ID: id, Mode: disk.S_IFREG | 0644, Links: 1}, nil)
	}
	dir := func(ents ...disk.Dirent) []byte {
		return disk.EncodeRecord(root, disk.EncodeDirents(ents))
	}

	tests := []struct {
		name    string
		records [][]byte
		want    string
	}{
		{
			name:    "dangling",
			records: [][]byte{dir(disk.Dirent{Name: "x", ID: 5})},
			want:    "references missing id 5",
		},
		{
			name: "tombstoned reference",
			records: [][]byte{
				file(1),
				disk.EncodeRecord(disk.Inode{ID: 1, Deleted: 1}, nil),
				dir(disk.Dirent{Name: "x", ID: 1}),
			},
			want: "references tombstoned id 1",
		},
		{
			name:    "orphan",
			records: [][]byte{file(3)},
			want:    "not reachable",
		},
		{
			name:    "shared",
			records: [][]byte{file(1), dir(disk.Dirent{Name: "x", ID: 1}, disk.Dirent{Name: "y", ID: 1})},
			want:    "referenced by 2",
		},
		{
			name:    "duplicate",
			records: [][]byte{file(1), file(2), dir(disk.Dirent{Name: "x", ID: 1}, disk.Dirent{Name: "x", ID: 2})},
			want:    "duplicate name",
		},
		{
			name:    "bad directory size",
			records: [][]byte{disk.EncodeRecord(root, []byte("short"))},
			want:    "not a multiple",
		},
		{
			name:    "root tombstoned",
			records: [][]byte{disk.EncodeRecord(disk.Inode{ID: disk.RootID, Deleted: 1}, nil)},
			want:    "root is tombstoned",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs, img := newTestFS(t, 4096)
			appendRaw(t, fs, tt.records...)

			r, err := Check(img)
			require.NoError(t, err)
			assert.False(t, r.OK())
			assert.True(t, hasProblem(r, tt.want), "want %q in %v", tt.want, r.Problems)
		})
	}
}

func TestCheckFatal(t *testing.T) {
	t.Run("bad magic", func(t *testing.T) {
		r, err := Check(disk.NewMemImage(256))
		require.NoError(t, err)
		require.Len(t, r.Problems, 1)
		assert.True(t, r.Problems[0].Fatal)
	})
	t.Run("truncated header", func(t *testing.T) {
		fs, img := newTestFS(t, 4096)
		populate(t, fs)
		require.NoError(t, disk.EncodeSuperBlock(img.Bytes(), disk.SuperBlock{Magic: disk.Magic, Head: fs.Head() - 1}))

		r, err := Check(img)
		require.NoError(t, err)
		require.NotEmpty(t, r.Problems)
		assert.True(t, r.Problems[0].Fatal)
		assert.Contains(t, r.Problems[0].Message, "truncated inode")
	})
	t.Run("truncated payload", func(t *testing.T) {
		fs, img := newTestFS(t, 4096)
		_, err := fs.Create("/", "a", KindFile, 0644, Cred{})
		require.NoError(t, err)
		_, err = fs.Write("/a", []byte("payload"), 0)
		require.NoError(t, err)
		require.NoError(t, disk.EncodeSuperBlock(img.Bytes(), disk.SuperBlock{Magic: disk.Magic, Head: fs.Head() - 3}))

		r, err := Check(img)
		require.NoError(t, err)
		require.NotEmpty(t, r.Problems)
		assert.True(t, r.Problems[0].Fatal)
		assert.Contains(t, r.Problems[0].Message, "3 bytes past head")
	})
	t.Run("too small", func(t *testing.T) {
		_, err := Check(disk.NewMemImage(4))
		assert.ErrorIs(t, err, disk.ErrTooSmall)
	})
}
