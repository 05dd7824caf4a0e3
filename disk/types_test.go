package disk

import (
	"errors"
	"testing"
)

func TestSuperBlockRoundTrip(t *testing.T) {
	buf := make([]byte, SizeSuperBlock)
	if err := EncodeSuperBlock(buf, SuperBlock{Magic: Magic, Head: 1234}); err != nil {
		t.Fatal(err)
	}
	// Little-endian magic must land as ef be ad de.
	if buf[0] != 0xef || buf[3] != 0xde {
		t.Errorf("unexpected magic bytes % x", buf[:4])
	}
	sb, err := DecodeSuperBlock(buf)
	if err != nil {
		t.Fatal(err)
	}
	if sb.Head != 1234 {
		t.Errorf("head = %d, want 1234", sb.Head)
	}
}

func TestDecodeSuperBlockBadMagic(t *testing.T) {
	buf := make([]byte, SizeSuperBlock)
	EncodeSuperBlock(buf, SuperBlock{Magic: 0xcafef00d, Head: 52})
	_, err := DecodeSuperBlock(buf)
	if !errors.Is(err, ErrBadMagic) {
		t.Fatalf("err = %v, want ErrBadMagic", err)
	}
	if !errors.Is(err, ErrCorrupt) {
		t.Errorf("ErrBadMagic should match ErrCorrupt")
	}
}

func TestInodeFieldOrder(t *testing.T) {
	ino := Inode{ID: 1, Deleted: 2, Mode: 3, UID: 4, GID: 5, Flags: 6, Size: 7, Atime: 8, Mtime: 9, Ctime: 10, Links: 11}
	buf := make([]byte, SizeInode)
	if err := EncodeInode(buf, ino); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 11; i++ {
		got := byteOrder.Uint32(buf[i*4:])
		if got != uint32(i+1) {
			t.Errorf("field %d = %d, want %d", i, got, i+1)
		}
	}
	back, err := DecodeInode(buf)
	if err != nil {
		t.Fatal(err)
	}
	if back != ino {
		t.Errorf("decoded %+v, want %+v", back, ino)
	}
}

func TestDirents(t *testing.T) {
	entries := []Dirent{
		{Name: "a.txt", ID: 1},
		{Name: "0123456789012345678901234567890", ID: 1 << 40},
	}
	payload := EncodeDirents(entries)
	if len(payload) != 2*SizeDirent {
		t.Fatalf("payload is %d bytes, want %d", len(payload), 2*SizeDirent)
	}
	back, err := DecodeDirents(payload)
	if err != nil {
		t.Fatal(err)
	}
	if len(back) != 2 || back[0] != entries[0] || back[1] != entries[1] {
		t.Errorf("decoded %+v, want %+v", back, entries)
	}

	_, err = DecodeDirents(payload[:SizeDirent+3])
	if !errors.Is(err, ErrCorrupt) {
		t.Errorf("ragged payload: err = %v, want ErrCorrupt", err)
	}
}

func TestValidName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"a.txt", true},
		{"", false},
		{".", false},
		{"..", false},
		{"a/b", false},
		{"nul\x00byte", false},
		{"0123456789012345678901234567890", true},   // 31 bytes
		{"01234567890123456789012345678901", false}, // 32 bytes
	}
	for _, tt := range tests {
		if got := ValidName(tt.name); got != tt.want {
			t.Errorf("ValidName(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
