package disk

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestCreateAndOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.img")
	stamp := time.Unix(1700000000, 0)
	err := Create(path, 64*1024, FormatOptions{UID: 1000, GID: 100, Now: func() time.Time { return stamp }})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	img, err := Open(path, Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer img.Close()

	buf := img.Bytes()
	if len(buf) != 64*1024 {
		t.Fatalf("image is %d bytes", len(buf))
	}
	sb, err := DecodeSuperBlock(buf)
	if err != nil {
		t.Fatal(err)
	}
	if sb.Head != SizeSuperBlock+SizeInode {
		t.Errorf("head = %d, want %d", sb.Head, SizeSuperBlock+SizeInode)
	}
	root, err := DecodeInode(buf[LogStart:])
	if err != nil {
		t.Fatal(err)
	}
	if root.ID != RootID || !root.IsDir() || root.Size != 0 || root.Links != 1 {
		t.Errorf("unexpected root %+v", root)
	}
	if root.UID != 1000 || root.GID != 100 || root.Mtime != uint32(stamp.Unix()) {
		t.Errorf("root owner/time not applied: %+v", root)
	}
	if root.Mode&PermMask != 0o755 {
		t.Errorf("root perm = %o, want 755", root.Mode&PermMask)
	}
}

func TestOpenIsExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.img")
	if err := Create(path, 4096, FormatOptions{}); err != nil {
		t.Fatal(err)
	}
	img, err := Open(path, Options{})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := Open(path, Options{}); !errors.Is(err, ErrInUse) {
		t.Errorf("second Open err = %v, want ErrInUse", err)
	}
	if err := img.Close(); err != nil {
		t.Fatal(err)
	}

	img, err = Open(path, Options{})
	if err != nil {
		t.Fatalf("Open after Close: %v", err)
	}
	img.Close()
}

func TestCreateTooSmall(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiny.img")
	if err := Create(path, 16, FormatOptions{}); !errors.Is(err, ErrTooSmall) {
		t.Errorf("err = %v, want ErrTooSmall", err)
	}
}

func TestFormatMemImage(t *testing.T) {
	img := NewMemImage(1024)
	copy(img.Bytes()[200:], "leftover")
	if err := Format(img, FormatOptions{Perm: 0o700}); err != nil {
		t.Fatal(err)
	}
	if img.Bytes()[200] != 0 {
		t.Error("Format did not clear previous contents")
	}
	root, _ := DecodeInode(img.Bytes()[LogStart:])
	if root.Mode != S_IFDIR|0o700 {
		t.Errorf("root mode = %o", root.Mode)
	}
}
