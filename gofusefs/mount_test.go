package gofusefs

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"syscall"
	"testing"
	"time"

	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/dendrascience/wfs/disk"
	"github.com/dendrascience/wfs/wfs"
)

// fuseAvailable checks whether /dev/fuse is accessible. Tests that
// need a real FUSE mount call this and skip if the device is absent.
func fuseAvailable(t *testing.T) {
	t.Helper()
	if _, err := os.Stat("/dev/fuse"); err != nil {
		t.Skip("skipping: /dev/fuse not available")
	}
}

// testMount formats a fresh image, mounts it and returns the mountpoint
// along with the engine behind it.
func testMount(t *testing.T) (string, *wfs.FS) {
	t.Helper()
	fuseAvailable(t)

	root := t.TempDir()
	image := filepath.Join(root, "disk.img")
	if err := disk.Create(image, 256*1024, disk.FormatOptions{}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	engine, err := wfs.Open(image, wfs.Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	mountpoint := filepath.Join(root, "mnt")
	if err := os.Mkdir(mountpoint, 0o755); err != nil {
		t.Fatal(err)
	}
	server, err := Mount(Options{Mountpoint: mountpoint, Engine: engine})
	if err != nil {
		engine.Close()
		t.Skipf("Mount: %v", err)
	}

	t.Cleanup(func() {
		if err := server.Unmount(); err != nil {
			t.Errorf("Unmount: %v", err)
		}
		if err := engine.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return mountpoint, engine
}

func TestMountRequiresEngine(t *testing.T) {
	if _, err := Mount(Options{Mountpoint: t.TempDir()}); err == nil {
		t.Fatal("Mount without an engine succeeded")
	}
	if _, err := Mount(Options{}); err == nil {
		t.Fatal("Mount without a mountpoint succeeded")
	}
}

func TestMountReadWrite(t *testing.T) {
	mnt, engine := testMount(t)

	if err := os.WriteFile(filepath.Join(mnt, "a.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(mnt, "a.txt"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("read %q, want %q", data, "hello")
	}

	buf := make([]byte, 16)
	n, err := engine.Read("/a.txt", buf, 0)
	if err != nil {
		t.Fatal(err)
	}
	if string(buf[:n]) != "hello" {
		t.Errorf("engine read %q, want %q", buf[:n], "hello")
	}
}

func TestMountDirectories(t *testing.T) {
	mnt, _ := testMount(t)

	if err := os.MkdirAll(filepath.Join(mnt, "x", "y"), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(mnt, "x", "y", "f"), []byte("z"), 0o600); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(filepath.Join(mnt, "x"))
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	if !slices.Equal(names, []string{"y"}) {
		t.Errorf("entries = %v, want [y]", names)
	}

	err = os.Remove(filepath.Join(mnt, "x", "y"))
	if !errors.Is(err, syscall.ENOTEMPTY) {
		t.Errorf("rmdir of non-empty directory: %v, want ENOTEMPTY", err)
	}
	if err := os.RemoveAll(filepath.Join(mnt, "x")); err != nil {
		t.Fatalf("RemoveAll: %v", err)
	}
	if _, err := os.Stat(filepath.Join(mnt, "x")); !os.IsNotExist(err) {
		t.Errorf("stat after removal: %v, want not exist", err)
	}
}

func TestMountTruncate(t *testing.T) {
	mnt, _ := testMount(t)
	p := filepath.Join(mnt, "t")
	if err := os.WriteFile(p, []byte("abcdef"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Truncate(p, 2); err != nil {
		t.Fatalf("Truncate: %v", err)
	}
	data, err := os.ReadFile(p)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "ab" {
		t.Errorf("read %q after truncate, want %q", data, "ab")
	}
}

func TestFillAttr(t *testing.T) {
	now := time.Unix(1700000000, 0)
	var out fuse.Attr
	fillAttr(&out, wfs.Attr{
		ID:    4,
		Mode:  disk.S_IFREG | 0o640,
		Nlink: 1,
		UID:   1000,
		GID:   100,
		Size:  4097,
		Atime: now,
		Mtime: now,
		Ctime: now,
	})
	if out.Ino != 5 {
		t.Errorf("ino = %d, want 5", out.Ino)
	}
	if out.Mode != disk.S_IFREG|0o640 {
		t.Errorf("mode = %o", out.Mode)
	}
	if out.Size != 4097 || out.Blocks != 0 {
		t.Errorf("size/blocks = %d/%d, want 4097/0", out.Size, out.Blocks)
	}
	if out.Uid != 1000 || out.Gid != 100 {
		t.Errorf("owner = %d:%d", out.Uid, out.Gid)
	}
	if out.Mtime != uint64(now.Unix()) {
		t.Errorf("mtime = %d, want %d", out.Mtime, now.Unix())
	}
}
