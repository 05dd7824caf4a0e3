package fusefs

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"bazil.org/fuse/fs/fstestutil"

	"github.com/dendrascience/wfs/disk"
	"github.com/dendrascience/wfs/wfs"
)

// mounted serves a fresh image through the kernel. It skips when FUSE is
// not usable here.
func mounted(t *testing.T) (string, *wfs.FS) {
	t.Helper()
	if _, err := os.Stat("/dev/fuse"); err != nil {
		t.Skip("skipping: /dev/fuse not available")
	}

	image := filepath.Join(t.TempDir(), "disk.img")
	if err := disk.Create(image, 256*1024, disk.FormatOptions{}); err != nil {
		t.Fatal(err)
	}
	engine, err := wfs.Open(image, wfs.Options{})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { engine.Close() })

	mnt, err := fstestutil.MountedT(t, New(engine), nil)
	if err != nil {
		t.Skipf("mount failed: %v", err)
	}
	t.Cleanup(mnt.Close)
	return mnt.Dir, engine
}

func TestMountedFileLifecycle(t *testing.T) {
	dir, engine := mounted(t)

	p := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(p, []byte("hi there"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.Equal(got, []byte("hi there")) {
		t.Errorf("read %q", got)
	}

	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	f, err := os.Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	names, err := f.Readdirnames(-1)
	f.Close()
	if err != nil {
		t.Fatal(err)
	}
	sort.Strings(names)
	if len(names) != 2 || names[0] != "a.txt" || names[1] != "sub" {
		t.Errorf("Readdirnames = %v, want [a.txt sub]", names)
	}

	if err := os.Remove(p); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := engine.Resolve("/a.txt"); err == nil {
		t.Error("engine still resolves a removed file")
	}
}
