package gofusefs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"syscall"
	"time"

	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/dendrascience/wfs/disk"
	"github.com/dendrascience/wfs/wfs"
)

// Options configures the FUSE mount.
type Options struct {
	// Mountpoint is the directory where the filesystem is mounted.
	Mountpoint string

	// Engine serves every request. It must stay open until the server
	// is unmounted.
	Engine *wfs.FS

	// AllowOther permits other users to access the mount. Requires
	// user_allow_other in /etc/fuse.conf.
	AllowOther bool

	// ReadOnly mounts with the ro option.
	ReadOnly bool

	// Debug logs every FUSE request.
	Debug bool

	// Logger receives diagnostic messages. If nil, errors go to stderr.
	Logger *slog.Logger
}

// Mount mounts the image served by options.Engine. The caller must call
// Unmount on the returned server when done.
func Mount(options Options) (*fuse.Server, error) {
	if options.Mountpoint == "" {
		return nil, fmt.Errorf("mountpoint is required")
	}
	if options.Engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelError,
		}))
	}

	root := &node{engine: options.Engine, logger: options.Logger}

	// Every change goes through this process, so the kernel may cache
	// briefly; misses are cheap to revalidate.
	entryTimeout := 1 * time.Second
	attrTimeout := 1 * time.Second
	negativeTimeout := 100 * time.Millisecond

	var mountOpts []string
	if options.ReadOnly {
		mountOpts = append(mountOpts, "ro")
	}
	server, err := gofuse.Mount(options.Mountpoint, root, &gofuse.Options{
		EntryTimeout:    &entryTimeout,
		AttrTimeout:     &attrTimeout,
		NegativeTimeout: &negativeTimeout,
		MountOptions: fuse.MountOptions{
			FsName:     "wfs",
			Name:       "wfs",
			AllowOther: options.AllowOther,
			Debug:      options.Debug,
			Options:    mountOpts,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("mounting FUSE filesystem at %s: %w", options.Mountpoint, err)
	}

	options.Logger.Info("wfs mounted", "mountpoint", options.Mountpoint, "driver", "go-fuse")
	return server, nil
}

// node is any file or directory. Its engine path is derived from its
// position in the inode tree on every call.
type node struct {
	gofuse.Inode
	engine *wfs.FS
	logger *slog.Logger
}

var _ gofuse.InodeEmbedder = (*node)(nil)
var _ gofuse.NodeLookuper = (*node)(nil)
var _ gofuse.NodeGetattrer = (*node)(nil)
var _ gofuse.NodeSetattrer = (*node)(nil)
var _ gofuse.NodeReaddirer = (*node)(nil)
var _ gofuse.NodeCreater = (*node)(nil)
var _ gofuse.NodeMknoder = (*node)(nil)
var _ gofuse.NodeMkdirer = (*node)(nil)
var _ gofuse.NodeUnlinker = (*node)(nil)
var _ gofuse.NodeRmdirer = (*node)(nil)
var _ gofuse.NodeOpener = (*node)(nil)
var _ gofuse.NodeReader = (*node)(nil)
var _ gofuse.NodeWriter = (*node)(nil)
var _ gofuse.NodeFsyncer = (*node)(nil)
var _ gofuse.NodeStatfser = (*node)(nil)

func (n *node) path() string {
	return "/" + n.Path(nil)
}

func (n *node) childPath(name string) string {
	if p := n.Path(nil); p != "" {
		return "/" + p + "/" + name
	}
	return "/" + name
}

// errno converts an engine error, logging anything the caller would only
// see as EIO.
func (n *node) errno(op, path string, err error) syscall.Errno {
	e := wfs.Errno(err)
	if e == syscall.EIO {
		n.logger.Error("wfs request failed", "op", op, "path", path, "error", err)
	}
	return e
}

func fillAttr(out *fuse.Attr, attr wfs.Attr) {
	out.Ino = uint64(attr.ID) + 1
	out.Mode = attr.Mode
	out.Nlink = attr.Nlink
	out.Uid = attr.UID
	out.Gid = attr.GID
	out.Size = attr.Size
	out.Blocks = attr.Blocks
	out.Blksize = 512
	out.SetTimes(&attr.Atime, &attr.Mtime, &attr.Ctime)
}

func (n *node) newChild(ctx context.Context, attr wfs.Attr, out *fuse.EntryOut) *gofuse.Inode {
	fillAttr(&out.Attr, attr)
	child := &node{engine: n.engine, logger: n.logger}
	return n.NewInode(ctx, child, gofuse.StableAttr{
		Mode: attr.Mode & disk.S_IFMT,
		Ino:  uint64(attr.ID) + 1,
	})
}

func (n *node) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	p := n.childPath(name)
	attr, err := n.engine.Getattr(p)
	if err != nil {
		return nil, n.errno("lookup", p, err)
	}
	return n.newChild(ctx, attr, out), 0
}

func (n *node) Getattr(ctx context.Context, f gofuse.FileHandle, out *fuse.AttrOut) syscall.Errno {
	p := n.path()
	attr, err := n.engine.Getattr(p)
	if err != nil {
		return n.errno("getattr", p, err)
	}
	fillAttr(&out.Attr, attr)
	return 0
}

func (n *node) Setattr(ctx context.Context, f gofuse.FileHandle, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	var sa wfs.SetAttr
	if size, ok := in.GetSize(); ok {
		sa.Size = &size
	}
	if mode, ok := in.GetMode(); ok {
		sa.Mode = &mode
	}
	if uid, ok := in.GetUID(); ok {
		sa.UID = &uid
	}
	if gid, ok := in.GetGID(); ok {
		sa.GID = &gid
	}
	if atime, ok := in.GetATime(); ok {
		sa.Atime = &atime
	}
	if mtime, ok := in.GetMTime(); ok {
		sa.Mtime = &mtime
	}

	p := n.path()
	attr, err := n.engine.Setattr(p, sa)
	if err != nil {
		return n.errno("setattr", p, err)
	}
	fillAttr(&out.Attr, attr)
	return 0
}

// Readdir lists live entries. The kernel supplies . and .. itself.
func (n *node) Readdir(ctx context.Context) (gofuse.DirStream, syscall.Errno) {
	p := n.path()
	entries, err := n.engine.ReadDir(p)
	if err != nil {
		return nil, n.errno("readdir", p, err)
	}
	out := make([]fuse.DirEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, fuse.DirEntry{
			Name: e.Name,
			Mode: e.Mode & disk.S_IFMT,
			Ino:  uint64(e.ID) + 1,
		})
	}
	return gofuse.NewListDirStream(out), 0
}

func caller(ctx context.Context) wfs.Cred {
	if c, ok := fuse.FromContext(ctx); ok {
		return wfs.Cred{UID: c.Uid, GID: c.Gid}
	}
	return wfs.Cred{}
}

func (n *node) create(ctx context.Context, op, name string, kind wfs.Kind, mode uint32, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	dir := n.path()
	if _, err := n.engine.Create(dir, name, kind, mode, caller(ctx)); err != nil {
		return nil, n.errno(op, dir, err)
	}
	p := n.childPath(name)
	attr, err := n.engine.Getattr(p)
	if err != nil {
		return nil, n.errno(op, p, err)
	}
	return n.newChild(ctx, attr, out), 0
}

func (n *node) Create(ctx context.Context, name string, flags uint32, mode uint32, out *fuse.EntryOut) (*gofuse.Inode, gofuse.FileHandle, uint32, syscall.Errno) {
	child, errno := n.create(ctx, "create", name, wfs.KindFile, mode, out)
	return child, nil, 0, errno
}

// Mknod only makes regular files.
func (n *node) Mknod(ctx context.Context, name string, mode uint32, dev uint32, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	if mode&syscall.S_IFMT != syscall.S_IFREG && mode&syscall.S_IFMT != 0 {
		return nil, syscall.EPERM
	}
	return n.create(ctx, "mknod", name, wfs.KindFile, mode, out)
}

func (n *node) Mkdir(ctx context.Context, name string, mode uint32, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	return n.create(ctx, "mkdir", name, wfs.KindDir, mode, out)
}

func (n *node) remove(op, name string, wantDir bool) syscall.Errno {
	p := n.childPath(name)
	attr, err := n.engine.Getattr(p)
	if err != nil {
		return n.errno(op, p, err)
	}
	switch {
	case wantDir && !attr.IsDir():
		return syscall.ENOTDIR
	case !wantDir && attr.IsDir():
		return syscall.EISDIR
	}
	if err := n.engine.Unlink(p); err != nil {
		return n.errno(op, p, err)
	}
	return 0
}

func (n *node) Unlink(ctx context.Context, name string) syscall.Errno {
	return n.remove("unlink", name, false)
}

func (n *node) Rmdir(ctx context.Context, name string) syscall.Errno {
	return n.remove("rmdir", name, true)
}

// Open keeps no per-handle state; reads and writes go to the engine.
func (n *node) Open(ctx context.Context, flags uint32) (gofuse.FileHandle, uint32, syscall.Errno) {
	return nil, 0, 0
}

func (n *node) Read(ctx context.Context, f gofuse.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	p := n.path()
	count, err := n.engine.Read(p, dest, off)
	if err != nil {
		return nil, n.errno("read", p, err)
	}
	return fuse.ReadResultData(dest[:count]), 0
}

func (n *node) Write(ctx context.Context, f gofuse.FileHandle, data []byte, off int64) (uint32, syscall.Errno) {
	p := n.path()
	count, err := n.engine.Write(p, data, off)
	if err != nil {
		return 0, n.errno("write", p, err)
	}
	return uint32(count), 0
}

func (n *node) Fsync(ctx context.Context, f gofuse.FileHandle, flags uint32) syscall.Errno {
	if err := n.engine.Sync(); err != nil {
		return n.errno("fsync", n.path(), err)
	}
	return 0
}

func (n *node) Statfs(ctx context.Context, out *fuse.StatfsOut) syscall.Errno {
	st, err := n.engine.Statfs()
	if err != nil {
		return n.errno("statfs", "/", err)
	}
	const bsize = 512
	out.Bsize = bsize
	out.Frsize = bsize
	out.Blocks = st.Capacity / bsize
	out.Bfree = st.Free / bsize
	out.Bavail = st.Free / bsize
	out.Files = st.LiveIDs
	out.Ffree = st.Free / (disk.SizeInode + disk.SizeDirent)
	out.NameLen = disk.MaxNameLen
	return 0
}
