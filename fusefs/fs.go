package fusefs

import (
	"context"
	"os"
	"path"
	"syscall"

	"bazil.org/fuse"
	"bazil.org/fuse/fs"

	"github.com/dendrascience/wfs/disk"
	"github.com/dendrascience/wfs/wfs"
)

// FS serves a wfs engine through bazil.org/fuse.
type FS struct {
	engine *wfs.FS
}

var (
	_ fs.FS         = (*FS)(nil)
	_ fs.FSStatfser = (*FS)(nil)
)

// New returns a filesystem ready for fs.Serve.
func New(engine *wfs.FS) *FS {
	return &FS{engine: engine}
}

// Root returns the root directory node
func (f *FS) Root() (fs.Node, error) {
	return &Dir{fs: f, path: "/"}, nil
}

// Statfs reports log usage as 512 byte blocks.
func (f *FS) Statfs(ctx context.Context, req *fuse.StatfsRequest, resp *fuse.StatfsResponse) error {
	st, err := f.engine.Statfs()
	if err != nil {
		return toErrno(err)
	}
	const bsize = 512
	resp.Bsize = bsize
	resp.Frsize = bsize
	resp.Blocks = st.Capacity / bsize
	resp.Bfree = st.Free / bsize
	resp.Bavail = st.Free / bsize
	resp.Files = st.LiveIDs
	resp.Ffree = st.Free / (disk.SizeInode + disk.SizeDirent)
	resp.Namelen = disk.MaxNameLen
	return nil
}

// toErrno converts engine errors into the errno the kernel sees.
func toErrno(err error) error {
	if err == nil {
		return nil
	}
	return fuse.Errno(wfs.Errno(err))
}

// fillAttr copies engine attributes into a FUSE attribute block.
// Inode numbers are shifted by one since the root id is 0.
func fillAttr(a *fuse.Attr, attr wfs.Attr) {
	a.Inode = uint64(attr.ID) + 1
	a.Mode = attr.FileMode()
	a.Nlink = attr.Nlink
	a.Uid = attr.UID
	a.Gid = attr.GID
	a.Size = attr.Size
	a.Blocks = attr.Blocks
	a.Atime = attr.Atime
	a.Mtime = attr.Mtime
	a.Ctime = attr.Ctime
}

// Dir implements both Node and Handle for directories
type Dir struct {
	fs   *FS
	path string
}

var (
	_ fs.Node               = (*Dir)(nil)
	_ fs.NodeStringLookuper = (*Dir)(nil)
	_ fs.NodeCreater        = (*Dir)(nil)
	_ fs.NodeMkdirer        = (*Dir)(nil)
	_ fs.NodeMknoder        = (*Dir)(nil)
	_ fs.NodeRemover        = (*Dir)(nil)
	_ fs.NodeSetattrer      = (*Dir)(nil)
	_ fs.HandleReadDirAller = (*Dir)(nil)
)

func (d *Dir) child(name string) string {
	return path.Join(d.path, name)
}

// Attr returns directory attributes
func (d *Dir) Attr(ctx context.Context, a *fuse.Attr) error {
	attr, err := d.fs.engine.Getattr(d.path)
	if err != nil {
		return toErrno(err)
	}
	fillAttr(a, attr)
	return nil
}

// Lookup resolves a name in this directory to a node
func (d *Dir) Lookup(ctx context.Context, name string) (fs.Node, error) {
	p := d.child(name)
	attr, err := d.fs.engine.Getattr(p)
	if err != nil {
		return nil, toErrno(err)
	}
	if attr.IsDir() {
		return &Dir{fs: d.fs, path: p}, nil
	}
	return &File{fs: d.fs, path: p}, nil
}

// Create creates a new regular file
func (d *Dir) Create(ctx context.Context, req *fuse.CreateRequest, resp *fuse.CreateResponse) (fs.Node, fs.Handle, error) {
	perm := uint32(req.Mode.Perm() &^ req.Umask)
	cred := wfs.Cred{UID: req.Header.Uid, GID: req.Header.Gid}
	if _, err := d.fs.engine.Create(d.path, req.Name, wfs.KindFile, perm, cred); err != nil {
		return nil, nil, toErrno(err)
	}

	f := &File{fs: d.fs, path: d.child(req.Name)}
	if err := f.Attr(ctx, &resp.Attr); err != nil {
		return nil, nil, err
	}
	return f, f, nil
}

// Mknod creates regular files only; device nodes and fifos cannot be
// stored in the log.
func (d *Dir) Mknod(ctx context.Context, req *fuse.MknodRequest) (fs.Node, error) {
	if req.Mode&os.ModeType != 0 {
		return nil, syscall.EPERM
	}
	perm := uint32(req.Mode.Perm() &^ req.Umask)
	cred := wfs.Cred{UID: req.Header.Uid, GID: req.Header.Gid}
	if _, err := d.fs.engine.Create(d.path, req.Name, wfs.KindFile, perm, cred); err != nil {
		return nil, toErrno(err)
	}
	return &File{fs: d.fs, path: d.child(req.Name)}, nil
}

// Mkdir creates a new directory
func (d *Dir) Mkdir(ctx context.Context, req *fuse.MkdirRequest) (fs.Node, error) {
	perm := uint32(req.Mode.Perm() &^ req.Umask)
	cred := wfs.Cred{UID: req.Header.Uid, GID: req.Header.Gid}
	if _, err := d.fs.engine.Create(d.path, req.Name, wfs.KindDir, perm, cred); err != nil {
		return nil, toErrno(err)
	}
	return &Dir{fs: d.fs, path: d.child(req.Name)}, nil
}

// Remove handles both unlink and rmdir
func (d *Dir) Remove(ctx context.Context, req *fuse.RemoveRequest) error {
	p := d.child(req.Name)
	attr, err := d.fs.engine.Getattr(p)
	if err != nil {
		return toErrno(err)
	}
	switch {
	case req.Dir && !attr.IsDir():
		return syscall.ENOTDIR
	case !req.Dir && attr.IsDir():
		return syscall.EISDIR
	}
	return toErrno(d.fs.engine.Unlink(p))
}

// Setattr changes mode, owner and times of the directory
func (d *Dir) Setattr(ctx context.Context, req *fuse.SetattrRequest, resp *fuse.SetattrResponse) error {
	return setattr(d.fs.engine, d.path, req, resp)
}

// ReadDirAll lists directory contents
func (d *Dir) ReadDirAll(ctx context.Context) ([]fuse.Dirent, error) {
	self, err := d.fs.engine.Getattr(d.path)
	if err != nil {
		return nil, toErrno(err)
	}
	entries, err := d.fs.engine.ReadDir(d.path)
	if err != nil {
		return nil, toErrno(err)
	}

	dirents := make([]fuse.Dirent, 0, len(entries)+2)
	dirents = append(dirents,
		fuse.Dirent{Inode: uint64(self.ID) + 1, Name: ".", Type: fuse.DT_Dir},
		fuse.Dirent{Name: "..", Type: fuse.DT_Dir},
	)
	for _, e := range entries {
		typ := fuse.DT_File
		if e.IsDir() {
			typ = fuse.DT_Dir
		}
		dirents = append(dirents, fuse.Dirent{
			Inode: uint64(e.ID) + 1,
			Name:  e.Name,
			Type:  typ,
		})
	}
	return dirents, nil
}

// File implements both Node and Handle for files. It holds no data; every
// read and write goes to the engine.
type File struct {
	fs   *FS
	path string
}

var (
	_ fs.Node          = (*File)(nil)
	_ fs.NodeSetattrer = (*File)(nil)
	_ fs.NodeFsyncer   = (*File)(nil)
	_ fs.HandleReader  = (*File)(nil)
	_ fs.HandleWriter  = (*File)(nil)
	_ fs.HandleFlusher = (*File)(nil)
)

// Attr returns file attributes
func (f *File) Attr(ctx context.Context, a *fuse.Attr) error {
	attr, err := f.fs.engine.Getattr(f.path)
	if err != nil {
		return toErrno(err)
	}
	fillAttr(a, attr)
	return nil
}

// Read reads up to req.Size bytes at req.Offset
func (f *File) Read(ctx context.Context, req *fuse.ReadRequest, resp *fuse.ReadResponse) error {
	buf := make([]byte, req.Size)
	n, err := f.fs.engine.Read(f.path, buf, req.Offset)
	if err != nil {
		return toErrno(err)
	}
	resp.Data = buf[:n]
	return nil
}

// Write writes data to the file
func (f *File) Write(ctx context.Context, req *fuse.WriteRequest, resp *fuse.WriteResponse) error {
	n, err := f.fs.engine.Write(f.path, req.Data, req.Offset)
	if err != nil {
		return toErrno(err)
	}
	resp.Size = n
	return nil
}

// Flush has nothing to do; writes are committed when they return.
func (f *File) Flush(ctx context.Context, req *fuse.FlushRequest) error {
	return nil
}

// Fsync forces the image to disk
func (f *File) Fsync(ctx context.Context, req *fuse.FsyncRequest) error {
	return toErrno(f.fs.engine.Sync())
}

// Setattr handles truncate, chmod, chown and utimes
func (f *File) Setattr(ctx context.Context, req *fuse.SetattrRequest, resp *fuse.SetattrResponse) error {
	return setattr(f.fs.engine, f.path, req, resp)
}

func setattr(engine *wfs.FS, p string, req *fuse.SetattrRequest, resp *fuse.SetattrResponse) error {
	var sa wfs.SetAttr
	if req.Valid.Size() {
		sa.Size = &req.Size
	}
	if req.Valid.Mode() {
		mode := uint32(req.Mode.Perm())
		if req.Mode&os.ModeSetuid != 0 {
			mode |= 0o4000
		}
		if req.Mode&os.ModeSetgid != 0 {
			mode |= 0o2000
		}
		if req.Mode&os.ModeSticky != 0 {
			mode |= 0o1000
		}
		sa.Mode = &mode
	}
	if req.Valid.Uid() {
		sa.UID = &req.Uid
	}
	if req.Valid.Gid() {
		sa.GID = &req.Gid
	}
	if req.Valid.Atime() {
		sa.Atime = &req.Atime
	}
	if req.Valid.Mtime() {
		sa.Mtime = &req.Mtime
	}

	attr, err := engine.Setattr(p, sa)
	if err != nil {
		return toErrno(err)
	}
	fillAttr(&resp.Attr, attr)
	return nil
}
