// Package nfsmount serves a graph.Graph over NFSv3. It adapts the graph to
// billy.Filesystem for use with willscott/go-nfs. The export is read-only.
package nfsmount

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/helper/chroot"

	"github.com/agentic-research/fmsx/internal/graph"
)

// HierarchyFile is the virtual file at the export root describing the
// grouping the tree is currently built from.
const HierarchyFile = "_hierarchy.json"

var errReadOnly = fmt.Errorf("read-only filesystem")

// DescribeFunc returns the value rendered into HierarchyFile.
type DescribeFunc func() any

// GraphFS adapts graph.Graph to billy.Filesystem.
type GraphFS struct {
	graph     graph.Graph
	hierarchy *hierarchyDoc
	mountTime time.Time
}

// NewGraphFS creates a billy.Filesystem backed by g. describe may be nil,
// in which case HierarchyFile is not exposed.
func NewGraphFS(g graph.Graph, describe DescribeFunc) *GraphFS {
	fs := &GraphFS{
		graph:     g,
		mountTime: time.Now(),
	}
	if describe != nil {
		fs.hierarchy = &hierarchyDoc{describe: describe}
	}
	return fs
}

func (fs *GraphFS) isVirtual(filename string) bool {
	return fs.hierarchy != nil && filename == "/"+HierarchyFile
}

// hierarchyInfo renders the virtual file; it is re-rendered on every access
// since the hierarchy changes while mounted.
func (fs *GraphFS) hierarchyInfo() ([]byte, os.FileInfo) {
	data, changed := fs.hierarchy.render()
	if changed.Before(fs.mountTime) {
		changed = fs.mountTime
	}
	return data, &staticFileInfo{
		name:    HierarchyFile,
		size:    int64(len(data)),
		mode:    0o444,
		modTime: changed,
	}
}

// --- billy.Basic ---

func (fs *GraphFS) Create(filename string) (billy.File, error) {
	return nil, errReadOnly
}

func (fs *GraphFS) Open(filename string) (billy.File, error) {
	return fs.OpenFile(filename, os.O_RDONLY, 0)
}

func (fs *GraphFS) OpenFile(filename string, flag int, perm os.FileMode) (billy.File, error) {
	filename = cleanPath(filename)

	if flag&(os.O_WRONLY|os.O_RDWR|os.O_CREATE|os.O_TRUNC) != 0 {
		return nil, errReadOnly
	}

	if fs.isVirtual(filename) {
		data, _ := fs.hierarchyInfo()
		return newSnapshotFile(HierarchyFile, data), nil
	}

	node, err := fs.graph.GetNode(filename)
	if err != nil {
		return nil, &os.PathError{Op: "open", Path: filename, Err: os.ErrNotExist}
	}
	if node.Mode.IsDir() {
		return nil, &os.PathError{Op: "open", Path: filename, Err: fmt.Errorf("is a directory")}
	}

	data := make([]byte, node.ContentSize())
	n, err := fs.graph.ReadContent(filename, data, 0)
	if err != nil {
		return nil, &os.PathError{Op: "open", Path: filename, Err: err}
	}
	return newSnapshotFile(filename, data[:n]), nil
}

func (fs *GraphFS) Stat(filename string) (os.FileInfo, error) {
	return fs.Lstat(filename)
}

func (fs *GraphFS) Rename(oldpath, newpath string) error {
	return errReadOnly
}

func (fs *GraphFS) Remove(filename string) error {
	return errReadOnly
}

func (fs *GraphFS) Join(elem ...string) string {
	return filepath.Join(elem...)
}

// --- billy.TempFile ---

func (fs *GraphFS) TempFile(dir, prefix string) (billy.File, error) {
	return nil, billy.ErrNotSupported
}

// --- billy.Dir ---

func (fs *GraphFS) ReadDir(path string) ([]os.FileInfo, error) {
	path = cleanPath(path)

	if path != "/" {
		node, err := fs.graph.GetNode(path)
		if err != nil {
			return nil, &os.PathError{Op: "readdir", Path: path, Err: os.ErrNotExist}
		}
		if !node.Mode.IsDir() {
			return nil, &os.PathError{Op: "readdir", Path: path, Err: fmt.Errorf("not a directory")}
		}
	}

	children, err := fs.graph.ListChildren(path)
	if err != nil {
		return nil, &os.PathError{Op: "readdir", Path: path, Err: os.ErrNotExist}
	}

	infos := make([]os.FileInfo, 0, len(children)+1)

	if path == "/" && fs.hierarchy != nil {
		_, info := fs.hierarchyInfo()
		infos = append(infos, info)
	}

	for _, childID := range children {
		childNode, err := fs.graph.GetNode(childID)
		if err != nil {
			continue
		}
		infos = append(infos, nodeToFileInfo(childNode, fs.mountTime))
	}

	return infos, nil
}

func (fs *GraphFS) MkdirAll(filename string, perm os.FileMode) error {
	return errReadOnly
}

// --- billy.Symlink ---

func (fs *GraphFS) Lstat(filename string) (os.FileInfo, error) {
	filename = cleanPath(filename)

	if filename == "/" {
		return &staticFileInfo{
			name:    "/",
			mode:    os.ModeDir | 0o555,
			modTime: fs.mountTime,
		}, nil
	}

	if fs.isVirtual(filename) {
		_, info := fs.hierarchyInfo()
		return info, nil
	}

	node, err := fs.graph.GetNode(filename)
	if err != nil {
		return nil, &os.PathError{Op: "lstat", Path: filename, Err: os.ErrNotExist}
	}

	return nodeToFileInfo(node, fs.mountTime), nil
}

func (fs *GraphFS) Symlink(target, link string) error {
	return billy.ErrNotSupported
}

func (fs *GraphFS) Readlink(link string) (string, error) {
	return "", billy.ErrNotSupported
}

// --- billy.Chroot ---

func (fs *GraphFS) Chroot(path string) (billy.Filesystem, error) {
	return chroot.New(fs, path), nil
}

func (fs *GraphFS) Root() string {
	return "/"
}

// --- billy.Capable ---

func (fs *GraphFS) Capabilities() billy.Capability {
	return billy.ReadCapability | billy.SeekCapability
}

// --- internals ---

// cleanPath normalizes a billy path to a clean absolute path.
func cleanPath(path string) string {
	path = filepath.Clean("/" + path)
	if path == "." {
		return "/"
	}
	return path
}

// nodeToFileInfo converts a graph.Node to os.FileInfo.
func nodeToFileInfo(n *graph.Node, fallback time.Time) os.FileInfo {
	mode := os.FileMode(0o444)
	if n.Mode.IsDir() {
		mode = os.ModeDir | 0o555
	}

	modTime := n.ModTime
	if modTime.IsZero() {
		modTime = fallback
	}

	return &staticFileInfo{
		name:    filepath.Base(n.ID),
		size:    n.ContentSize(),
		mode:    mode,
		modTime: modTime,
	}
}

// staticFileInfo implements os.FileInfo with static values.
type staticFileInfo struct {
	name    string
	size    int64
	mode    os.FileMode
	modTime time.Time
}

func (fi *staticFileInfo) Name() string       { return fi.name }
func (fi *staticFileInfo) Size() int64        { return fi.size }
func (fi *staticFileInfo) Mode() os.FileMode  { return fi.mode }
func (fi *staticFileInfo) ModTime() time.Time { return fi.modTime }
func (fi *staticFileInfo) IsDir() bool        { return fi.mode.IsDir() }
func (fi *staticFileInfo) Sys() interface{}   { return nil }

var (
	_ billy.Filesystem = (*GraphFS)(nil)
	_ billy.Capable    = (*GraphFS)(nil)
	_ billy.File       = (*snapshotFile)(nil)
)
