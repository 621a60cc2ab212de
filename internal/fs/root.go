// Package fs exposes a graph.Graph through FUSE via cgofuse.
package fs

import (
	"errors"
	"path/filepath"
	"time"

	"github.com/winfsp/cgofuse/fuse"

	"github.com/agentic-research/fmsx/internal/graph"
)

// ExplorerFS implements the FUSE interface from cgofuse. Read-only.
type ExplorerFS struct {
	fuse.FileSystemBase
	Graph     graph.Graph
	mountTime fuse.Timespec
}

func NewExplorerFS(g graph.Graph) *ExplorerFS {
	return &ExplorerFS{
		Graph:     g,
		mountTime: fuse.NewTimespec(time.Now()),
	}
}

// Open succeeds for regular files only. Directories go through Opendir.
func (fs *ExplorerFS) Open(path string, flags int) (int, uint64) {
	if flags&(fuse.O_WRONLY|fuse.O_RDWR) != 0 {
		return -fuse.EROFS, ^uint64(0)
	}
	node, err := fs.Graph.GetNode(path)
	if err != nil {
		return errno(err), ^uint64(0)
	}
	if node.Mode.IsDir() {
		return -fuse.EISDIR, ^uint64(0)
	}
	return 0, 0
}

// Getattr (Stat)
func (fs *ExplorerFS) Getattr(path string, stat *fuse.Stat_t, fh uint64) int {
	stat.Atim = fs.mountTime
	stat.Mtim = fs.mountTime
	stat.Ctim = fs.mountTime
	stat.Birthtim = fs.mountTime

	// Root is always there
	if path == "/" {
		stat.Mode = fuse.S_IFDIR | 0o555
		stat.Nlink = 2
		return 0
	}

	node, err := fs.Graph.GetNode(path)
	if err != nil {
		return errno(err)
	}
	fillStat(node, stat)
	if !node.ModTime.IsZero() {
		stat.Mtim = fuse.NewTimespec(node.ModTime)
		stat.Ctim = stat.Mtim
	}
	return 0
}

// Readdir (List directory)
func (fs *ExplorerFS) Readdir(path string, fill func(name string, stat *fuse.Stat_t, ofst int64) bool, ofst int64, fh uint64) int {
	children, err := fs.Graph.ListChildren(path)
	if err != nil {
		return errno(err)
	}

	fill(".", nil, 0)
	fill("..", nil, 0)
	for _, childID := range children {
		var st *fuse.Stat_t
		if child, err := fs.Graph.GetNode(childID); err == nil {
			st = &fuse.Stat_t{}
			fillStat(child, st)
		}
		if !fill(filepath.Base(childID), st, 0) {
			break
		}
	}
	return 0
}

// Read (Cat file)
func (fs *ExplorerFS) Read(path string, buff []byte, ofst int64, fh uint64) int {
	n, err := fs.Graph.ReadContent(path, buff, ofst)
	if err != nil {
		return errno(err)
	}
	return n
}

func fillStat(n *graph.Node, stat *fuse.Stat_t) {
	if n.Mode.IsDir() {
		stat.Mode = fuse.S_IFDIR | 0o555
		stat.Nlink = 2
		return
	}
	stat.Mode = fuse.S_IFREG | 0o444
	stat.Nlink = 1
	stat.Size = n.ContentSize()
}

func errno(err error) int {
	if errors.Is(err, graph.ErrNotFound) {
		return -fuse.ENOENT
	}
	return -fuse.EIO
}

// Mount serves fsys at mountpoint until it is unmounted. It blocks.
func Mount(fsys *ExplorerFS, mountpoint string, opts []string) error {
	host := fuse.NewFileSystemHost(fsys)
	host.SetCapReaddirPlus(true)
	if !host.Mount(mountpoint, append([]string{"-o", "ro"}, opts...)) {
		return errors.New("fuse mount failed: " + mountpoint)
	}
	return nil
}
