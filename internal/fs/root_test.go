package fs

import (
	"io/fs"
	"testing"
	"time"

	"github.com/winfsp/cgofuse/fuse"

	"github.com/agentic-research/fmsx/internal/graph"
)

var uploaded = time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC)

// newTestFS creates an ExplorerFS over a MemoryStore shaped like a
// projected tree: one grouping directory holding record files.
func newTestFS() *ExplorerFS {
	store := graph.NewMemoryStore()

	store.AddRoot(&graph.Node{
		ID:   "plate=P1",
		Mode: fs.ModeDir,
		Children: []string{
			"plate=P1/a.czi.json",
			"plate=P1/b.czi.json",
		},
	})
	store.AddNode(&graph.Node{
		ID:      "plate=P1/a.czi.json",
		Data:    []byte(`{"file_id":"a"}` + "\n"),
		ModTime: uploaded,
	})
	store.AddNode(&graph.Node{
		ID:   "plate=P1/b.czi.json",
		Data: []byte(`{"file_id":"b"}` + "\n"),
	})
	store.AddRoot(&graph.Node{ID: "plate=P2", Mode: fs.ModeDir})

	return NewExplorerFS(store)
}

func TestExplorerFS_Open(t *testing.T) {
	efs := newTestFS()

	tests := []struct {
		name    string
		path    string
		flags   int
		wantErr int
	}{
		{name: "open existing file", path: "/plate=P1/a.czi.json", flags: fuse.O_RDONLY, wantErr: 0},
		{name: "open directory", path: "/plate=P1", flags: fuse.O_RDONLY, wantErr: -fuse.EISDIR},
		{name: "open missing file", path: "/plate=P1/zzz.json", flags: fuse.O_RDONLY, wantErr: -fuse.ENOENT},
		{name: "open for writing", path: "/plate=P1/a.czi.json", flags: fuse.O_RDWR, wantErr: -fuse.EROFS},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errc, _ := efs.Open(tt.path, tt.flags)
			if errc != tt.wantErr {
				t.Errorf("Open(%q) errc = %d, want %d", tt.path, errc, tt.wantErr)
			}
		})
	}
}

func TestExplorerFS_Getattr(t *testing.T) {
	efs := newTestFS()

	tests := []struct {
		name     string
		path     string
		wantErr  int
		wantMode uint32
		wantSize int64
	}{
		{name: "root", path: "/", wantMode: fuse.S_IFDIR | 0o555},
		{name: "group directory", path: "/plate=P1", wantMode: fuse.S_IFDIR | 0o555},
		{name: "empty directory", path: "/plate=P2", wantMode: fuse.S_IFDIR | 0o555},
		{name: "record file", path: "/plate=P1/a.czi.json", wantMode: fuse.S_IFREG | 0o444, wantSize: 16},
		{name: "missing", path: "/plate=P9", wantErr: -fuse.ENOENT},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stat fuse.Stat_t
			errc := efs.Getattr(tt.path, &stat, ^uint64(0))
			if errc != tt.wantErr {
				t.Fatalf("Getattr(%q) errc = %d, want %d", tt.path, errc, tt.wantErr)
			}
			if errc != 0 {
				return
			}
			if stat.Mode != tt.wantMode {
				t.Errorf("mode = %o, want %o", stat.Mode, tt.wantMode)
			}
			if stat.Size != tt.wantSize {
				t.Errorf("size = %d, want %d", stat.Size, tt.wantSize)
			}
		})
	}
}

func TestExplorerFS_GetattrUsesModTime(t *testing.T) {
	efs := newTestFS()

	var stat fuse.Stat_t
	if errc := efs.Getattr("/plate=P1/a.czi.json", &stat, ^uint64(0)); errc != 0 {
		t.Fatalf("errc = %d", errc)
	}
	if !stat.Mtim.Time().Equal(uploaded) {
		t.Errorf("mtime = %v, want %v", stat.Mtim.Time(), uploaded)
	}
}

func TestExplorerFS_Readdir(t *testing.T) {
	efs := newTestFS()

	tests := []struct {
		name      string
		path      string
		wantErr   int
		wantNames []string
	}{
		{name: "root", path: "/", wantNames: []string{".", "..", "plate=P1", "plate=P2"}},
		{name: "group", path: "/plate=P1", wantNames: []string{".", "..", "a.czi.json", "b.czi.json"}},
		{name: "empty", path: "/plate=P2", wantNames: []string{".", ".."}},
		{name: "missing", path: "/nope", wantErr: -fuse.ENOENT},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var names []string
			fill := func(name string, _ *fuse.Stat_t, _ int64) bool {
				names = append(names, name)
				return true
			}
			errc := efs.Readdir(tt.path, fill, 0, ^uint64(0))
			if errc != tt.wantErr {
				t.Fatalf("Readdir(%q) errc = %d, want %d", tt.path, errc, tt.wantErr)
			}
			if errc != 0 {
				return
			}
			if len(names) != len(tt.wantNames) {
				t.Fatalf("names = %v, want %v", names, tt.wantNames)
			}
			for i := range names {
				if names[i] != tt.wantNames[i] {
					t.Errorf("names[%d] = %q, want %q", i, names[i], tt.wantNames[i])
				}
			}
		})
	}
}

func TestExplorerFS_Read(t *testing.T) {
	efs := newTestFS()

	tests := []struct {
		name    string
		path    string
		ofst    int64
		size    int
		want    string
		wantErr int
	}{
		{name: "whole file", path: "/plate=P1/a.czi.json", size: 64, want: `{"file_id":"a"}` + "\n"},
		{name: "with offset", path: "/plate=P1/a.czi.json", ofst: 12, size: 3, want: `a"}`},
		{name: "past end", path: "/plate=P1/b.czi.json", ofst: 100, size: 8, want: ""},
		{name: "missing", path: "/plate=P1/zzz.json", size: 8, wantErr: -fuse.ENOENT},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := make([]byte, tt.size)
			n := efs.Read(tt.path, buf, tt.ofst, 0)
			if tt.wantErr != 0 {
				if n != tt.wantErr {
					t.Errorf("Read errc = %d, want %d", n, tt.wantErr)
				}
				return
			}
			if got := string(buf[:n]); got != tt.want {
				t.Errorf("Read = %q, want %q", got, tt.want)
			}
		})
	}
}
