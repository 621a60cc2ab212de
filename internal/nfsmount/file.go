package nfsmount

import (
	"bytes"
	"encoding/json"
	"sync"
	"time"
)

// snapshotFile is an open, read-only file. Its content is captured when it
// is opened, so a projection rebuilt while the file is open does not change
// or truncate what the client reads.
type snapshotFile struct {
	*bytes.Reader
	name string
}

func newSnapshotFile(name string, data []byte) *snapshotFile {
	return &snapshotFile{Reader: bytes.NewReader(data), name: name}
}

func (f *snapshotFile) Name() string              { return f.name }
func (f *snapshotFile) Write([]byte) (int, error) { return 0, errReadOnly }
func (f *snapshotFile) Truncate(int64) error      { return errReadOnly }
func (f *snapshotFile) Lock() error               { return nil }
func (f *snapshotFile) Unlock() error             { return nil }
func (f *snapshotFile) Close() error              { return nil }

// hierarchyDoc renders the virtual hierarchy file and remembers when its
// content last changed, so NFS clients see a new mtime after a regroup even
// when the size stays the same.
type hierarchyDoc struct {
	describe DescribeFunc

	mu      sync.Mutex
	data    []byte
	changed time.Time
}

func (d *hierarchyDoc) render() ([]byte, time.Time) {
	b, err := json.MarshalIndent(d.describe(), "", "  ")
	if err != nil {
		b = []byte("{}")
	}
	b = append(b, '\n')

	d.mu.Lock()
	defer d.mu.Unlock()
	if !bytes.Equal(b, d.data) {
		d.data = b
		d.changed = time.Now()
	}
	return d.data, d.changed
}
