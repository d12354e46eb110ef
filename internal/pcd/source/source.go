// Package source supplies raw document bytes to the pipeline.
//
// Reading bytes is the only blocking step of a load. Every failure is
// returned as a *pcd.IOError naming the document.
package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/banshee-data/pcdview/internal/pcd"
)

// DefaultMaxBytes caps a single document read from disk.
const DefaultMaxBytes int64 = 2 << 30

// Source returns the bytes of a named document.
type Source interface {
	ReadDocument(ctx context.Context, name string) ([]byte, error)
}

// Dir reads documents from the local filesystem. Relative names resolve
// against Root; an empty Root means the working directory. With Confine
// set, a name that resolves outside Root (through "..", an absolute path or
// a symlink) is refused.
type Dir struct {
	Root     string
	MaxBytes int64 // zero means DefaultMaxBytes
	Confine  bool
}

// ReadDocument reads the whole file, checking ctx between chunks.
func (d Dir) ReadDocument(ctx context.Context, name string) ([]byte, error) {
	path := filepath.Clean(name)
	if d.Root != "" && !filepath.IsAbs(path) {
		path = filepath.Join(d.Root, path)
	}
	limit := d.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}

	if err := ctx.Err(); err != nil {
		return nil, &pcd.IOError{Document: name, Err: err}
	}
	if d.Confine {
		root := d.Root
		if root == "" {
			root = "."
		}
		if err := withinRoot(path, root); err != nil {
			return nil, &pcd.IOError{Document: name, Err: err}
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &pcd.IOError{Document: name, Err: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, &pcd.IOError{Document: name, Err: err}
	}
	if info.IsDir() {
		return nil, &pcd.IOError{Document: name, Err: fmt.Errorf("is a directory")}
	}
	if info.Size() > limit {
		return nil, &pcd.IOError{Document: name, Err: fmt.Errorf("file too large: %d bytes (max %d)", info.Size(), limit)}
	}

	var buf bytes.Buffer
	buf.Grow(int(info.Size()))
	if _, err := io.Copy(&buf, &ctxReader{ctx: ctx, r: io.LimitReader(f, limit)}); err != nil {
		return nil, &pcd.IOError{Document: name, Err: err}
	}
	pcd.Tracef("read %s: %d bytes", path, buf.Len())
	return buf.Bytes(), nil
}

// ctxReader stops a copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// Memory serves documents from memory.
type Memory struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

// NewMemory returns an empty in-memory source.
func NewMemory() *Memory {
	return &Memory{docs: make(map[string][]byte)}
}

// Put stores a copy of data under name.
func (m *Memory) Put(name string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[name] = bytes.Clone(data)
}

// ReadDocument returns a copy of the named document.
func (m *Memory) ReadDocument(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &pcd.IOError{Document: name, Err: err}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.docs[name]
	if !ok {
		return nil, &pcd.IOError{Document: name, Err: &fs.PathError{Op: "read", Path: name, Err: fs.ErrNotExist}}
	}
	return bytes.Clone(data), nil
}
