// Package vfs is an in-memory store of project files. It is the single
// place the compiler's worlds read source and asset bytes from, and it
// mirrors a host directory on demand.
package vfs

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxBytes bounds the total size of a disk (64 MiB).
const DefaultMaxBytes = 64 << 20

// maxSegment bounds one path segment in bytes.
const maxSegment = 255

// validSegment reports whether seg can be one path segment of a project
// file: valid UTF-8 without control characters, and neither "." nor "..".
func validSegment(seg string) bool {
	if seg == "" || seg == "." || seg == ".." || len(seg) > maxSegment || !utf8.ValidString(seg) {
		return false
	}
	for _, r := range seg {
		if unicode.IsControl(r) {
			return false
		}
	}
	return true
}

var (
	ErrFileNotFound    = errors.New("file not found")
	ErrInvalidFilename = errors.New("invalid filename")
	ErrQuotaExceeded   = errors.New("disk quota exceeded")
)

type FileEntry struct {
	Data     []byte
	Created  time.Time
	Modified time.Time
	// Version increases with every write.
	Version uint64
}

// Disk holds project files keyed by clean slash-separated paths relative
// to the project root.
type Disk struct {
	mu         sync.RWMutex
	files      map[string]*FileEntry
	dirtyFiles map[string]bool
	usedBytes  int
	maxBytes   int
}

// NewDisk creates an empty disk holding at most maxBytes. A non-positive
// limit selects DefaultMaxBytes.
func NewDisk(maxBytes int) *Disk {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Disk{
		files:      make(map[string]*FileEntry),
		dirtyFiles: make(map[string]bool),
		maxBytes:   maxBytes,
	}
}

// Clean validates name and returns its canonical form. Names may not
// leave the project root.
func Clean(name string) (string, error) {
	name = strings.TrimPrefix(strings.ReplaceAll(name, "\\", "/"), "/")
	if name == "" {
		return "", ErrInvalidFilename
	}
	for _, seg := range strings.Split(name, "/") {
		if !validSegment(seg) {
			return "", ErrInvalidFilename
		}
	}
	return path.Clean(name), nil
}

// Write stores a copy of data under name, replacing an existing file.
func (d *Disk) Write(name string, data []byte) error {
	name, err := Clean(name)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	oldSize := 0
	if entry, ok := d.files[name]; ok {
		oldSize = len(entry.Data)
	}
	if d.usedBytes-oldSize+len(data) > d.maxBytes {
		return ErrQuotaExceeded
	}
	d.write(name, data, time.Now())
	return nil
}

func (d *Disk) write(name string, data []byte, modified time.Time) {
	entry, ok := d.files[name]
	if !ok {
		entry = &FileEntry{Created: modified}
		d.files[name] = entry
	}
	d.usedBytes += len(data) - len(entry.Data)
	entry.Data = bytes.Clone(data)
	entry.Modified = modified
	entry.Version++
	d.dirtyFiles[name] = true
}

func (d *Disk) delete(name string) {
	if entry, ok := d.files[name]; ok {
		d.usedBytes -= len(entry.Data)
		delete(d.files, name)
		d.dirtyFiles[name] = true
	}
}

// Read returns the contents of name. The slice must not be modified.
func (d *Disk) Read(name string) ([]byte, error) {
	name, err := Clean(name)
	if err != nil {
		return nil, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	entry, ok := d.files[name]
	if !ok {
		return nil, ErrFileNotFound
	}
	return entry.Data, nil
}

// Stat returns a copy of the metadata of name without its data.
func (d *Disk) Stat(name string) (FileEntry, error) {
	name, err := Clean(name)
	if err != nil {
		return FileEntry{}, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	entry, ok := d.files[name]
	if !ok {
		return FileEntry{}, ErrFileNotFound
	}
	meta := *entry
	meta.Data = nil
	return meta, nil
}

// Delete removes name from the disk.
func (d *Disk) Delete(name string) error {
	name, err := Clean(name)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.files[name]; !ok {
		return ErrFileNotFound
	}
	d.delete(name)
	return nil
}

// UsedBytes returns the total size of all files.
func (d *Disk) UsedBytes() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.usedBytes
}

// List returns all file names in sorted order.
func (d *Disk) List() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	keys := make([]string, 0, len(d.files))
	for k := range d.files {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// LoadFrom mirrors the host directory root onto the disk: new and
// modified files are read, files gone from the host are removed. Hidden
// entries and names the disk cannot hold are skipped. It returns the
// names that changed, sorted. A missing root is an empty project.
func (d *Disk) LoadFrom(root string) ([]string, error) {
	seen := make(map[string]bool)
	var changed []string
	err := filepath.WalkDir(root, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			if p == root && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if p == root {
			return nil
		}
		if strings.HasPrefix(entry.Name(), ".") {
			if entry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if entry.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return nil
		}
		name, err := Clean(filepath.ToSlash(rel))
		if err != nil {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return nil
		}
		seen[name] = true

		d.mu.RLock()
		old, ok := d.files[name]
		fresh := ok && old.Modified.Equal(info.ModTime()) && len(old.Data) == int(info.Size())
		d.mu.RUnlock()
		if fresh {
			return nil
		}
		raw, err := os.ReadFile(p)
		if err != nil {
			return nil
		}
		d.mu.Lock()
		d.write(name, raw, info.ModTime())
		delete(d.dirtyFiles, name)
		d.mu.Unlock()
		changed = append(changed, name)
		return nil
	})
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	for name := range d.files {
		if !seen[name] {
			d.delete(name)
			delete(d.dirtyFiles, name)
			changed = append(changed, name)
		}
	}
	over := d.usedBytes > d.maxBytes
	d.mu.Unlock()

	sort.Strings(changed)
	if over {
		return changed, ErrQuotaExceeded
	}
	return changed, nil
}

// PersistTo writes all files changed through Write or Delete to the host
// directory root. It returns the first error; failed files stay dirty.
func (d *Disk) PersistTo(root string) error {
	if err := os.MkdirAll(root, 0755); err != nil {
		return err
	}

	// Snapshot under the lock, then do the I/O without it.
	d.mu.Lock()
	snapshot := make(map[string]FileEntry)
	var deleted []string
	for name := range d.dirtyFiles {
		if entry, ok := d.files[name]; ok {
			snapshot[name] = FileEntry{Data: bytes.Clone(entry.Data), Modified: entry.Modified}
		} else {
			deleted = append(deleted, name)
		}
		delete(d.dirtyFiles, name)
	}
	d.mu.Unlock()

	var firstErr error
	fail := func(name string, err error) {
		d.mu.Lock()
		d.dirtyFiles[name] = true
		d.mu.Unlock()
		if firstErr == nil {
			firstErr = err
		}
	}
	for _, name := range deleted {
		if err := os.Remove(filepath.Join(root, filepath.FromSlash(name))); err != nil && !os.IsNotExist(err) {
			fail(name, err)
		}
	}
	for name, entry := range snapshot {
		full := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			fail(name, err)
			continue
		}
		if err := os.WriteFile(full, entry.Data, 0644); err != nil {
			fail(name, err)
			continue
		}
		_ = os.Chtimes(full, time.Now(), entry.Modified)
	}
	return firstErr
}
