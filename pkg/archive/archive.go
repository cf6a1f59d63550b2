// Package archive writes split bundles as zip containers and reads single
// entries back out of package archives.
package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"time"

	"github.com/mholt/archives"
)

// Entry is one constituent of a bundle. Open is called once, when the entry
// is written.
type Entry struct {
	Name    string
	Size    int64
	ModTime time.Time
	Open    func() (io.ReadCloser, error)
}

// Manager handles archive reading and bundle creation.
type Manager struct {
	format archives.Zip
}

// NewManager creates a new Manager. Bundle entries are package archives,
// which are already compressed, so every entry is stored.
func NewManager() *Manager {
	return &Manager{format: archives.Zip{Compression: zip.Store}}
}

// WriteBundle streams entries into a zip container on w, one at a time and in
// order. onEntry is called after each entry is fully written. The first
// failing entry stops the write and its error is returned; w then holds an
// incomplete container that the caller must discard.
func (am *Manager) WriteBundle(ctx context.Context, w io.Writer, entries []Entry, onEntry func(index int, name string)) error {
	jobs := make(chan archives.ArchiveAsyncJob)
	done := make(chan error, 1)
	go func() {
		done <- am.format.ArchiveAsync(ctx, w, jobs)
	}()

	var writeErr error
	for i, e := range entries {
		result := make(chan error, 1)
		select {
		case jobs <- archives.ArchiveAsyncJob{File: e.fileInfo(), Result: result}:
		case <-ctx.Done():
			writeErr = ctx.Err()
		}
		if writeErr != nil {
			break
		}
		if err := <-result; err != nil {
			writeErr = fmt.Errorf("failed to add %s: %w", e.Name, err)
			break
		}
		if onEntry != nil {
			onEntry(i, e.Name)
		}
	}
	close(jobs)

	if err := <-done; err != nil && writeErr == nil {
		writeErr = fmt.Errorf("failed to finish bundle: %w", err)
	}
	return writeErr
}

// ReadFile returns the contents of name inside the archive read from stream.
func (am *Manager) ReadFile(ctx context.Context, stream archives.ReaderAtSeeker, name string) ([]byte, error) {
	fsys, err := am.open(ctx, stream)
	if err != nil {
		return nil, err
	}
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s from archive: %w", name, err)
	}
	return data, nil
}

// List returns every file path in the archive read from stream.
func (am *Manager) List(ctx context.Context, stream archives.ReaderAtSeeker) ([]string, error) {
	fsys, err := am.open(ctx, stream)
	if err != nil {
		return nil, err
	}
	var names []string
	err = fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			names = append(names, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk archive: %w", err)
	}
	return names, nil
}

func (am *Manager) open(ctx context.Context, stream archives.ReaderAtSeeker) (fs.FS, error) {
	if _, err := stream.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind archive: %w", err)
	}
	fsys, err := archives.FileSystem(ctx, "", stream)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	if _, ok := fsys.(*archives.ArchiveFS); !ok {
		return nil, fmt.Errorf("failed to open archive: not a zip container")
	}
	return fsys, nil
}

func (e Entry) fileInfo() archives.FileInfo {
	info := entryInfo{name: e.Name, size: e.Size, modTime: e.ModTime}
	return archives.FileInfo{
		FileInfo:      info,
		NameInArchive: e.Name,
		Open: func() (fs.File, error) {
			rc, err := e.Open()
			if err != nil {
				return nil, err
			}
			return &entryFile{ReadCloser: rc, info: info}, nil
		},
	}
}

type entryInfo struct {
	name    string
	size    int64
	modTime time.Time
}

func (i entryInfo) Name() string       { return i.name }
func (i entryInfo) Size() int64        { return i.size }
func (i entryInfo) Mode() fs.FileMode  { return 0o644 }
func (i entryInfo) ModTime() time.Time { return i.modTime }
func (i entryInfo) IsDir() bool        { return false }
func (i entryInfo) Sys() any           { return nil }

// entryFile adapts a plain stream to fs.File and rejects short reads, which
// the zip writer would otherwise accept.
type entryFile struct {
	io.ReadCloser
	info entryInfo
	read int64
}

func (f *entryFile) Stat() (fs.FileInfo, error) { return f.info, nil }

func (f *entryFile) Read(p []byte) (int, error) {
	n, err := f.ReadCloser.Read(p)
	f.read += int64(n)
	if err == io.EOF && f.read < f.info.size {
		return n, fmt.Errorf("%s: %w after %d of %d bytes", f.info.name, io.ErrUnexpectedEOF, f.read, f.info.size)
	}
	return n, err
}
