// Package localfs implements storage.Tree on the local filesystem.
package localfs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/glorpus-work/apkstash/pkg/errutils"
	"github.com/glorpus-work/apkstash/pkg/fsutil"
	"github.com/glorpus-work/apkstash/pkg/model"
	"github.com/glorpus-work/apkstash/pkg/storage"
	"github.com/google/uuid"
)

// Tree is a storage.Tree over os.
type Tree struct{}

// New returns a local filesystem tree.
func New() *Tree {
	return &Tree{}
}

var _ storage.Tree = (*Tree)(nil)

// List returns the regular files directly under dirURI. In-progress
// temporary files are skipped.
func (t *Tree) List(ctx context.Context, dirURI string) ([]storage.Entry, error) {
	dir, err := storage.PathFromURI(dirURI)
	if err != nil {
		return nil, err
	}
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errutils.Wrapf(errutils.Classify(err), "failed to list %s", dir)
	}

	entries := make([]storage.Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		if err := ctx.Err(); err != nil {
			return nil, errutils.Classify(err)
		}
		if !de.Type().IsRegular() || fsutil.IsTempName(de.Name()) {
			continue
		}
		entry, err := stat(filepath.Join(dir, de.Name()))
		if err != nil {
			// removed between ReadDir and Stat
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Stat describes the file at uri.
func (t *Tree) Stat(_ context.Context, uri string) (storage.Entry, error) {
	path, err := storage.PathFromURI(uri)
	if err != nil {
		return storage.Entry{}, err
	}
	entry, err := stat(path)
	if err != nil {
		return storage.Entry{}, errutils.Wrapf(errutils.Classify(err), "failed to stat %s", path)
	}
	return entry, nil
}

// Open opens uri for reading.
func (t *Tree) Open(_ context.Context, uri string) (storage.File, error) {
	path, err := storage.PathFromURI(uri)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errutils.Wrapf(errutils.Classify(err), "failed to open %s", path)
	}
	return f, nil
}

// CreateTemp opens a new hidden temporary file in dirURI.
func (t *Tree) CreateTemp(_ context.Context, dirURI string) (storage.Pending, error) {
	dir, err := storage.PathFromURI(dirURI)
	if err != nil {
		return nil, err
	}
	name := filepath.Join(dir, fsutil.TempPrefix+uuid.NewString()+fsutil.TempSuffix)
	f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, fsutil.FileModeDefault)
	if err != nil {
		return nil, errutils.Wrapf(errutils.Classify(err), "failed to create temporary file in %s", dir)
	}
	return &pending{file: f, dir: dir}, nil
}

// Delete removes the file at uri.
func (t *Tree) Delete(_ context.Context, uri string) error {
	path, err := storage.PathFromURI(uri)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return errutils.Wrapf(errutils.Classify(err), "failed to delete %s", path)
	}
	return nil
}

// FreeSpace reports the bytes available to unprivileged users under dirURI.
func (t *Tree) FreeSpace(_ context.Context, dirURI string) (uint64, error) {
	dir, err := storage.PathFromURI(dirURI)
	if err != nil {
		return 0, err
	}
	return freeSpace(dir)
}

func stat(path string) (storage.Entry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return storage.Entry{}, err
	}
	if info.IsDir() {
		return storage.Entry{}, fmt.Errorf("%s is a directory", path)
	}
	return storage.Entry{
		URI:      storage.URIFromPath(path),
		Name:     info.Name(),
		MimeType: detectMime(path),
		ModTime:  info.ModTime(),
		Size:     info.Size(),
	}, nil
}

// detectMime sniffs the content. Package archives whose manifest entry is not
// within the sniffed prefix are reported as zip; the .apk extension settles those.
func detectMime(path string) string {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return "application/octet-stream"
	}
	if mt.Is(model.MimeTypeAPK) {
		return model.MimeTypeAPK
	}
	if strings.EqualFold(filepath.Ext(path), ".apk") && (mt.Is("application/zip") || mt.Is("application/jar")) {
		return model.MimeTypeAPK
	}
	return mt.String()
}

type pending struct {
	file *os.File
	dir  string
	done bool
}

func (p *pending) Write(b []byte) (int, error) {
	n, err := p.file.Write(b)
	if err != nil {
		return n, errutils.Wrap(errutils.Classify(err), "failed to write temporary file")
	}
	return n, nil
}

func (p *pending) Commit(ctx context.Context, name string) (string, error) {
	if p.done {
		return "", fmt.Errorf("temporary file already finalized")
	}
	if err := ctx.Err(); err != nil {
		_ = p.Abort()
		return "", errutils.Classify(err)
	}
	if name == "" || strings.ContainsAny(name, `/\`) {
		_ = p.Abort()
		return "", fmt.Errorf("%w: invalid file name %q", errutils.ErrValidation, name)
	}
	p.done = true
	tmp := p.file.Name()
	if err := p.file.Sync(); err != nil {
		_ = p.file.Close()
		_ = os.Remove(tmp)
		return "", errutils.Wrap(errutils.Classify(err), "failed to flush temporary file")
	}
	if err := p.file.Close(); err != nil {
		_ = os.Remove(tmp)
		return "", errutils.Wrap(errutils.Classify(err), "failed to close temporary file")
	}
	final := filepath.Join(p.dir, name)
	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return "", errutils.Wrapf(errutils.Classify(err), "failed to finalize %s", final)
	}
	return storage.URIFromPath(final), nil
}

func (p *pending) Abort() error {
	if p.done {
		return nil
	}
	p.done = true
	_ = p.file.Close()
	if err := os.Remove(p.file.Name()); err != nil && !os.IsNotExist(err) {
		return errutils.Wrap(errutils.Classify(err), "failed to remove temporary file")
	}
	return nil
}
