// Package storage defines the filesystem collaborator used by the catalog and
// the extraction engine. Locations are addressed by URI so that the core does
// not depend on how the tree is backed.
package storage

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"path/filepath"
	"time"

	"github.com/glorpus-work/apkstash/pkg/errutils"
)

// Entry describes one file in a tree.
type Entry struct {
	URI      string
	Name     string
	MimeType string
	ModTime  time.Time
	Size     int64
}

// File is an open, seekable file. archives and apkparser both read through it.
type File interface {
	io.Reader
	io.ReaderAt
	io.Seeker
	io.Closer
	Stat() (fs.FileInfo, error)
}

// Pending is a file being written under a temporary name. Exactly one of
// Commit or Abort must be called.
type Pending interface {
	io.Writer
	// Commit flushes, closes and renames the file to name in its directory,
	// returning the final URI.
	Commit(ctx context.Context, name string) (string, error)
	// Abort closes and removes the temporary file.
	Abort() error
}

// Tree is a directory tree the process holds standing access to.
type Tree interface {
	List(ctx context.Context, dirURI string) ([]Entry, error)
	Stat(ctx context.Context, uri string) (Entry, error)
	Open(ctx context.Context, uri string) (File, error)
	CreateTemp(ctx context.Context, dirURI string) (Pending, error)
	Delete(ctx context.Context, uri string) error
	// FreeSpace returns the available bytes under dirURI, or 0 when unknown.
	FreeSpace(ctx context.Context, dirURI string) (uint64, error)
}

const fileScheme = "file"

// URIFromPath converts an absolute or relative path into a file URI.
func URIFromPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	u := url.URL{Scheme: fileScheme, Path: filepath.ToSlash(abs)}
	return u.String()
}

// PathFromURI returns the local path of a file URI. Bare paths are accepted
// as-is.
func PathFromURI(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("%w: bad uri %q: %w", errutils.ErrValidation, uri, err)
	}
	switch u.Scheme {
	case "":
		return filepath.FromSlash(uri), nil
	case fileScheme:
		if u.Host != "" && u.Host != "localhost" {
			return "", fmt.Errorf("%w: remote file uri %q", errutils.ErrValidation, uri)
		}
		return filepath.FromSlash(u.Path), nil
	default:
		return "", fmt.Errorf("%w: unsupported uri scheme %q", errutils.ErrValidation, u.Scheme)
	}
}
