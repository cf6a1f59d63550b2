package extract

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/glorpus-work/apkstash/pkg/errutils"
)

// SourceInfo describes one installed source file.
type SourceInfo struct {
	Size    int64
	ModTime time.Time
}

// Source reads the installed source files of a package.
type Source interface {
	Stat(ctx context.Context, path string) (SourceInfo, error)
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}

// LocalSource reads source paths from the local filesystem.
type LocalSource struct{}

var _ Source = LocalSource{}

// Stat returns the size and modification time of path.
func (LocalSource) Stat(_ context.Context, path string) (SourceInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return SourceInfo{}, errutils.Wrapf(errutils.Classify(err), "failed to stat %s", path)
	}
	return SourceInfo{Size: info.Size(), ModTime: info.ModTime()}, nil
}

// Open opens path for reading.
func (LocalSource) Open(_ context.Context, path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errutils.Wrapf(errutils.Classify(err), "failed to open %s", path)
	}
	return f, nil
}
