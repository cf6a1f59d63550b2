package extract

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/glorpus-work/apkstash/pkg/archive"
	"github.com/glorpus-work/apkstash/pkg/errutils"
	"github.com/glorpus-work/apkstash/pkg/metrics"
	"github.com/glorpus-work/apkstash/pkg/model"
	"github.com/glorpus-work/apkstash/pkg/storage"
	"github.com/glorpus-work/apkstash/pkg/storage/localfs"
	"github.com/glorpus-work/apkstash/test/testutil"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memSource serves in-memory files. Paths listed in failAt return an error
// after that many bytes have been read.
type memSource struct {
	files  map[string][]byte
	failAt map[string]int
}

var errDeviceGone = errors.New("device disconnected")

func (s *memSource) Stat(_ context.Context, path string) (SourceInfo, error) {
	data, ok := s.files[path]
	if !ok {
		return SourceInfo{}, errutils.ErrNotFoundWithName("source", path)
	}
	return SourceInfo{Size: int64(len(data)), ModTime: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)}, nil
}

func (s *memSource) Open(_ context.Context, path string) (io.ReadCloser, error) {
	data, ok := s.files[path]
	if !ok {
		return nil, errutils.ErrNotFoundWithName("source", path)
	}
	if n, fail := s.failAt[path]; fail {
		return io.NopCloser(io.MultiReader(bytes.NewReader(data[:n]), errReader{})), nil
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errDeviceGone }

// fullTree reports a tiny amount of free space.
type fullTree struct {
	*localfs.Tree
}

func (fullTree) FreeSpace(context.Context, string) (uint64, error) { return 16, nil }

func splitSource() *memSource {
	return &memSource{files: map[string][]byte{
		"/data/app/com.foo-1/base.apk":                bytes.Repeat([]byte("b"), 4096),
		"/data/app/com.foo-1/split_config.en.apk":     bytes.Repeat([]byte("e"), 2048),
		"/data/app/com.foo-1/split_config.xxhdpi.apk": bytes.Repeat([]byte("x"), 1024),
	}}
}

var splitPaths = []string{
	"/data/app/com.foo-1/base.apk",
	"/data/app/com.foo-1/split_config.en.apk",
	"/data/app/com.foo-1/split_config.xxhdpi.apk",
}

func TestEngine_SaveSingleFile(t *testing.T) {
	ctx := context.Background()
	srcDir := t.TempDir()
	dest := t.TempDir()
	src := testutil.WriteAPK(t, srcDir, "base.apk", time.Time{})

	m := metrics.New()
	engine := NewEngine(localfs.New(), LocalSource{}, nil, m)

	var progress []string
	res, err := engine.Save(ctx, Request{
		SourcePaths:     []string{src},
		DestinationDir:  storage.URIFromPath(dest),
		DestinationName: "Foo_2",
		MimeType:        model.MimeTypeAPK,
		Suffix:          ".apk",
		OnProgress:      func(name string) { progress = append(progress, name) },
	})
	require.NoError(t, err)

	assert.Equal(t, ShapeSingle, res.Shape)
	assert.Equal(t, storage.URIFromPath(filepath.Join(dest, "Foo_2.apk")), res.URI)
	assert.Equal(t, 1, res.Count)
	assert.Equal(t, model.MimeTypeAPK, res.MimeType)
	assert.Equal(t, []string{"Foo_2.apk"}, testutil.DirNames(t, dest))
	assert.Equal(t, []string{"base.apk"}, progress)

	want, err := os.ReadFile(src)
	require.NoError(t, err)
	got, err := os.ReadFile(filepath.Join(dest, "Foo_2.apk"))
	require.NoError(t, err)
	assert.Equal(t, want, got)

	assert.Equal(t, 1.0, promtest.ToFloat64(m.Extractions.WithLabelValues("single", metrics.ResultSuccess)))
}

func TestEngine_SaveBundleReportsProgressInOrder(t *testing.T) {
	ctx := context.Background()
	dest := t.TempDir()
	engine := NewEngine(localfs.New(), splitSource(), archive.NewManager(), nil)

	var progress []string
	res, err := engine.Save(ctx, Request{
		SourcePaths:     splitPaths,
		DestinationDir:  storage.URIFromPath(dest),
		DestinationName: "Foo_2",
		MimeType:        model.MimeTypeBundle,
		Suffix:          ".xapk",
		OnProgress:      func(name string) { progress = append(progress, name) },
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"base.apk", "split_config.en.apk", "split_config.xxhdpi.apk"}, progress)
	assert.Equal(t, ShapeBundle, res.Shape)
	assert.Equal(t, 3, res.Count)
	assert.Equal(t, int64(4096+2048+1024), res.Bytes)
	assert.Equal(t, []string{"Foo_2.xapk"}, testutil.DirNames(t, dest))

	f, err := os.Open(filepath.Join(dest, "Foo_2.xapk"))
	require.NoError(t, err)
	defer f.Close()
	names, err := archive.NewManager().List(ctx, f)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"base.apk", "split_config.en.apk", "split_config.xxhdpi.apk"}, names)
}

func TestEngine_SaveBundleFailureLeavesNothing(t *testing.T) {
	dest := t.TempDir()
	source := splitSource()
	source.failAt = map[string]int{"/data/app/com.foo-1/split_config.en.apk": 100}
	m := metrics.New()
	engine := NewEngine(localfs.New(), source, nil, m)

	var progress []string
	_, err := engine.Save(context.Background(), Request{
		SourcePaths:     splitPaths,
		DestinationDir:  storage.URIFromPath(dest),
		DestinationName: "Foo_2",
		MimeType:        model.MimeTypeBundle,
		Suffix:          ".xapk",
		OnProgress:      func(name string) { progress = append(progress, name) },
	})
	require.Error(t, err)

	var failure *Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, CauseSourceUnreadable, failure.Cause)
	assert.Equal(t, "/data/app/com.foo-1/split_config.en.apk", failure.Path)
	assert.ErrorIs(t, err, errutils.ErrSourceUnreadable)
	assert.ErrorIs(t, err, errDeviceGone)

	assert.Equal(t, []string{"base.apk"}, progress)
	assert.Empty(t, testutil.DirNames(t, dest))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.Extractions.WithLabelValues("bundle", metrics.ResultFailure)))
}

func TestEngine_SaveCanceledMidBundle(t *testing.T) {
	dest := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	engine := NewEngine(localfs.New(), splitSource(), nil, nil)

	_, err := engine.Save(ctx, Request{
		SourcePaths:     splitPaths,
		DestinationDir:  storage.URIFromPath(dest),
		DestinationName: "Foo_2",
		Suffix:          ".xapk",
		OnProgress:      func(string) { cancel() },
	})
	require.Error(t, err)

	var failure *Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, CauseCanceled, failure.Cause)
	assert.ErrorIs(t, err, errutils.ErrCanceled)
	assert.Empty(t, testutil.DirNames(t, dest))
}

func TestEngine_SaveFailures(t *testing.T) {
	tests := []struct {
		name  string
		tree  func() storage.Tree
		req   func(dest string) Request
		cause Cause
		is    error
	}{
		{
			name: "no sources",
			tree: func() storage.Tree { return localfs.New() },
			req: func(dest string) Request {
				return Request{DestinationDir: storage.URIFromPath(dest), DestinationName: "Foo"}
			},
			cause: CauseInvalid,
			is:    errutils.ErrValidation,
		},
		{
			name: "name with separator",
			tree: func() storage.Tree { return localfs.New() },
			req: func(dest string) Request {
				return Request{SourcePaths: splitPaths[:1], DestinationDir: storage.URIFromPath(dest), DestinationName: "../Foo"}
			},
			cause: CauseInvalid,
			is:    errutils.ErrValidation,
		},
		{
			name: "missing source",
			tree: func() storage.Tree { return localfs.New() },
			req: func(dest string) Request {
				return Request{SourcePaths: []string{"/data/app/gone/base.apk"}, DestinationDir: storage.URIFromPath(dest), DestinationName: "Foo"}
			},
			cause: CauseSourceUnreadable,
			is:    errutils.ErrNotFound,
		},
		{
			name: "not enough space",
			tree: func() storage.Tree { return fullTree{localfs.New()} },
			req: func(dest string) Request {
				return Request{SourcePaths: splitPaths, DestinationDir: storage.URIFromPath(dest), DestinationName: "Foo", Suffix: ".xapk"}
			},
			cause: CauseInsufficientSpace,
			is:    errutils.ErrInsufficientSpace,
		},
		{
			name: "destination missing",
			tree: func() storage.Tree { return localfs.New() },
			req: func(dest string) Request {
				return Request{SourcePaths: splitPaths[:1], DestinationDir: storage.URIFromPath(filepath.Join(dest, "gone")), DestinationName: "Foo"}
			},
			cause: CauseDestinationWrite,
			is:    errutils.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dest := t.TempDir()
			engine := NewEngine(tt.tree(), splitSource(), nil, nil)

			_, err := engine.Save(context.Background(), tt.req(dest))
			var failure *Failure
			require.ErrorAs(t, err, &failure)
			assert.Equal(t, tt.cause, failure.Cause)
			assert.ErrorIs(t, err, tt.is)
			assert.NotEmpty(t, failure.Cause.String())
			assert.Empty(t, testutil.DirNames(t, dest))
		})
	}
}

func TestEngine_SaveReplacesExisting(t *testing.T) {
	dest := t.TempDir()
	testutil.WriteFile(t, dest, "Foo.apk", []byte("old"), time.Time{})
	engine := NewEngine(localfs.New(), splitSource(), nil, nil)

	_, err := engine.Save(context.Background(), Request{
		SourcePaths:     splitPaths[:1],
		DestinationDir:  storage.URIFromPath(dest),
		DestinationName: "Foo",
		Suffix:          ".apk",
	})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dest, "Foo.apk"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "bbbb"))
	assert.Equal(t, []string{"Foo.apk"}, testutil.DirNames(t, dest))
}
