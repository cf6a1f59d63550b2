package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memEntry(name, content string) Entry {
	return Entry{
		Name:    name,
		Size:    int64(len(content)),
		ModTime: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(content)), nil
		},
	}
}

func TestManager_WriteBundleAndRead(t *testing.T) {
	ctx := context.Background()
	am := NewManager()

	entries := []Entry{
		memEntry("base.apk", "base-bytes"),
		memEntry("split_config.en.apk", "en-bytes"),
		memEntry("split_config.arm64_v8a.apk", "arm-bytes"),
	}

	var progress []string
	var buf bytes.Buffer
	err := am.WriteBundle(ctx, &buf, entries, func(i int, name string) {
		assert.Equal(t, entries[i].Name, name)
		progress = append(progress, name)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"base.apk", "split_config.en.apk", "split_config.arm64_v8a.apk"}, progress)

	stream := bytes.NewReader(buf.Bytes())
	names, err := am.List(ctx, stream)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"base.apk", "split_config.en.apk", "split_config.arm64_v8a.apk"}, names)

	data, err := am.ReadFile(ctx, stream, "split_config.en.apk")
	require.NoError(t, err)
	assert.Equal(t, "en-bytes", string(data))
}

func TestManager_WriteBundleStoresEntries(t *testing.T) {
	content := strings.Repeat("compressible ", 200)
	var buf bytes.Buffer
	err := NewManager().WriteBundle(context.Background(), &buf,
		[]Entry{memEntry("base.apk", content), memEntry("split_config.en.apk", content)}, nil)
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)
	for _, f := range zr.File {
		assert.Equal(t, zip.Store, f.Method, f.Name)
		assert.Equal(t, uint64(len(content)), f.CompressedSize64, f.Name)
	}
}

func TestManager_WriteBundleStopsAtFailingEntry(t *testing.T) {
	boom := errors.New("device went away")
	failing := Entry{
		Name: "split_config.en.apk",
		Size: 4,
		Open: func() (io.ReadCloser, error) { return nil, boom },
	}
	var opened []string
	third := memEntry("split_config.xhdpi.apk", "x")
	origOpen := third.Open
	third.Open = func() (io.ReadCloser, error) {
		opened = append(opened, third.Name)
		return origOpen()
	}

	var progress []string
	err := NewManager().WriteBundle(context.Background(), io.Discard,
		[]Entry{memEntry("base.apk", "base"), failing, third},
		func(_ int, name string) { progress = append(progress, name) })

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"base.apk"}, progress)
	assert.Empty(t, opened)
}

func TestManager_WriteBundleRejectsShortStream(t *testing.T) {
	short := memEntry("base.apk", "abc")
	short.Size = 10

	err := NewManager().WriteBundle(context.Background(), io.Discard, []Entry{short}, nil)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestManager_WriteBundleCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewManager().WriteBundle(ctx, io.Discard, []Entry{memEntry("base.apk", "x")}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestManager_ReadFileRejectsNonArchive(t *testing.T) {
	_, err := NewManager().ReadFile(context.Background(), bytes.NewReader([]byte("plain text, not a zip")), "AndroidManifest.xml")
	assert.Error(t, err)
}
