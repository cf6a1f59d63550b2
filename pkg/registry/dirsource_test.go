package registry

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/glorpus-work/apkstash/pkg/errutils"
	"github.com/glorpus-work/apkstash/pkg/model"
	"github.com/glorpus-work/apkstash/test/testutil"
	"github.com/mholt/archives"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var installTime = time.Date(2024, 3, 9, 8, 0, 0, 0, time.UTC)

type stubMeta struct {
	meta model.ApkMeta
	err  error
}

func (s stubMeta) Resolve(context.Context, archives.ReaderAtSeeker) (model.ApkMeta, error) {
	return s.meta, s.err
}

func appTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	testutil.WriteFile(t, root, "com.example.foo/base.apk", []byte("base"), installTime)
	testutil.WriteFile(t, root, "com.example.foo/split_config.xxhdpi.apk", []byte("xxhdpi"), installTime)
	testutil.WriteFile(t, root, "com.example.foo/split_config.en.apk", []byte("en"), installTime)
	testutil.WriteFile(t, root, "com.example.foo/notes.txt", []byte("ignored"), installTime)
	testutil.WriteFile(t, root, "system/com.android.settings/base.apk", []byte("settings"), installTime)
	testutil.WriteFile(t, root, "system/com.android.chrome/base.apk", []byte("chrome-old"), installTime)
	testutil.WriteFile(t, root, "com.android.chrome/base.apk", []byte("chrome"), installTime)
	testutil.WriteFile(t, root, "empty/readme.txt", []byte("no base"), installTime)
	return root
}

func TestDirSource_List(t *testing.T) {
	src := NewDirSource(appTree(t), nil)
	got, err := src.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"com.android.chrome", "com.android.settings", "com.example.foo"}, got)
}

func TestDirSource_Get(t *testing.T) {
	root := appTree(t)
	src := NewDirSource(root, nil)
	ctx := context.Background()

	foo, err := src.Get(ctx, "com.example.foo")
	require.NoError(t, err)
	assert.Equal(t, model.FlagUser, foo.Flags)
	assert.Equal(t, "com.example.foo", foo.Label)
	assert.Equal(t, filepath.Join(root, "com.example.foo", "base.apk"), foo.SourceDir)
	assert.Equal(t, []string{
		filepath.Join(root, "com.example.foo", "split_config.en.apk"),
		filepath.Join(root, "com.example.foo", "split_config.xxhdpi.apk"),
	}, foo.SplitSourceDirs)
	assert.Equal(t, int64(len("base")+len("xxhdpi")+len("en")), foo.SizeBytes)
	assert.True(t, foo.FirstInstallTime.Equal(installTime))

	settings, err := src.Get(ctx, "com.android.settings")
	require.NoError(t, err)
	assert.Equal(t, model.FlagSystem, settings.Flags)
	assert.False(t, settings.IsSplit())

	chrome, err := src.Get(ctx, "com.android.chrome")
	require.NoError(t, err)
	assert.Equal(t, model.FlagUpdatedSystem, chrome.Flags)
	assert.Equal(t, filepath.Join(root, "com.android.chrome", "base.apk"), chrome.SourceDir)

	_, err = src.Get(ctx, "com.example.missing")
	assert.ErrorIs(t, err, errutils.ErrNotFound)
}

func TestDirSource_Meta(t *testing.T) {
	root := appTree(t)
	ctx := context.Background()

	src := NewDirSource(root, stubMeta{meta: model.ApkMeta{Label: "Foo", VersionName: "2", VersionCode: 20}})
	foo, err := src.Get(ctx, "com.example.foo")
	require.NoError(t, err)
	assert.Equal(t, "Foo", foo.Label)
	assert.Equal(t, "2", foo.VersionName)
	assert.Equal(t, int64(20), foo.VersionCode)

	src = NewDirSource(root, stubMeta{err: errutils.ErrCorruptArchive})
	foo, err = src.Get(ctx, "com.example.foo")
	require.NoError(t, err, "unreadable metadata falls back to the package name")
	assert.Equal(t, "com.example.foo", foo.Label)
}

func TestDirSource_FeedsRegistry(t *testing.T) {
	r := New(NewDirSource(appTree(t), nil), func() []string { return []string{"com.android.settings"} }, nil)
	snap, err := r.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"com.android.settings"}, names(snap.Favorites))
	assert.Equal(t, []string{"com.example.foo"}, names(snap.User))
	assert.Equal(t, []string{"com.android.chrome"}, names(snap.System))
}

func TestDirSource_MissingRoot(t *testing.T) {
	src := NewDirSource(filepath.Join(t.TempDir(), "nope"), nil)
	_, err := src.List(context.Background())
	assert.ErrorIs(t, err, errutils.ErrNotFound)
}
