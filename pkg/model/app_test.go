package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstalledApp_SourcePaths(t *testing.T) {
	app := InstalledApp{
		SourceDir:       "/data/app/foo/base.apk",
		SplitSourceDirs: []string{"/data/app/foo/split_config.en.apk", "/data/app/foo/split_config.arm64.apk"},
	}
	assert.True(t, app.IsSplit())
	assert.Equal(t, []string{
		"/data/app/foo/base.apk",
		"/data/app/foo/split_config.en.apk",
		"/data/app/foo/split_config.arm64.apk",
	}, app.SourcePaths())

	single := InstalledApp{SourceDir: "/data/app/bar/base.apk"}
	assert.False(t, single.IsSplit())
	assert.Equal(t, []string{"/data/app/bar/base.apk"}, single.SourcePaths())
}

func TestInstalledApp_Flags(t *testing.T) {
	assert.True(t, (&InstalledApp{Flags: FlagSystem}).IsSystem())
	assert.True(t, (&InstalledApp{Flags: FlagUpdatedSystem | FlagUser}).IsSystem())
	assert.False(t, (&InstalledApp{Flags: FlagUser}).IsSystem())
}

func TestInstalledApp_SizeAndVersion(t *testing.T) {
	app := InstalledApp{SizeBytes: 3 * BytesPerMB / 2, VersionName: "2.1.0"}
	assert.InDelta(t, 1.5, app.Size(), 0.0001)
	require.NotNil(t, app.ParsedVersion())
	assert.Equal(t, "2.1.0", app.ParsedVersion().String())

	app.VersionName = "beta-build"
	assert.Nil(t, app.ParsedVersion())
}

func TestParseCategory(t *testing.T) {
	assert.Equal(t, CategoryGame, ParseCategory(0))
	assert.Equal(t, CategoryProductivity, ParseCategory(7))
	assert.Equal(t, CategoryUndefined, ParseCategory(-1))
	assert.Equal(t, CategoryUndefined, ParseCategory(42))
}

func TestArchiveFile_WithMeta(t *testing.T) {
	mod := time.Unix(1700000000, 0)
	f := ArchiveFile{FileURI: "file:///s/foo.apk", FileName: "foo.apk", FileSize: 10, FileLastModified: mod}
	assert.Equal(t, "foo.apk", f.DisplayName())

	loaded := f.WithMeta(ApkMeta{PackageName: "com.foo", Label: "Foo", VersionCode: 2, MinSdkVersion: 21, TargetSdkVersion: 34})
	assert.False(t, f.Loaded)
	assert.True(t, loaded.Loaded)
	assert.Equal(t, "Foo", loaded.DisplayName())
	assert.Equal(t, int64(2), *loaded.AppVersionCode)
	assert.Equal(t, 34, *loaded.AppTargetSdkVersion)

	assert.True(t, f.SameContent(&loaded))
	changed := f
	changed.FileSize = 11
	assert.False(t, f.SameContent(&changed))
}
