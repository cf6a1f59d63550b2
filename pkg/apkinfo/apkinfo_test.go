package apkinfo

import (
	"bytes"
	"context"
	"testing"

	"github.com/glorpus-work/apkstash/pkg/errutils"
	"github.com/glorpus-work/apkstash/test/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const decodedManifest = `<manifest xmlns:android="http://schemas.android.com/apk/res/android" android:versionCode="2" android:versionName="2.0" package="com.example.foo">
	<uses-sdk android:minSdkVersion="21" android:targetSdkVersion="34"></uses-sdk>
	<application android:label="Foo" android:icon="res/mipmap-xxhdpi/ic_launcher.png"></application>
</manifest>`

func TestDecodeManifest(t *testing.T) {
	m, err := decodeManifest([]byte(decodedManifest))
	require.NoError(t, err)

	meta := m.meta()
	assert.Equal(t, "com.example.foo", meta.PackageName)
	assert.Equal(t, "Foo", meta.Label)
	assert.Equal(t, "2.0", meta.VersionName)
	assert.Equal(t, int64(2), meta.VersionCode)
	assert.Equal(t, 21, meta.MinSdkVersion)
	assert.Equal(t, 34, meta.TargetSdkVersion)
	assert.Equal(t, "res/mipmap-xxhdpi/ic_launcher.png", m.Application.Icon)
}

func TestDecodeManifest_PreviewSdkAndMissingPackage(t *testing.T) {
	m, err := decodeManifest([]byte(`<manifest package="com.example.bar"><uses-sdk minSdkVersion="Q"/></manifest>`))
	require.NoError(t, err)
	assert.Equal(t, 0, m.meta().MinSdkVersion)

	_, err = decodeManifest([]byte(`<manifest versionCode="1"/>`))
	assert.ErrorIs(t, err, errutils.ErrCorruptArchive)

	_, err = decodeManifest([]byte(`<manifest`))
	assert.ErrorIs(t, err, errutils.ErrCorruptArchive)
}

func TestResolver_CorruptArchives(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "manifest is not binary xml", data: testutil.APKBytes(t)},
		{name: "not a zip", data: []byte("this is not an archive at all")},
		{name: "zip without manifest", data: testutil.ZipBytes(t, testutil.Entry{Name: "classes.dex", Data: []byte("dex")})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewResolver(nil).Resolve(context.Background(), bytes.NewReader(tt.data))
			assert.ErrorIs(t, err, errutils.ErrCorruptArchive)
		})
	}
}

func TestResolver_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewResolver(nil).Resolve(ctx, bytes.NewReader(testutil.APKBytes(t)))
	assert.ErrorIs(t, err, errutils.ErrCanceled)
}

func TestIsBitmap(t *testing.T) {
	assert.True(t, isBitmap("res/mipmap-xxhdpi/ic_launcher.png"))
	assert.True(t, isBitmap("res/drawable/icon.WEBP"))
	assert.False(t, isBitmap("res/mipmap-anydpi-v26/ic_launcher.xml"))
	assert.False(t, isBitmap(""))
}
