package storage

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/glorpus-work/apkstash/pkg/errutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURIRoundTrip(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix paths only")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "My App 1.0.apk")

	uri := URIFromPath(path)
	assert.Contains(t, uri, "file://")
	assert.Contains(t, uri, "My%20App%201.0.apk")

	got, err := PathFromURI(uri)
	require.NoError(t, err)
	assert.Equal(t, path, got)
}

func TestPathFromURI(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "file:///sdcard/apks/a.apk", want: filepath.FromSlash("/sdcard/apks/a.apk")},
		{in: "file://localhost/tmp/b.apk", want: filepath.FromSlash("/tmp/b.apk")},
		{in: "relative/c.apk", want: filepath.FromSlash("relative/c.apk")},
		{in: "content://com.android.externalstorage/tree/x", wantErr: true},
		{in: "file://remote/tmp/d.apk", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := PathFromURI(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, errutils.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
