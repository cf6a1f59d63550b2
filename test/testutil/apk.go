// Package testutil builds on-disk fixtures shared by package tests.
package testutil

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// Entry is one file inside a fixture archive.
type Entry struct {
	Name string
	Data []byte
}

// APKBytes returns a zip whose first entry is AndroidManifest.xml, which is
// enough for content sniffing to report a package archive. The manifest is
// not valid binary XML, so metadata resolution fails on it.
func APKBytes(t testing.TB, extra ...Entry) []byte {
	t.Helper()
	entries := append([]Entry{{Name: "AndroidManifest.xml", Data: []byte("not binary xml")}}, extra...)
	return ZipBytes(t, entries...)
}

// ZipBytes returns a stored zip of entries in order.
func ZipBytes(t testing.TB, entries ...Entry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: e.Name, Method: zip.Store})
		if err != nil {
			t.Fatalf("create zip entry %s: %v", e.Name, err)
		}
		if _, err := w.Write(e.Data); err != nil {
			t.Fatalf("write zip entry %s: %v", e.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

// WriteFile writes data to dir/name with the given modification time and
// returns the full path.
func WriteFile(t testing.TB, dir, name string, data []byte, mod time.Time) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	if !mod.IsZero() {
		if err := os.Chtimes(path, mod, mod); err != nil {
			t.Fatalf("chtimes %s: %v", path, err)
		}
	}
	return path
}

// WriteAPK writes an APKBytes fixture to dir/name.
func WriteAPK(t testing.TB, dir, name string, mod time.Time) string {
	t.Helper()
	return WriteFile(t, dir, name, APKBytes(t), mod)
}

// DirNames lists the names in dir, failing the test on error.
func DirNames(t testing.TB, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir %s: %v", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}
