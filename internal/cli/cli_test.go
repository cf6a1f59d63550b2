package cli

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/glorpus-work/apkstash/pkg/filter"
	"github.com/glorpus-work/apkstash/pkg/model"
	"github.com/glorpus-work/apkstash/pkg/orchestrator"
	"github.com/glorpus-work/apkstash/pkg/registry"
	"github.com/glorpus-work/apkstash/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshot() registry.Snapshot {
	return registry.Snapshot{
		Favorites: []model.InstalledApp{
			{PackageName: "com.example.fav", Label: "Fav", VersionName: "1", SizeBytes: 3 * model.BytesPerMB, Favorite: true, Flags: model.FlagUser},
		},
		User: []model.InstalledApp{
			{PackageName: "com.example.big", Label: "Big", VersionName: "2", SizeBytes: 50 * model.BytesPerMB, Flags: model.FlagUser, InstallerLabel: "F-Droid"},
			{PackageName: "com.example.small", Label: "Small", VersionName: "3", SizeBytes: model.BytesPerMB, Flags: model.FlagUser},
		},
		System: []model.InstalledApp{
			{PackageName: "com.android.settings", Label: "Settings", VersionName: "14", Flags: model.FlagSystem},
		},
	}
}

func lines(s string) []string {
	return strings.Split(strings.TrimSpace(s), "\n")
}

func TestPrintApps(t *testing.T) {
	var buf bytes.Buffer
	printApps(&buf, snapshot(), nil, filter.BySize, true)

	out := lines(buf.String())
	require.Len(t, out, 7)
	assert.True(t, strings.HasPrefix(out[0], "PACKAGE"))
	assert.Contains(t, out[1], "com.example.fav")
	assert.Contains(t, out[1], "favorite")
	assert.Contains(t, out[2], "com.example.big")
	assert.Contains(t, out[2], "50.0")
	assert.Contains(t, out[2], "F-Droid")
	assert.Contains(t, out[3], "com.example.small")
	assert.Contains(t, out[4], "system")
	assert.Equal(t, "4 of 4 apps", out[6])
}

func TestPrintApps_Filtered(t *testing.T) {
	var buf bytes.Buffer
	printApps(&buf, snapshot(), []filter.Filter{filter.User(), filter.Package("com.example.*")}, filter.ByName, false)

	out := lines(buf.String())
	assert.Contains(t, out[1], "com.example.fav")
	assert.Contains(t, out[2], "com.example.big")
	assert.Contains(t, out[3], "com.example.small")
	assert.Equal(t, "3 of 4 apps", out[len(out)-1])
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
	assert.Equal(t, "äöüß", truncate("äöüß", 4))
}

func TestToURI(t *testing.T) {
	assert.Equal(t, "file:///s/a.apk", toURI("file:///s/a.apk"))
	abs := filepath.Join(t.TempDir(), "a.apk")
	assert.Equal(t, storage.URIFromPath(abs), toURI(abs))
}

func TestPrintProgress(t *testing.T) {
	var buf bytes.Buffer
	p := printProgress(&buf)
	p(orchestrator.Event{Phase: orchestrator.PhaseSaving, ID: "com.example.foo", Msg: "Foo_2"})
	p(orchestrator.Event{Phase: orchestrator.PhaseInstalling, ID: "com.example.foo", Percent: 40})
	p(orchestrator.Event{Phase: orchestrator.PhaseDone, Msg: "1 saved, 0 failed"})

	assert.Equal(t, []string{
		"saving: Foo_2 (com.example.foo)",
		"installing: 40% (com.example.foo)",
		"done: 1 saved, 0 failed",
	}, lines(buf.String()))
}

func TestPrintFiles(t *testing.T) {
	label, pkg, version := "Foo", "com.example.foo", "2"
	files := []model.ArchiveFile{
		{FileName: "Foo_2.apk", FileSize: 2 * model.BytesPerMB, Loaded: true, AppName: &label, AppPackageName: &pkg, AppVersionName: &version},
		{FileName: "pending.apk", FileSize: 1024},
	}
	var buf bytes.Buffer
	printFiles(&buf, files)

	out := lines(buf.String())
	require.Len(t, out, 3)
	assert.Contains(t, out[1], "com.example.foo")
	assert.Contains(t, out[1], "2.0")
	assert.Contains(t, out[2], "?")

	buf.Reset()
	printFiles(&buf, nil)
	assert.Equal(t, "No saved archives\n", buf.String())
}
