//go:build integration

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/glorpus-work/apkstash/pkg/config"
	"github.com/glorpus-work/apkstash/test/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type env struct {
	cfgPath   string
	sourceDir string
	saveDir   string
	stateDir  string
	hooksDir  string
}

// newEnv writes a config and a source tree with one user app, one split app
// and one system app.
func newEnv(t *testing.T) *env {
	t.Helper()
	root := t.TempDir()
	e := &env{
		cfgPath:   filepath.Join(root, "config.yaml"),
		sourceDir: filepath.Join(root, "device"),
		saveDir:   filepath.Join(root, "save"),
		stateDir:  filepath.Join(root, "state"),
		hooksDir:  filepath.Join(root, "hooks"),
	}
	require.NoError(t, os.MkdirAll(e.saveDir, 0o755))

	yamlContent := `settings:
  save_dir: ` + e.saveDir + `
  state_dir: ` + e.stateDir + `
  hooks_dir: ` + e.hooksDir + `
  name_pattern: "{package}"
  max_concurrent: 2
  log_level: error
`
	require.NoError(t, os.WriteFile(e.cfgPath, []byte(yamlContent), 0o600))

	mod := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	testutil.WriteAPK(t, e.sourceDir, "com.example.foo/base.apk", mod)
	testutil.WriteAPK(t, e.sourceDir, "com.example.bar/base.apk", mod)
	testutil.WriteFile(t, e.sourceDir, "com.example.bar/split_config.en.apk", []byte("split"), mod)
	testutil.WriteAPK(t, e.sourceDir, "system/com.android.settings/base.apk", mod)
	return e
}

func (e *env) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", e.cfgPath, "--source-dir", e.sourceDir}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestApps_ListsBuckets(t *testing.T) {
	e := newEnv(t)

	out, err := e.run(t, "apps")
	require.NoError(t, err)
	assert.Contains(t, out, "com.example.foo")
	assert.Contains(t, out, "com.example.bar")
	assert.Contains(t, out, "com.android.settings")
	assert.Contains(t, out, "3 of 3 apps")

	out, err = e.run(t, "apps", "--filter", "system")
	require.NoError(t, err)
	assert.NotContains(t, out, "com.example.foo")
	assert.Contains(t, out, "1 of 3 apps")

	_, err = e.run(t, "apps", "--filter", "nonsense")
	assert.Error(t, err)
}

func TestSave_SingleAndBundle(t *testing.T) {
	e := newEnv(t)

	out, err := e.run(t, "save", "com.example.foo", "com.example.bar")
	require.NoError(t, err)
	assert.Contains(t, out, "saved:")
	assert.Equal(t, []string{"com.example.bar.xapk", "com.example.foo.apk"}, testutil.DirNames(t, e.saveDir))

	out, err = e.run(t, "catalog", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "com.example.foo.apk")
	assert.NotContains(t, out, "com.example.bar.xapk")
}

func TestSave_UnknownPackageFails(t *testing.T) {
	e := newEnv(t)

	_, err := e.run(t, "save", "com.example.foo", "com.missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "com.missing")
	assert.Equal(t, []string{"com.example.foo.apk"}, testutil.DirNames(t, e.saveDir))
}

func TestSave_DryRunWritesNothing(t *testing.T) {
	e := newEnv(t)

	out, err := e.run(t, "save", "--dry-run", "--filter", "user")
	require.NoError(t, err)
	assert.Contains(t, out, "dry-run")
	assert.Empty(t, testutil.DirNames(t, e.saveDir))
}

func TestSave_MissingSaveDir(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, os.Remove(e.saveDir))

	_, err := e.run(t, "save", "com.example.foo")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not writable")
}

func TestCatalog_SyncAndRemove(t *testing.T) {
	e := newEnv(t)
	mod := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	a := testutil.WriteAPK(t, e.saveDir, "a.apk", mod)
	testutil.WriteAPK(t, e.saveDir, "b.apk", mod)
	testutil.WriteFile(t, e.saveDir, "notes.txt", []byte("hello"), mod)

	_, err := e.run(t, "catalog", "sync", "--resolve=false")
	require.NoError(t, err)

	out, err := e.run(t, "catalog", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "a.apk")
	assert.Contains(t, out, "b.apk")
	assert.NotContains(t, out, "notes.txt")

	_, err = e.run(t, "catalog", "rm", a)
	require.NoError(t, err)
	assert.NoFileExists(t, a)

	out, err = e.run(t, "catalog", "list")
	require.NoError(t, err)
	assert.NotContains(t, out, "a.apk")
	assert.Contains(t, out, "b.apk")
}

func TestFavorite_Toggle(t *testing.T) {
	e := newEnv(t)

	out, err := e.run(t, "favorite", "com.example.bar")
	require.NoError(t, err)
	assert.Contains(t, out, "added to")

	cfg, err := config.LoadConfig(e.cfgPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"com.example.bar"}, cfg.Favorites)

	out, err = e.run(t, "apps", "--filter", "favorite")
	require.NoError(t, err)
	assert.Contains(t, out, "com.example.bar")
	assert.Contains(t, out, "1 of 3 apps")

	out, err = e.run(t, "favorite", "com.example.bar")
	require.NoError(t, err)
	assert.Contains(t, out, "removed from")
}

func TestConfig_SetGet(t *testing.T) {
	e := newEnv(t)

	_, err := e.run(t, "config", "set", "max_concurrent", "4")
	require.NoError(t, err)

	out, err := e.run(t, "config", "get", "max_concurrent")
	require.NoError(t, err)
	assert.Equal(t, "4", strings.TrimSpace(out))

	_, err = e.run(t, "config", "set", "swipe_actions.left", "explode")
	assert.Error(t, err)

	_, err = e.run(t, "config", "init")
	assert.Error(t, err, "config file already exists")

	out, err = e.run(t, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, e.cfgPath, strings.TrimSpace(out))

	out, err = e.run(t, "config", "show", "--yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "max_concurrent: 4")
}

func TestHooks_InitAndNotify(t *testing.T) {
	e := newEnv(t)

	_, err := e.run(t, "hooks", "init")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(e.hooksDir, "on-installed.tengo"))

	out, err := e.run(t, "hooks", "list")
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(e.hooksDir, "on-saved.tengo"))

	_, err = e.run(t, "notify", "installed", "com.example.foo")
	require.NoError(t, err)

	_, err = e.run(t, "notify", "saved", "com.example.foo")
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	e := newEnv(t)
	out, err := e.run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "apkstash version")

	out, err = e.run(t, "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, "dev", strings.TrimSpace(out))
}
