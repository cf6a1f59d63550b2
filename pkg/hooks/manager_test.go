package hooks_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/glorpus-work/apkstash/internal/logger"
	"github.com/glorpus-work/apkstash/pkg/events"
	"github.com/glorpus-work/apkstash/pkg/hooks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddAndRemoveHook(t *testing.T) {
	manager := hooks.NewManager()

	require.NoError(t, manager.AddHook(hooks.Hook{Type: hooks.OnSaved, Content: "// nothing"}))
	assert.True(t, manager.HasHook(hooks.OnSaved))

	assert.ErrorIs(t, manager.AddHook(hooks.Hook{Content: "x"}), hooks.ErrHookTypeEmpty)
	assert.ErrorIs(t, manager.RemoveHook(""), hooks.ErrHookTypeEmpty)

	require.NoError(t, manager.RemoveHook(hooks.OnSaved))
	assert.False(t, manager.HasHook(hooks.OnSaved))
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "on-saved.tengo"), []byte("// saved"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "on-deleted.tengo"), []byte("// deleted"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pre-install.tengo"), []byte("// unknown"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "on-installed.txt"), []byte("// wrong extension"), 0o644))

	manager := hooks.NewManager()
	n, err := hooks.LoadDir(manager, dir)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, manager.HasHook(hooks.OnSaved))
	assert.True(t, manager.HasHook(hooks.OnDeleted))
	assert.False(t, manager.HasHook(hooks.OnInstalled))

	n, err = hooks.LoadDir(manager, filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestWriteTemplates(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "hooks")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "on-saved.tengo"), []byte("// mine"), 0o644))

	written, err := hooks.WriteTemplates(dir)
	require.NoError(t, err)
	assert.Len(t, written, len(hooks.HookTypes)-1)

	mine, err := os.ReadFile(filepath.Join(dir, "on-saved.tengo"))
	require.NoError(t, err)
	assert.Equal(t, "// mine", string(mine), "existing scripts are kept")

	manager := hooks.NewManager()
	n, err := hooks.LoadDir(manager, dir)
	require.NoError(t, err)
	assert.Equal(t, len(hooks.HookTypes), n)
}

func TestAttach_RunsHookForEvent(t *testing.T) {
	buf := &bytes.Buffer{}
	logger.SetTestOutput(buf)
	defer logger.UnsetTestOutput()
	logger.InitLogger("debug", logger.FormatText)

	manager := hooks.NewManager()
	require.NoError(t, manager.AddHook(hooks.Hook{Type: hooks.OnSaved, Content: `err := "saw " + value`}))

	bus := events.NewBus()
	manager.Attach(bus)
	manager.Attach(bus)
	assert.Equal(t, len(events.Kinds), bus.Count(events.KindAny), "attaching twice registers once")

	assert.NotPanics(t, func() {
		bus.Emit(events.Event{Kind: events.KindSaved, Value: "file:///sdcard/APKs/Foo_2.apk"})
		bus.Emit(events.Event{Kind: events.KindDeleted, Value: "ignored"})
	})
	out := buf.String()
	assert.Contains(t, out, "Hook failed")
	assert.Contains(t, out, "saw file:///sdcard/APKs/Foo_2.apk")
	assert.NotContains(t, out, "ignored")

	manager.Detach(bus)
	assert.Zero(t, bus.Count(events.KindAny))
}
