package hooks_test

import (
	"context"
	"testing"
	"time"

	"github.com/glorpus-work/apkstash/pkg/errutils"
	"github.com/glorpus-work/apkstash/pkg/hooks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTengoExecutor(t *testing.T) {
	executor := hooks.NewTengoExecutor()
	ctx := context.Background()
	hc := hooks.HookContext{Kind: "saved", Value: "file:///sdcard/APKs/Foo_2.apk"}

	t.Run("Execute script that does nothing", func(t *testing.T) {
		require.NoError(t, executor.AddScript(hooks.OnSaved, `// This is a valid script that does nothing`))
		assert.NoError(t, executor.Execute(ctx, hooks.OnSaved, hc))
	})

	t.Run("Script that does not compile is rejected", func(t *testing.T) {
		require.NoError(t, executor.AddScript(hooks.OnDeleted, `// first`))

		err := executor.AddScript(hooks.OnDeleted, `non_existent_function()`)
		assert.ErrorIs(t, err, errutils.ErrHookLoad)
		assert.NoError(t, executor.Execute(ctx, hooks.OnDeleted, hc), "the previous script stays")
	})

	t.Run("Execute script with runtime error", func(t *testing.T) {
		require.NoError(t, executor.AddScript("divide", `x := 1 / (len(value) - len(value))`))

		err := executor.Execute(ctx, "divide", hc)
		assert.ErrorIs(t, err, errutils.ErrHookExecution)
	})

	t.Run("Execute non-existent script", func(t *testing.T) {
		assert.NoError(t, executor.Execute(ctx, "non-existent-hook", hc))
	})

	t.Run("HasScript check", func(t *testing.T) {
		hookType := hooks.HookType("test-hook")
		assert.False(t, executor.HasScript(hookType))

		require.NoError(t, executor.AddScript(hookType, "// test script"))
		assert.True(t, executor.HasScript(hookType))

		executor.RemoveScript(hookType)
		assert.False(t, executor.HasScript(hookType))
	})

	t.Run("Context variables are accessible", func(t *testing.T) {
		require.NoError(t, executor.AddScript(hooks.OnInstalled, `
text := import("text")
err := kind == "saved" && text.has_suffix(value, ".apk") ? "" : "unexpected context"
`))
		assert.NoError(t, executor.Execute(ctx, hooks.OnInstalled, hc))
	})

	t.Run("Runs do not share variables", func(t *testing.T) {
		require.NoError(t, executor.AddScript("echo", `err := value == "second" ? "" : "saw " + value`))

		assert.Error(t, executor.Execute(ctx, "echo", hooks.HookContext{Value: "first"}))
		assert.NoError(t, executor.Execute(ctx, "echo", hooks.HookContext{Value: "second"}))
	})

	t.Run("Script reports failure through err", func(t *testing.T) {
		require.NoError(t, executor.AddScript(hooks.OnUninstalled, `err := "refused " + value`))

		err := executor.Execute(ctx, hooks.OnUninstalled, hc)
		require.ErrorIs(t, err, errutils.ErrHookScript)
		assert.Contains(t, err.Error(), "refused file:///sdcard/APKs/Foo_2.apk")
	})

	t.Run("Script stops when the context ends", func(t *testing.T) {
		require.NoError(t, executor.AddScript("looping", `for { }`))
		timeout, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()

		err := executor.Execute(timeout, "looping", hc)
		assert.ErrorIs(t, err, errutils.ErrCanceled)
	})
}
