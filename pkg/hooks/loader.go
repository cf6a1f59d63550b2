package hooks

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/glorpus-work/apkstash/internal/logger"
	"github.com/glorpus-work/apkstash/pkg/errutils"
	"github.com/glorpus-work/apkstash/pkg/fsutil"
)

// HookFileExtension is the extension of hook scripts.
const HookFileExtension = ".tengo"

// LoadDir loads <dir>/<hook-type>.tengo for every known hook type. A missing
// directory loads nothing. Files with other names are ignored.
func LoadDir(manager *Manager, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, errutils.Wrapf(errutils.ErrHookLoad, "failed to read hooks directory %s: %v", dir, err)
	}

	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != HookFileExtension {
			continue
		}
		hookType := HookType(strings.TrimSuffix(entry.Name(), HookFileExtension))
		if !slices.Contains(HookTypes, hookType) {
			logger.Debug("Ignoring unknown hook script", logger.Fields{"file": entry.Name()})
			continue
		}

		hookPath := filepath.Join(dir, entry.Name())
		content, err := os.ReadFile(hookPath)
		if err != nil {
			return loaded, errutils.Wrapf(errutils.ErrHookLoad, "error reading hook file %s: %v", hookPath, err)
		}
		if err := manager.AddHook(Hook{Type: hookType, Content: string(content)}); err != nil {
			return loaded, errutils.Wrapf(err, "error adding hook %s", hookType)
		}
		loaded++
	}
	if loaded > 0 {
		logger.Debug("Loaded hooks", logger.Fields{"dir": dir, "count": loaded})
	}
	return loaded, nil
}

// WriteTemplates writes a commented template for every hook type that has no
// script in dir yet.
func WriteTemplates(dir string) ([]string, error) {
	if err := fsutil.EnsureDir(dir); err != nil {
		return nil, errutils.Wrapf(errutils.Classify(err), "failed to create hooks directory %s", dir)
	}
	var written []string
	for _, hookType := range HookTypes {
		path := filepath.Join(dir, string(hookType)+HookFileExtension)
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if err := os.WriteFile(path, []byte(HookTemplate(hookType)), fsutil.FileModeDefault); err != nil {
			return written, errutils.Wrapf(errutils.Classify(err), "failed to write %s", path)
		}
		written = append(written, path)
	}
	return written, nil
}

// HookTemplate generates a template for a hook script.
func HookTemplate(hookType HookType) string {
	const vars = `// Available variables:
// - kind: string - event kind (saved, deleted, installed, uninstalled)
// - value: string - archive URI or package name
// Define err to report a failure; it is logged and does not stop apkstash.
`
	switch hookType {
	case OnSaved:
		return `// on-saved hook
// Runs after an app was extracted into the save directory.
` + vars + `
// Example: log every saved archive
/*
fmt := import("fmt")
fmt.println("saved ", value)
*/
`
	case OnDeleted:
		return `// on-deleted hook
// Runs after an archive was removed from the save directory.
` + vars
	case OnInstalled:
		return `// on-installed hook
// Runs after the device reported a newly installed package.
` + vars
	case OnUninstalled:
		return `// on-uninstalled hook
// Runs after the device reported a removed package.
` + vars
	default:
		return "// Unknown hook type: " + string(hookType) + "\n"
	}
}
