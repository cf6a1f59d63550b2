// Package hooks runs user Tengo scripts when lifecycle events are emitted.
package hooks

import (
	"fmt"

	"github.com/glorpus-work/apkstash/pkg/events"
)

// HookType names a script slot. It doubles as the script file name without
// extension.
type HookType string

// Supported hook types.
const (
	OnSaved       HookType = "on-saved"
	OnDeleted     HookType = "on-deleted"
	OnInstalled   HookType = "on-installed"
	OnUninstalled HookType = "on-uninstalled"
)

// HookTypes lists every supported hook type.
var HookTypes = []HookType{OnSaved, OnDeleted, OnInstalled, OnUninstalled}

// ErrHookTypeEmpty is returned when a hook type is empty.
var ErrHookTypeEmpty = fmt.Errorf("hook type cannot be empty")

// ForKind returns the hook type run for a concrete event kind.
func ForKind(kind events.Kind) (HookType, bool) {
	switch kind {
	case events.KindSaved:
		return OnSaved, true
	case events.KindDeleted:
		return OnDeleted, true
	case events.KindInstalled:
		return OnInstalled, true
	case events.KindUninstalled:
		return OnUninstalled, true
	default:
		return "", false
	}
}

// Hook represents a hook script with its type and content.
type Hook struct {
	Type    HookType
	Content string
}

// HookContext is exposed to scripts as the variables kind and value.
type HookContext struct {
	Kind  string
	Value string
}
