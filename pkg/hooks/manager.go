package hooks

import (
	"context"
	"fmt"
	"time"

	"github.com/glorpus-work/apkstash/internal/logger"
	"github.com/glorpus-work/apkstash/pkg/events"
)

// DefaultTimeout bounds a single script run started from the bus.
const DefaultTimeout = 30 * time.Second

// Manager owns the loaded scripts and runs them for bus events.
type Manager struct {
	executor *TengoExecutor

	// Timeout bounds each script run triggered by an event.
	Timeout time.Duration
}

// NewManager creates a manager without scripts.
func NewManager() *Manager {
	return &Manager{executor: NewTengoExecutor(), Timeout: DefaultTimeout}
}

// Execute runs the hook of the given type.
func (m *Manager) Execute(ctx context.Context, hookType HookType, hc HookContext) error {
	return m.executor.Execute(ctx, hookType, hc)
}

// AddHook compiles and adds or replaces a hook.
func (m *Manager) AddHook(hook Hook) error {
	if hook.Type == "" {
		return ErrHookTypeEmpty
	}
	return m.executor.AddScript(hook.Type, hook.Content)
}

// RemoveHook removes the hook of the given type.
func (m *Manager) RemoveHook(hookType HookType) error {
	if hookType == "" {
		return ErrHookTypeEmpty
	}
	m.executor.RemoveScript(hookType)
	return nil
}

// HasHook reports whether a hook of the given type is loaded.
func (m *Manager) HasHook(hookType HookType) bool {
	return m.executor.HasScript(hookType)
}

// ObserverKey is the bus key under which the hook for kind is registered.
func ObserverKey(kind events.Kind) string {
	return "hooks:" + kind.String()
}

// Attach registers one observer per concrete kind on bus. Attaching twice
// is a no-op. Script failures are logged and never reach the emitter.
func (m *Manager) Attach(bus *events.Bus) {
	for _, kind := range events.Kinds {
		hookType, _ := ForKind(kind)
		bus.Register(ObserverKey(kind), func(e events.Event) {
			m.run(hookType, e)
		}, kind)
	}
}

// Detach removes the observers registered by Attach.
func (m *Manager) Detach(bus *events.Bus) {
	for _, kind := range events.Kinds {
		bus.Unregister(ObserverKey(kind), kind)
	}
}

func (m *Manager) run(hookType HookType, e events.Event) {
	if !m.HasHook(hookType) {
		return
	}
	timeout := m.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	hc := HookContext{Kind: e.Kind.String(), Value: stringify(e.Value)}
	if err := m.Execute(ctx, hookType, hc); err != nil {
		logger.Warn("Hook failed", logger.Fields{
			"hook":  string(hookType),
			"value": hc.Value,
			"error": err.Error(),
		})
		return
	}
	logger.Debug("Hook completed", logger.Fields{"hook": string(hookType), "value": hc.Value})
}

func stringify(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
