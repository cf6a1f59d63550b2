package hooks

import (
	"context"
	"fmt"
	"sync"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	"github.com/glorpus-work/apkstash/pkg/errutils"
)

// Script variables. They are declared at compile time and set per run.
const (
	varKind  = "kind"
	varValue = "value"
	varErr   = "err"
)

var scriptModules = []string{"fmt", "os", "text", "times", "json"}

// TengoExecutor compiles hook scripts once and runs a fresh copy per event.
type TengoExecutor struct {
	mu       sync.RWMutex
	compiled map[HookType]*tengo.Compiled
}

// NewTengoExecutor returns an executor without scripts.
func NewTengoExecutor() *TengoExecutor {
	return &TengoExecutor{compiled: make(map[HookType]*tengo.Compiled)}
}

// AddScript compiles script and stores it under hookType, replacing any
// earlier script. A script that does not compile is rejected and the
// previous one stays in place.
func (e *TengoExecutor) AddScript(hookType HookType, script string) error {
	s := tengo.NewScript([]byte(script))
	s.SetImports(stdlib.GetModuleMap(scriptModules...))
	for _, name := range []string{varKind, varValue} {
		if err := s.Add(name, ""); err != nil {
			return fmt.Errorf("%s: %w: %w", hookType, errutils.ErrHookLoad, err)
		}
	}
	compiled, err := s.Compile()
	if err != nil {
		return fmt.Errorf("%s: %w: %w", hookType, errutils.ErrHookLoad, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.compiled[hookType] = compiled
	return nil
}

// RemoveScript drops the script of hookType.
func (e *TengoExecutor) RemoveScript(hookType HookType) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.compiled, hookType)
}

// HasScript reports whether hookType has a script.
func (e *TengoExecutor) HasScript(hookType HookType) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.compiled[hookType]
	return ok
}

// Execute runs the script of hookType with hc bound to its variables. A
// missing script is not an error. The run stops when ctx is done.
func (e *TengoExecutor) Execute(ctx context.Context, hookType HookType, hc HookContext) error {
	e.mu.RLock()
	compiled, ok := e.compiled[hookType]
	e.mu.RUnlock()
	if !ok {
		return nil
	}

	run := compiled.Clone()
	if err := run.Set(varKind, hc.Kind); err != nil {
		return fmt.Errorf("%s: %w: %w", hookType, errutils.ErrHookExecution, err)
	}
	if err := run.Set(varValue, hc.Value); err != nil {
		return fmt.Errorf("%s: %w: %w", hookType, errutils.ErrHookExecution, err)
	}

	if err := run.RunContext(ctx); err != nil {
		if ctx.Err() != nil {
			return errutils.Classify(ctx.Err())
		}
		return fmt.Errorf("%s: %w: %w", hookType, errutils.ErrHookExecution, err)
	}

	// a script reports failure by defining err
	switch v := run.Get(varErr).Value().(type) {
	case error:
		return fmt.Errorf("%s: %w: %w", hookType, errutils.ErrHookScript, v)
	case string:
		if v != "" {
			return fmt.Errorf("%s: %w: %s", hookType, errutils.ErrHookScript, v)
		}
	}
	return nil
}
