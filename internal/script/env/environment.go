package env

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dop251/goja"

	"github.com/GriffinCanCode/evalmachine/internal/script/object"
)

var (
	ErrDisposed   = errors.New("environment is disposed")
	ErrEntered    = errors.New("environment is entered")
	ErrNotCurrent = errors.New("environment is not the current one")
	ErrHost       = errors.New("host environment cannot be disposed")
)

// Environment is one execution realm: a goja runtime together with its
// intrinsic global object. It is entered before code runs in it and exited
// afterwards; a disposed environment rejects both.
//
// An Environment is not safe for concurrent use.
type Environment struct {
	id      uint64
	manager *Manager

	vm     *goja.Runtime
	realm  *object.Realm
	global *object.JSObject

	// own properties of the intrinsic global before any code ran
	baseline map[string]object.Property

	mu       sync.Mutex
	entered  int
	detached bool
	disposed bool
	host     bool
}

// newEnvironment prepares a runtime. The manager assigns the id when the
// environment is handed out.
func newEnvironment(vm *goja.Runtime, maxCallStack int) *Environment {
	if vm == nil {
		vm = goja.New()
	}
	if maxCallStack > 0 {
		vm.SetMaxCallStackSize(maxCallStack)
	}
	realm := object.NewRealm(vm)
	e := &Environment{
		vm:     vm,
		realm:  realm,
		global: realm.Wrap(vm.GlobalObject()),
	}
	e.baseline = snapshot(e.global)
	return e
}

func snapshot(o object.Object) map[string]object.Property {
	keys := o.OwnKeys()
	props := make(map[string]object.Property, len(keys))
	for _, k := range keys {
		if p, ok := o.GetOwnProperty(k); ok {
			props[k] = p
		}
	}
	return props
}

func (e *Environment) ID() uint64 { return e.id }

// Runtime returns the goja runtime backing the environment.
func (e *Environment) Runtime() *goja.Runtime { return e.vm }

func (e *Environment) Realm() *object.Realm { return e.realm }

// Global returns the intrinsic global object, regardless of what is
// currently installed as the runtime's global.
func (e *Environment) Global() *object.JSObject { return e.global }

// Installed returns the object global identifiers currently resolve against.
func (e *Environment) Installed() *goja.Object { return e.vm.GlobalObject() }

// Install replaces the object global identifiers resolve against.
func (e *Environment) Install(global *goja.Object) {
	e.vm.SetGlobalObject(global)
}

// IsPristine reports whether p is exactly what the intrinsic global held
// under name when the environment was created.
func (e *Environment) IsPristine(name string, p object.Property) bool {
	base, ok := e.baseline[name]
	if !ok || base.IsAccessor() != p.IsAccessor() {
		return false
	}
	if p.IsAccessor() {
		return object.SameValue(base.Getter, p.Getter) && object.SameValue(base.Setter, p.Setter)
	}
	return object.SameValue(base.Value, p.Value)
}

// Enter pushes the environment onto the manager's stack.
func (e *Environment) Enter() error {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return fmt.Errorf("enter environment %d: %w", e.id, ErrDisposed)
	}
	e.entered++
	e.mu.Unlock()

	depth := e.manager.stack.push(e)
	e.manager.observer.EnvironmentEntered(e, depth)
	return nil
}

// Exit pops the environment. It must be the current one.
func (e *Environment) Exit() error {
	depth, err := e.manager.stack.pop(e)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.entered--
	e.mu.Unlock()

	e.manager.observer.EnvironmentExited(e, depth)
	return nil
}

// Run executes p with the environment's installed global.
func (e *Environment) Run(p *goja.Program) (goja.Value, error) {
	if e.Disposed() {
		return nil, fmt.Errorf("run in environment %d: %w", e.id, ErrDisposed)
	}
	return e.vm.RunProgram(p)
}

// Detach disconnects the installed global so that nothing reachable from
// script values keeps resolving names against it.
func (e *Environment) Detach() {
	e.mu.Lock()
	if e.detached || e.disposed {
		e.mu.Unlock()
		return
	}
	e.detached = true
	e.mu.Unlock()

	e.vm.SetGlobalObject(e.vm.NewObject())
	e.manager.observer.EnvironmentDetached(e)
}

// Dispose releases the environment. Disposing twice reports ErrDisposed.
func (e *Environment) Dispose() error {
	e.mu.Lock()
	switch {
	case e.host:
		e.mu.Unlock()
		return ErrHost
	case e.disposed:
		e.mu.Unlock()
		return fmt.Errorf("dispose environment %d: %w", e.id, ErrDisposed)
	case e.entered > 0:
		e.mu.Unlock()
		return fmt.Errorf("dispose environment %d: %w", e.id, ErrEntered)
	}
	e.disposed = true
	e.mu.Unlock()

	e.baseline = nil
	e.manager.live.Add(-1)
	e.manager.observer.EnvironmentDisposed(e)
	return nil
}

func (e *Environment) Entered() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.entered > 0
}

func (e *Environment) Detached() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.detached
}

func (e *Environment) Disposed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.disposed
}

// IsHost reports whether this is the manager's ambient environment.
func (e *Environment) IsHost() bool { return e.host }
