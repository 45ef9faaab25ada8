package sandbox

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/evalmachine/internal/script/env"
	"github.com/GriffinCanCode/evalmachine/internal/script/object"
	"github.com/GriffinCanCode/evalmachine/internal/script/scripterr"
)

var ErrClosed = errors.New("sandbox context is closed")

// Context binds one execution environment to a sandbox object. Global
// variable traffic of code running in the environment is redirected to the
// sandbox.
//
// The environment is released by Close, or once the Context becomes
// unreachable.
type Context struct {
	state   *state
	cleanup runtime.Cleanup
}

// state is everything a Context owns. It never points back at the Context so
// that the Context can become unreachable while the environment lives.
type state struct {
	mu      sync.Mutex
	env     *env.Environment
	sandbox object.Object
	target  *goja.Object // proxy target, holds mirrors of non-configurable properties
	proxy   *goja.Object // installed global
	link    *link
	closed  bool
	log     *zap.Logger
}

// New creates a Context for sb in a fresh environment of m. A nil sb is an
// ArgumentError and creates nothing.
func New(m *env.Manager, sb object.Object) (*Context, error) {
	if object.IsNil(sb) {
		return nil, scripterr.Argument(scripterr.MsgContextNotObject)
	}

	e := m.Create()
	vm := e.Runtime()
	realm := e.Realm()

	s := &state{
		env:     e,
		sandbox: sb,
		target:  vm.NewObject(),
		link:    &link{vm: vm},
		log:     m.Logger().With(zap.Uint64("env", e.ID())),
	}
	s.proxy = vm.ToValue(vm.NewProxy(s.target, s.link.traps())).(*goja.Object)
	s.link.bind(&binding{
		sandbox: sb,
		global:  e.Global(),
		target:  realm.Wrap(s.target),
		proxy:   s.proxy,
		realm:   realm,
		mirrors: make(map[string]bool),
	})
	e.Install(s.proxy)

	c := &Context{state: s}
	c.cleanup = runtime.AddCleanup(c, func(s *state) {
		if err := s.destroy(); err != nil {
			s.log.Debug("sandbox context cleanup", zap.Error(err))
		}
	}, s)

	s.log.Debug("sandbox context created")
	return c, nil
}

// CreateEnvironment is New with an empty sandbox when sb is nil.
func CreateEnvironment(m *env.Manager, sb object.Object) (*Context, error) {
	if object.IsNil(sb) {
		sb = object.NewMap()
	}
	return New(m, sb)
}

// Sandbox returns the object global variables are redirected to.
func (c *Context) Sandbox() object.Object {
	return c.state.sandbox
}

// Environment returns the owned environment, or ErrClosed.
func (c *Context) Environment() (*env.Environment, error) {
	c.state.mu.Lock()
	defer c.state.mu.Unlock()
	if c.state.closed {
		return nil, ErrClosed
	}
	return c.state.env, nil
}

// Global returns the interception layer installed as the environment's
// global object, or nil once closed.
func (c *Context) Global() *goja.Object {
	c.state.mu.Lock()
	defer c.state.mu.Unlock()
	return c.state.proxy
}

// Closed reports whether the Context has been destroyed.
func (c *Context) Closed() bool {
	c.state.mu.Lock()
	defer c.state.mu.Unlock()
	return c.state.closed
}

// Close destroys the Context: the link seen by the interception layer is
// cleared, then the environment is detached and disposed. Close fails while
// code is running inside the environment. Closing twice is a no-op.
func (c *Context) Close() error {
	if err := c.state.destroy(); err != nil {
		return err
	}
	c.cleanup.Stop()
	return nil
}

func (s *state) destroy() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	if s.env.Entered() {
		return fmt.Errorf("close sandbox context: %w", env.ErrEntered)
	}
	s.closed = true

	s.link.clear()
	s.env.Detach()
	err := s.env.Dispose()
	s.proxy = nil
	s.target = nil

	s.log.Debug("sandbox context destroyed")
	return err
}
