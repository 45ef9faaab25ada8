package env

import (
	"sync/atomic"

	"github.com/dop251/goja"
	"go.uber.org/zap"
)

// Manager creates environments and owns the execution stack they are
// entered on. It also owns the host environment, the ambient target that is
// never entered, exited or disposed through the stack.
type Manager struct {
	stack    Stack
	observer Observer
	pool     *Pool
	host     *Environment
	log      *zap.Logger

	maxCallStack int
	nextID       atomic.Uint64
	live         atomic.Int64
}

// Option configures a Manager.
type Option func(*Manager)

// WithObserver adds an observer. Several observers are notified in order.
func WithObserver(o Observer) Option {
	return func(m *Manager) {
		if o == nil {
			return
		}
		if existing, ok := m.observer.(Observers); ok {
			m.observer = append(existing, o)
			return
		}
		if _, nop := m.observer.(NopObserver); nop {
			m.observer = o
			return
		}
		m.observer = Observers{m.observer, o}
	}
}

// WithPool draws fresh environments from p.
func WithPool(p *Pool) Option {
	return func(m *Manager) {
		m.pool = p
	}
}

// WithHostRuntime uses vm as the host environment instead of a new runtime.
// It must be passed before vm runs code that replaces its global object.
func WithHostRuntime(vm *goja.Runtime) Option {
	return func(m *Manager) {
		m.host = newEnvironment(vm, 0)
	}
}

// WithMaxCallStackSize limits the call stack of environments the manager
// builds itself.
func WithMaxCallStackSize(n int) Option {
	return func(m *Manager) {
		m.maxCallStack = n
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// NewManager creates a Manager with its host environment.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		observer: NopObserver{},
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.host == nil {
		m.host = newEnvironment(nil, m.maxCallStack)
	}
	m.host.host = true
	m.adopt(m.host)
	return m
}

func (m *Manager) adopt(e *Environment) {
	e.id = m.nextID.Add(1)
	e.manager = m
	m.live.Add(1)
	m.observer.EnvironmentCreated(e)
}

// Create returns a new environment with a pristine intrinsic global.
func (m *Manager) Create() *Environment {
	var e *Environment
	if m.pool != nil {
		var err error
		if e, err = m.pool.Acquire(); err != nil {
			m.log.Debug("environment pool unavailable", zap.Error(err))
			e = nil
		}
	}
	if e == nil {
		e = newEnvironment(nil, m.maxCallStack)
	}
	m.adopt(e)
	m.log.Debug("environment created", zap.Uint64("env", e.id), zap.Int64("live", m.live.Load()))
	return e
}

// Host returns the ambient environment.
func (m *Manager) Host() *Environment { return m.host }

// Current returns the top of the stack, or the host environment when
// nothing is entered.
func (m *Manager) Current() *Environment {
	if e := m.stack.Current(); e != nil {
		return e
	}
	return m.host
}

// Depth returns the number of entered environments.
func (m *Manager) Depth() int { return m.stack.Depth() }

// Live returns the number of environments created and not yet disposed,
// counting the host environment.
func (m *Manager) Live() int64 { return m.live.Load() }

// Logger returns the manager's logger.
func (m *Manager) Logger() *zap.Logger { return m.log }
