package evalmachine

import (
	"io"
	"time"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/evalmachine/internal/script/env"
)

// Recorder receives one call per finished evaluation. Status is "ok" or the
// error kind.
type Recorder interface {
	RecordEvaluation(target, status string, duration time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) RecordEvaluation(string, string, time.Duration) {}

// Option configures a Machine.
type Option func(*Machine)

// WithManager shares an existing environment manager. Options that configure
// a manager are ignored when one is given.
func WithManager(em *env.Manager) Option {
	return func(m *Machine) {
		m.envs = em
	}
}

// WithRuntime uses vm as the host environment.
func WithRuntime(vm *goja.Runtime) Option {
	return func(m *Machine) {
		m.envOpts = append(m.envOpts, env.WithHostRuntime(vm))
	}
}

func WithObserver(o env.Observer) Option {
	return func(m *Machine) {
		m.envOpts = append(m.envOpts, env.WithObserver(o))
	}
}

func WithPool(p *env.Pool) Option {
	return func(m *Machine) {
		m.envOpts = append(m.envOpts, env.WithPool(p))
	}
}

func WithMaxCallStackSize(n int) Option {
	return func(m *Machine) {
		m.envOpts = append(m.envOpts, env.WithMaxCallStackSize(n))
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(m *Machine) {
		if l != nil {
			m.log = l
		}
	}
}

// WithDiagnostics sets where syntax errors are written when an evaluation
// asks for them to be displayed. The default is os.Stderr.
func WithDiagnostics(w io.Writer) Option {
	return func(m *Machine) {
		if w != nil {
			m.diag = w
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(m *Machine) {
		if r != nil {
			m.recorder = r
		}
	}
}

// WithDefaultFilename replaces DefaultFilename for code run without one.
func WithDefaultFilename(name string) Option {
	return func(m *Machine) {
		if name != "" {
			m.filename = name
		}
	}
}

// WithConsole exposes c as `console` on the host environment.
func WithConsole(c *env.Console) Option {
	return func(m *Machine) {
		m.console = c
	}
}

// RunOption sets the optional trailing arguments of an evaluation.
type RunOption func(*runOptions)

type runOptions struct {
	filename      string
	displayErrors bool
}

// Filename names the code in error messages and stack traces.
func Filename(name string) RunOption {
	return func(o *runOptions) {
		o.filename = name
	}
}

// DisplayErrors writes syntax errors to the machine's diagnostics writer.
func DisplayErrors() RunOption {
	return func(o *runOptions) {
		o.displayErrors = true
	}
}

// positional appends the options to args in evaluation argument order.
func positional(args []any, opts []RunOption) []any {
	var o runOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.filename != "" {
		args = append(args, o.filename)
	}
	if o.displayErrors {
		args = append(args, true)
	}
	return args
}
