package evalmachine

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/evalmachine/internal/script/env"
	"github.com/GriffinCanCode/evalmachine/internal/script/object"
	"github.com/GriffinCanCode/evalmachine/internal/script/propsync"
	"github.com/GriffinCanCode/evalmachine/internal/script/sandbox"
	"github.com/GriffinCanCode/evalmachine/internal/script/scripterr"
)

// Machine evaluates code in one of three environments: its host
// environment, a fresh environment seeded from a sandbox, or the
// environment of a sandbox.Context.
type Machine struct {
	envs     *env.Manager
	envOpts  []env.Option
	log      *zap.Logger
	diag     io.Writer
	recorder Recorder
	filename string
	console  *env.Console
}

// New creates a Machine.
func New(opts ...Option) *Machine {
	m := &Machine{
		log:      zap.NewNop(),
		diag:     os.Stderr,
		recorder: nopRecorder{},
		filename: DefaultFilename,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.envs == nil {
		m.envs = env.NewManager(append(m.envOpts, env.WithLogger(m.log))...)
	}
	if m.console != nil {
		if err := m.envs.Host().Global().Set("console", m.console.Object()); err != nil {
			m.log.Warn("failed to install console", zap.Error(err))
		}
	}
	return m
}

// Manager returns the environment manager.
func (m *Machine) Manager() *env.Manager { return m.envs }

// Host returns the ambient environment.
func (m *Machine) Host() *env.Environment { return m.envs.Host() }

// Eval runs one evaluation. args are positional: the code for FreshSource,
// then the sandbox (Fresh) or *sandbox.Context (Supplied), then an optional
// filename. A trailing true turns on displayErrors. recv is required for
// Precompiled input and StoreForReuse output.
func (m *Machine) Eval(cfg Config, recv *Script, args ...any) (result any, err error) {
	start := time.Now()
	defer func() {
		m.finish(cfg, start, err)
	}()

	c, err := resolveArgs(cfg, m.filename, args)
	if err != nil {
		return nil, err
	}

	program, err := m.program(cfg, recv, c)
	if err != nil {
		return nil, err
	}
	if cfg.Output == StoreForReuse && recv == nil {
		return nil, scripterr.Misuse(scripterr.MsgNotMethod)
	}

	e, err := m.target(cfg, c)
	if err != nil {
		return nil, err
	}
	if cfg.Target != Ambient {
		if err := e.Enter(); err != nil {
			m.release(cfg, e, false)
			return nil, err
		}
	}
	defer m.release(cfg, e, true)

	if cfg.Target == Fresh {
		if err := propsync.Sync(c.sandbox, e.Global()); err != nil {
			m.log.Debug("sandbox properties skipped", zap.Uint64("env", e.ID()), zap.Error(err))
		}
	}

	if cfg.Output == StoreForReuse {
		recv.store(program, c.filename, c.code)
		result = recv
	} else {
		v, runErr := e.Run(program)
		if runErr != nil {
			return nil, m.runtimeError(e, c.filename, runErr)
		}
		result = e.Realm().FromValue(v)
	}

	if cfg.Target == Fresh {
		err := propsync.Sync(e.Global(), c.sandbox, propsync.Skip(e.IsPristine))
		if err != nil {
			m.log.Debug("sandbox properties not copied back", zap.Uint64("env", e.ID()), zap.Error(err))
		}
	}
	return result, nil
}

// program compiles the code argument or takes the receiver's program.
func (m *Machine) program(cfg Config, recv *Script, c *call) (*goja.Program, error) {
	if cfg.Input == Precompiled {
		if recv == nil {
			return nil, scripterr.Misuse(scripterr.MsgNotMethod)
		}
		p := recv.Program()
		if p == nil {
			return nil, scripterr.Misuse(scripterr.MsgNotCompiled)
		}
		return p, nil
	}

	p, err := compile(c.code, c.filename)
	if err != nil {
		var ce *scripterr.CompileError
		if c.displayErrors && errors.As(err, &ce) {
			if werr := ce.Render(m.diag); werr != nil {
				m.log.Warn("failed to display syntax error", zap.Error(werr))
			}
		}
		return nil, err
	}
	return p, nil
}

func (m *Machine) target(cfg Config, c *call) (*env.Environment, error) {
	switch cfg.Target {
	case Fresh:
		return m.envs.Create(), nil
	case Supplied:
		e, err := c.context.Environment()
		if err != nil {
			return nil, &scripterr.MisuseError{Message: scripterr.MsgContextClosed, Err: err}
		}
		return e, nil
	}
	return m.envs.Current(), nil
}

// release undoes target selection. A fresh environment is detached,
// exited and disposed; a supplied one is only exited.
func (m *Machine) release(cfg Config, e *env.Environment, entered bool) {
	switch cfg.Target {
	case Fresh:
		e.Detach()
		if entered {
			m.exit(e)
		}
		if err := e.Dispose(); err != nil {
			m.log.Error("failed to dispose environment", zap.Uint64("env", e.ID()), zap.Error(err))
		}
	case Supplied:
		if entered {
			m.exit(e)
		}
	}
}

func (m *Machine) exit(e *env.Environment) {
	if err := e.Exit(); err != nil {
		m.log.Error("failed to exit environment", zap.Uint64("env", e.ID()), zap.Error(err))
	}
}

// runtimeError converts a failed run into an error. Engine exceptions carry
// the thrown value converted to a host value.
func (m *Machine) runtimeError(e *env.Environment, filename string, err error) error {
	var exc *goja.Exception
	if errors.As(err, &exc) {
		return &scripterr.RuntimeError{
			Filename:  filename,
			Exception: exc,
			Value:     e.Realm().FromValue(exc.Value()),
		}
	}
	return fmt.Errorf("run %s: %w", filename, err)
}

func (m *Machine) finish(cfg Config, start time.Time, err error) {
	elapsed := time.Since(start)
	status := "ok"
	if err != nil {
		status = string(scripterr.KindOf(err))
	}
	m.recorder.RecordEvaluation(cfg.Target.String(), status, elapsed)

	fields := []zap.Field{
		zap.String("input", cfg.Input.String()),
		zap.String("target", cfg.Target.String()),
		zap.Duration("duration", elapsed),
	}
	switch scripterr.KindOf(err) {
	case "":
		m.log.Debug("evaluation finished", fields...)
	case scripterr.KindInternal:
		m.log.Error("evaluation failed", append(fields, zap.Error(err))...)
	default:
		m.log.Debug("evaluation raised", append(fields, zap.String("kind", status), zap.Error(err))...)
	}
}

// NewScript compiles code into a reusable Script.
func (m *Machine) NewScript(code string, opts ...RunOption) (*Script, error) {
	s := &Script{machine: m}
	if _, err := m.Eval(ConstructScript, s, positional([]any{code}, opts)...); err != nil {
		return nil, err
	}
	return s, nil
}

// RunInThisContext compiles and runs code in the host environment.
func (m *Machine) RunInThisContext(code string, opts ...RunOption) (any, error) {
	return m.Eval(CompileRunInThisContext, nil, positional([]any{code}, opts)...)
}

// RunInNewContext compiles and runs code in a fresh environment seeded from
// sb. A nil sb runs against an empty sandbox.
func (m *Machine) RunInNewContext(code string, sb object.Object, opts ...RunOption) (any, error) {
	return m.Eval(CompileRunInNewContext, nil, positional([]any{code, sb}, opts)...)
}

// RunInContext compiles and runs code in ctx's environment.
func (m *Machine) RunInContext(code string, ctx *sandbox.Context, opts ...RunOption) (any, error) {
	return m.Eval(CompileRunInContext, nil, positional([]any{code, ctx}, opts)...)
}

// CreateContext binds sb to a new environment.
func (m *Machine) CreateContext(sb object.Object) (*sandbox.Context, error) {
	return sandbox.New(m.envs, sb)
}

// CreateEnvironment is CreateContext with an empty sandbox when sb is nil.
func (m *Machine) CreateEnvironment(sb object.Object) (*sandbox.Context, error) {
	return sandbox.CreateEnvironment(m.envs, sb)
}
