package runner

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/evalmachine/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/evalmachine/internal/script/env"
	"github.com/GriffinCanCode/evalmachine/internal/script/evalmachine"
	"github.com/GriffinCanCode/evalmachine/internal/script/object"
	"github.com/GriffinCanCode/evalmachine/internal/script/sandbox"
	"github.com/GriffinCanCode/evalmachine/internal/script/scripterr"
	"github.com/GriffinCanCode/evalmachine/internal/script/seed"
	"github.com/GriffinCanCode/evalmachine/internal/shared/id"
	"github.com/GriffinCanCode/evalmachine/internal/shared/utils"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrInvalidMode = errors.New("invalid mode")
)

// Mode selects the environment a request runs in.
type Mode string

const (
	ModeThis    Mode = "this"
	ModeNew     Mode = "new"
	ModeContext Mode = "context"
)

// Request is one evaluation request.
type Request struct {
	Code          string         `json:"code"`
	Filename      string         `json:"filename,omitempty"`
	Mode          Mode           `json:"mode,omitempty"`
	ContextID     id.ContextID   `json:"context_id,omitempty"`
	Sandbox       map[string]any `json:"sandbox,omitempty"`
	DisplayErrors bool           `json:"display_errors,omitempty"`
}

// Result is the outcome of a successful evaluation.
type Result struct {
	Value    any            `json:"value"`
	Sandbox  map[string]any `json:"sandbox,omitempty"`
	Logs     []env.LogEntry `json:"logs,omitempty"`
	Duration time.Duration  `json:"duration_ns"`
}

// ContextInfo describes a held context.
type ContextInfo struct {
	ID      id.ContextID   `json:"id"`
	Created time.Time      `json:"created"`
	Runs    int            `json:"runs"`
	Sandbox map[string]any `json:"sandbox"`
}

// ScriptInfo describes a held script.
type ScriptInfo struct {
	ID       id.ScriptID `json:"id"`
	Filename string      `json:"filename"`
	Digest   string      `json:"digest"`
	Created  time.Time   `json:"created"`
}

type heldContext struct {
	ctx     *sandbox.Context
	console *env.Console
	created time.Time
	runs    int
}

type heldScript struct {
	script  *evalmachine.Script
	digest  string
	created time.Time
}

// Runner keeps contexts and compiled scripts addressable by id and
// serializes every operation on them. A Machine and its environments must
// not be used from two goroutines at once.
type Runner struct {
	mu       sync.Mutex
	machine  *evalmachine.Machine
	console  *env.Console
	contexts map[id.ContextID]*heldContext
	scripts  map[id.ScriptID]*heldScript
	metrics  *monitoring.Metrics
	log      *zap.Logger

	displayErrors bool
}

// New creates a Runner with its own Machine. Host console output is
// captured and returned with results of runs in the host environment.
func New(log *zap.Logger, opts ...evalmachine.Option) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	console := env.NewConsole(log)
	opts = append([]evalmachine.Option{evalmachine.WithLogger(log)}, opts...)
	opts = append(opts, evalmachine.WithConsole(console))

	return &Runner{
		machine:  evalmachine.New(opts...),
		console:  console,
		contexts: make(map[id.ContextID]*heldContext),
		scripts:  make(map[id.ScriptID]*heldScript),
		log:      log,
	}
}

// WithMetrics adds metrics tracking to the runner
func (r *Runner) WithMetrics(metrics *monitoring.Metrics) *Runner {
	r.metrics = metrics
	return r
}

// WithDisplayErrors renders syntax errors of every request to the machine's
// diagnostic writer, whatever the request asks for.
func (r *Runner) WithDisplayErrors(on bool) *Runner {
	r.displayErrors = on
	return r
}

// Machine returns the underlying machine.
func (r *Runner) Machine() *evalmachine.Machine { return r.machine }

// CreateContext binds a new sandbox seeded with values.
func (r *Runner) CreateContext(values map[string]any) (id.ContextID, error) {
	timer := monitoring.NewTimer(r.metrics, "create_context")

	r.mu.Lock()
	defer r.mu.Unlock()

	sb := object.FromMap(values)
	console := env.NewConsole(r.log)
	attachConsole(sb, console)

	ctx, err := r.machine.CreateContext(sb)
	if err != nil {
		timer.Stop(status(err))
		return "", err
	}

	cid := id.NewContextID()
	r.contexts[cid] = &heldContext{ctx: ctx, console: console, created: time.Now()}
	r.updateGauges()
	timer.Stop("ok")

	r.log.Info("context created", zap.String("context_id", cid.String()))
	return cid, nil
}

// Context describes a held context.
func (r *Runner) Context(cid id.ContextID) (*ContextInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.contexts[cid]
	if !ok {
		return nil, fmt.Errorf("context %s: %w", cid, ErrNotFound)
	}
	return r.describe(cid, h), nil
}

// Contexts lists held contexts, oldest first.
func (r *Runner) Contexts() []ContextInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]ContextInfo, 0, len(r.contexts))
	for cid, h := range r.contexts {
		out = append(out, *r.describe(cid, h))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *Runner) describe(cid id.ContextID, h *heldContext) *ContextInfo {
	return &ContextInfo{
		ID:      cid,
		Created: h.created,
		Runs:    h.runs,
		Sandbox: seed.Snapshot(h.ctx.Sandbox()),
	}
}

// DeleteContext closes and forgets a context.
func (r *Runner) DeleteContext(cid id.ContextID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.contexts[cid]
	if !ok {
		return fmt.Errorf("context %s: %w", cid, ErrNotFound)
	}
	if err := h.ctx.Close(); err != nil {
		return fmt.Errorf("close context %s: %w", cid, err)
	}
	delete(r.contexts, cid)
	r.updateGauges()

	r.log.Info("context deleted", zap.String("context_id", cid.String()))
	return nil
}

// Compile stores a compiled script.
func (r *Runner) Compile(code, filename string, displayErrors bool) (id.ScriptID, error) {
	timer := monitoring.NewTimer(r.metrics, "compile")

	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.machine.NewScript(code, runOptions(filename, displayErrors || r.displayErrors)...)
	if err != nil {
		timer.Stop(status(err))
		return "", err
	}

	sid := id.NewScriptID()
	digest := utils.Digest(code)
	r.scripts[sid] = &heldScript{script: s, digest: digest, created: time.Now()}
	r.updateGauges()
	r.log.Debug("script compiled",
		zap.String("script_id", sid.String()),
		zap.String("filename", s.Filename()),
		zap.String("digest", utils.ShortDigest(digest)))
	timer.Stop("ok")
	return sid, nil
}

// Scripts lists held scripts, oldest first.
func (r *Runner) Scripts() []ScriptInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]ScriptInfo, 0, len(r.scripts))
	for sid, h := range r.scripts {
		out = append(out, ScriptInfo{ID: sid, Filename: h.script.Filename(), Digest: h.digest, Created: h.created})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// DeleteScript forgets a script.
func (r *Runner) DeleteScript(sid id.ScriptID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.scripts[sid]; !ok {
		return fmt.Errorf("script %s: %w", sid, ErrNotFound)
	}
	delete(r.scripts, sid)
	r.updateGauges()
	return nil
}

// Run compiles and runs req.Code.
func (r *Runner) Run(req Request) (*Result, error) {
	return r.run("run", req, func(opts []evalmachine.RunOption, sb *object.Map, ctx *sandbox.Context) (any, error) {
		switch req.mode() {
		case ModeNew:
			return r.machine.RunInNewContext(req.Code, sb, opts...)
		case ModeContext:
			return r.machine.RunInContext(req.Code, ctx, opts...)
		}
		return r.machine.RunInThisContext(req.Code, opts...)
	})
}

// RunScript runs a held script. req.Code is ignored.
func (r *Runner) RunScript(sid id.ScriptID, req Request) (*Result, error) {
	return r.run("run_script", req, func(opts []evalmachine.RunOption, sb *object.Map, ctx *sandbox.Context) (any, error) {
		h, ok := r.scripts[sid]
		if !ok {
			return nil, fmt.Errorf("script %s: %w", sid, ErrNotFound)
		}
		switch req.mode() {
		case ModeNew:
			return h.script.RunInNewContext(sb, opts...)
		case ModeContext:
			return h.script.RunInContext(ctx, opts...)
		}
		return h.script.RunInThisContext(opts...)
	})
}

type evalFunc func(opts []evalmachine.RunOption, sb *object.Map, ctx *sandbox.Context) (any, error)

func (r *Runner) run(op string, req Request, eval evalFunc) (res *Result, err error) {
	timer := monitoring.NewTimer(r.metrics, op)
	defer func() { timer.Stop(status(err)) }()

	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		sb      *object.Map
		ctx     *sandbox.Context
		held    *heldContext
		console = r.console
	)
	switch req.mode() {
	case ModeThis:
	case ModeNew:
		sb = object.FromMap(req.Sandbox)
		console = env.NewConsole(r.log)
		attachConsole(sb, console)
	case ModeContext:
		h, ok := r.contexts[req.ContextID]
		if !ok {
			return nil, fmt.Errorf("context %s: %w", req.ContextID, ErrNotFound)
		}
		held, ctx, console = h, h.ctx, h.console
		h.runs++
	default:
		return nil, fmt.Errorf("%w %q", ErrInvalidMode, req.Mode)
	}

	start := time.Now()
	v, err := eval(runOptions(req.Filename, req.DisplayErrors || r.displayErrors), sb, ctx)
	res = &Result{Value: seed.Plain(v), Logs: console.Drain(), Duration: time.Since(start)}
	if err != nil {
		return nil, err
	}
	switch {
	case sb != nil:
		res.Sandbox = seed.Snapshot(sb)
	case held != nil:
		res.Sandbox = seed.Snapshot(held.ctx.Sandbox())
	}
	return res, nil
}

// Stats counts held objects and live environments.
type Stats struct {
	Contexts         int   `json:"contexts"`
	Scripts          int   `json:"scripts"`
	LiveEnvironments int64 `json:"live_environments"`
}

func (r *Runner) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Stats{
		Contexts:         len(r.contexts),
		Scripts:          len(r.scripts),
		LiveEnvironments: r.machine.Manager().Live(),
	}
}

// Close closes every held context.
func (r *Runner) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for cid, h := range r.contexts {
		if err := h.ctx.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close context %s: %w", cid, err))
		}
		delete(r.contexts, cid)
	}
	r.scripts = make(map[id.ScriptID]*heldScript)
	r.updateGauges()
	return errors.Join(errs...)
}

func (r *Runner) updateGauges() {
	if r.metrics == nil {
		return
	}
	r.metrics.SetContextsActive(len(r.contexts))
	r.metrics.SetScriptsStored(len(r.scripts))
}

func (req Request) mode() Mode {
	if req.Mode == "" {
		if req.ContextID != "" {
			return ModeContext
		}
		return ModeThis
	}
	return req.Mode
}

func runOptions(filename string, displayErrors bool) []evalmachine.RunOption {
	var opts []evalmachine.RunOption
	if filename != "" {
		opts = append(opts, evalmachine.Filename(filename))
	}
	if displayErrors {
		opts = append(opts, evalmachine.DisplayErrors())
	}
	return opts
}

// attachConsole exposes console on sb without making it part of snapshots.
func attachConsole(sb *object.Map, console *env.Console) {
	_ = sb.DefineOwnProperty("console", object.Property{
		Value:        console.Object(),
		Writable:     true,
		Configurable: true,
	})
}

func status(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidMode):
		return "invalid"
	}
	return string(scripterr.KindOf(err))
}
