package evalmachine

import (
	"errors"

	"github.com/dop251/goja"

	"github.com/GriffinCanCode/evalmachine/internal/script/object"
	"github.com/GriffinCanCode/evalmachine/internal/script/sandbox"
	"github.com/GriffinCanCode/evalmachine/internal/script/scripterr"
)

// binding exposes the machine to scripts of its host environment.
type binding struct {
	m     *Machine
	vm    *goja.Runtime
	realm *object.Realm

	scriptKey   *goja.Symbol
	contextKey  *goja.Symbol
	contextCtor *goja.Object
}

// Install defines the Script constructor (also as NodeScript) and the
// Context constructor on the host environment's global object.
//
//	new Script(code, [filename], [displayErrors])
//	script.runInThisContext([filename], [displayErrors])
//	script.runInNewContext([sandbox], [filename], [displayErrors])
//	script.runInContext(context, [filename], [displayErrors])
//	Script.runInThisContext(code, [filename], [displayErrors])
//	Script.runInNewContext(code, [sandbox], [filename], [displayErrors])
//	Script.runInContext(code, context, [filename], [displayErrors])
//	Script.createContext(sandbox)
//	new Context(sandbox)
func (m *Machine) Install() error {
	host := m.Host()
	b := &binding{
		m:          m,
		vm:         host.Runtime(),
		realm:      host.Realm(),
		scriptKey:  goja.NewSymbol("Script"),
		contextKey: goja.NewSymbol("Context"),
	}

	b.contextCtor = b.constructor("Context", b.newContext)
	script := b.constructor("Script", b.newScript)
	proto := script.Get("prototype").ToObject(b.vm)

	methods := []struct {
		obj  *goja.Object
		name string
		fn   func(goja.FunctionCall) goja.Value
	}{
		{proto, "runInThisContext", b.method(RunInThisContext)},
		{proto, "runInNewContext", b.method(RunInNewContext)},
		{proto, "runInContext", b.method(RunInContext)},
		{proto, "createContext", b.createContext},
		{script, "runInThisContext", b.static(CompileRunInThisContext)},
		{script, "runInNewContext", b.static(CompileRunInNewContext)},
		{script, "runInContext", b.static(CompileRunInContext)},
		{script, "createContext", b.createContext},
	}
	for _, def := range methods {
		if err := def.obj.Set(def.name, def.fn); err != nil {
			return err
		}
	}

	global := b.vm.GlobalObject()
	for name, v := range map[string]*goja.Object{"Script": script, "NodeScript": script, "Context": b.contextCtor} {
		if err := global.Set(name, v); err != nil {
			return err
		}
	}
	return nil
}

func (b *binding) constructor(name string, fn func(goja.ConstructorCall) *goja.Object) *goja.Object {
	ctor := b.vm.ToValue(fn).(*goja.Object)
	_ = ctor.DefineDataProperty("name", b.vm.ToValue(name), goja.FLAG_FALSE, goja.FLAG_TRUE, goja.FLAG_FALSE)
	return ctor
}

func (b *binding) newScript(call goja.ConstructorCall) *goja.Object {
	s := &Script{machine: b.m}
	if _, err := b.m.Eval(ConstructScript, s, b.args(call.Arguments)...); err != nil {
		b.throw(err)
	}
	b.hide(call.This, b.scriptKey, s)
	return nil
}

func (b *binding) newContext(call goja.ConstructorCall) *goja.Object {
	if len(call.Arguments) != 1 {
		b.throw(errors.New(scripterr.MsgContextArity))
	}
	o, ok := call.Argument(0).(*goja.Object)
	if !ok {
		b.throw(errors.New(scripterr.MsgContextNotObject))
	}
	ctx, err := b.m.CreateContext(b.realm.Wrap(o))
	if err != nil {
		b.throw(err)
	}
	b.hide(call.This, b.contextKey, ctx)
	return nil
}

func (b *binding) createContext(call goja.FunctionCall) goja.Value {
	obj, err := b.vm.New(b.contextCtor, call.Arguments...)
	if err != nil {
		panic(b.exceptionValue(err))
	}
	return obj
}

// method runs the script stored on `this`.
func (b *binding) method(cfg Config) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		s, _ := b.unwrap(call.This, b.scriptKey).(*Script)
		return b.eval(cfg, s, call.Arguments)
	}
}

func (b *binding) static(cfg Config) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		return b.eval(cfg, nil, call.Arguments)
	}
}

func (b *binding) eval(cfg Config, recv *Script, args []goja.Value) goja.Value {
	res, err := b.m.Eval(cfg, recv, b.args(args)...)
	if err != nil {
		b.throw(err)
	}
	return b.realm.ToValue(res)
}

// args converts script arguments for Eval. Context objects become their
// *sandbox.Context and other objects become host handles.
func (b *binding) args(vals []goja.Value) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		if ctx, ok := b.unwrap(v, b.contextKey).(*sandbox.Context); ok {
			out[i] = ctx
			continue
		}
		out[i] = b.realm.FromValue(v)
	}
	return out
}

func (b *binding) hide(o *goja.Object, key *goja.Symbol, v any) {
	_ = o.DefineDataPropertySymbol(key, b.vm.ToValue(v), goja.FLAG_FALSE, goja.FLAG_FALSE, goja.FLAG_FALSE)
}

func (b *binding) unwrap(v goja.Value, key *goja.Symbol) any {
	o, ok := v.(*goja.Object)
	if !ok {
		return nil
	}
	held := o.GetSymbol(key)
	if held == nil || goja.IsUndefined(held) {
		return nil
	}
	return held.Export()
}

// throw raises err in the host environment. Thrown values keep their
// identity; argument errors become TypeErrors and syntax errors
// SyntaxErrors.
func (b *binding) throw(err error) {
	var (
		rt *scripterr.RuntimeError
		ce *scripterr.CompileError
	)
	switch {
	case errors.As(err, &rt):
		panic(b.realm.ToValue(rt.Value))
	case errors.As(err, &ce):
		panic(b.newError("SyntaxError", ce.Error()))
	case scripterr.KindOf(err) == scripterr.KindArgument:
		panic(b.vm.NewTypeError(err.Error()))
	}
	panic(b.newError("Error", err.Error()))
}

func (b *binding) exceptionValue(err error) goja.Value {
	var exc *goja.Exception
	if errors.As(err, &exc) {
		return exc.Value()
	}
	return b.newError("Error", err.Error())
}

func (b *binding) newError(ctor, msg string) *goja.Object {
	c, ok := b.vm.Get(ctor).(*goja.Object)
	if ok {
		if obj, err := b.vm.New(c, b.vm.ToValue(msg)); err == nil {
			return obj
		}
	}
	return b.vm.NewGoError(errors.New(msg))
}
