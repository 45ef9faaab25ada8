package object

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dop251/goja"
)

// Ref is a host handle to an object owned by a Realm.
type Ref struct {
	realm *Realm
	obj   *goja.Object
}

func (r Ref) Realm() *Realm        { return r.realm }
func (r Ref) Object() *goja.Object { return r.obj }

// Export returns the engine's Go representation of the object.
func (r Ref) Export() any {
	if r.obj == nil {
		return nil
	}
	return r.obj.Export()
}

// Realm bridges one goja runtime and the host object model. Objects owned by
// the runtime leave it as Refs; Maps and objects of other realms enter it as
// live views that map back to their origin when they leave again.
//
// A Realm is not safe for concurrent use, matching its runtime.
type Realm struct {
	vm *goja.Runtime

	// captured before any script runs so later tampering cannot redirect them
	getOwnDescriptor goja.Callable
	has              goja.Callable

	mu      sync.Mutex
	views   map[any]*goja.Object // origin (*Map or foreign *goja.Object) -> local view
	origins map[*goja.Object]any // local view -> *Map or foreign Ref
}

// NewRealm binds a Realm to vm. It must be called while vm's global object is
// still the intrinsic one.
func NewRealm(vm *goja.Runtime) *Realm {
	r := &Realm{
		vm:      vm,
		views:   make(map[any]*goja.Object),
		origins: make(map[*goja.Object]any),
	}
	global := vm.GlobalObject()
	if ctor, ok := global.Get("Object").(*goja.Object); ok {
		r.getOwnDescriptor, _ = goja.AssertFunction(ctor.Get("getOwnPropertyDescriptor"))
	}
	if reflect, ok := global.Get("Reflect").(*goja.Object); ok {
		r.has, _ = goja.AssertFunction(reflect.Get("has"))
	}
	return r
}

func (r *Realm) Runtime() *goja.Runtime { return r.vm }

// Wrap exposes a runtime object through the Object interface.
func (r *Realm) Wrap(o *goja.Object) *JSObject {
	return &JSObject{realm: r, obj: o}
}

// NewObject creates an empty ordinary object in the realm.
func (r *Realm) NewObject() *JSObject {
	return r.Wrap(r.vm.NewObject())
}

// ToValue converts a host value into this realm. A raw *goja.Object is
// assumed to belong to this realm.
func (r *Realm) ToValue(v any) goja.Value {
	switch x := v.(type) {
	case nil:
		return goja.Undefined()
	case goja.Value:
		return x
	case Ref:
		if x.obj == nil {
			return goja.Undefined()
		}
		if x.realm == r || x.realm == nil {
			return x.obj
		}
		return r.foreign(x)
	case *JSObject:
		return r.ToValue(x.Ref())
	case *Map:
		return r.hostView(x)
	case Func:
		return r.vm.ToValue(r.nativeFunc(x))
	}
	return r.vm.ToValue(v)
}

// FromValue converts a value of this realm into a host value. Views created
// by ToValue come back as their origin.
func (r *Realm) FromValue(v goja.Value) any {
	if v == nil {
		return goja.Undefined()
	}
	o, ok := v.(*goja.Object)
	if !ok {
		return v
	}
	r.mu.Lock()
	origin, isView := r.origins[o]
	r.mu.Unlock()
	if isView {
		return origin
	}
	return Ref{realm: r, obj: o}
}

// Ref returns the host handle of a runtime object.
func (r *Realm) Ref(o *goja.Object) Ref {
	return Ref{realm: r, obj: o}
}

func (r *Realm) remember(origin any, key any, view *goja.Object) *goja.Object {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.views[key]; ok {
		return existing
	}
	r.views[key] = view
	r.origins[view] = origin
	return view
}

func (r *Realm) lookupView(key any) (*goja.Object, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.views[key]
	return v, ok
}

func (r *Realm) hostView(m *Map) goja.Value {
	if v, ok := r.lookupView(m); ok {
		return v
	}
	return r.remember(m, m, r.vm.NewDynamicObject(&dynamicObject{realm: r, obj: m}))
}

func (r *Realm) foreign(ref Ref) goja.Value {
	if v, ok := r.lookupView(ref.obj); ok {
		return v
	}
	var view *goja.Object
	switch {
	case isCallable(ref.obj):
		view = r.vm.ToValue(r.foreignFunc(ref)).(*goja.Object)
	case ref.obj.ClassName() == "Array":
		view = r.vm.NewDynamicArray(&dynamicArray{realm: r, src: ref.realm.Wrap(ref.obj)})
	default:
		view = r.vm.NewDynamicObject(&dynamicObject{realm: r, obj: ref.realm.Wrap(ref.obj)})
	}
	return r.remember(ref, ref.obj, view)
}

func isCallable(o *goja.Object) bool {
	_, ok := goja.AssertFunction(o)
	return ok
}

// foreignFunc forwards calls into the realm that owns ref.
func (r *Realm) foreignFunc(ref Ref) func(goja.FunctionCall) goja.Value {
	return func(fc goja.FunctionCall) goja.Value {
		args := make([]any, len(fc.Arguments))
		for i, a := range fc.Arguments {
			args[i] = r.FromValue(a)
		}
		res, err := call(ref, r.FromValue(fc.This), args...)
		if err != nil {
			panic(r.throwValue(err))
		}
		return r.ToValue(res)
	}
}

func (r *Realm) nativeFunc(fn Func) func(goja.FunctionCall) goja.Value {
	return func(fc goja.FunctionCall) goja.Value {
		args := make([]any, len(fc.Arguments))
		for i, a := range fc.Arguments {
			args[i] = r.FromValue(a)
		}
		res, err := fn(r.FromValue(fc.This), args...)
		if err != nil {
			panic(r.throwValue(err))
		}
		return r.ToValue(res)
	}
}

// thrown turns an engine exception raised in this realm into a *Thrown.
func (r *Realm) thrown(err error) error {
	var exc *goja.Exception
	if errors.As(err, &exc) {
		return &Thrown{Value: r.FromValue(exc.Value()), Err: err}
	}
	return err
}

// throwValue builds the value to panic with so that the running script of
// this realm observes err as an exception.
func (r *Realm) throwValue(err error) goja.Value {
	var t *Thrown
	if errors.As(err, &t) {
		if _, isString := t.Value.(string); !isString {
			return r.ToValue(t.Value)
		}
	}
	return r.vm.NewTypeError(err.Error())
}

// Rethrow must be deferred by native code called from this realm's scripts.
// It converts *Thrown panics raised by host objects into exceptions of this
// realm.
func (r *Realm) Rethrow() {
	if x := recover(); x != nil {
		if t, ok := x.(*Thrown); ok {
			panic(r.throwValue(t))
		}
		panic(x)
	}
}

// Descriptor converts p into an engine descriptor of this realm.
func (r *Realm) Descriptor(p Property) goja.PropertyDescriptor {
	d := goja.PropertyDescriptor{
		Enumerable:   flag(p.Enumerable),
		Configurable: flag(p.Configurable),
	}
	if p.IsAccessor() {
		if p.Getter != nil {
			d.Getter = r.ToValue(p.Getter)
		}
		if p.Setter != nil {
			d.Setter = r.ToValue(p.Setter)
		}
		return d
	}
	d.Value = r.ToValue(p.Value)
	d.Writable = flag(p.Writable)
	return d
}

// Merge applies a possibly partial engine descriptor over base, which is the
// existing property if exists is set.
func (r *Realm) Merge(base Property, exists bool, d goja.PropertyDescriptor) Property {
	p := base
	if !exists {
		p = Property{}
	}
	switch {
	case d.Getter != nil || d.Setter != nil:
		if !p.IsAccessor() {
			p.Value, p.Writable = nil, false
		}
		if d.Getter != nil {
			p.Getter = r.accessor(d.Getter)
		}
		if d.Setter != nil {
			p.Setter = r.accessor(d.Setter)
		}
	case d.Value != nil || d.Writable != goja.FLAG_NOT_SET:
		p.Getter, p.Setter = nil, nil
		if d.Value != nil {
			p.Value = r.FromValue(d.Value)
		}
		if d.Writable != goja.FLAG_NOT_SET {
			p.Writable = d.Writable.Bool()
		}
	}
	if d.Enumerable != goja.FLAG_NOT_SET {
		p.Enumerable = d.Enumerable.Bool()
	}
	if d.Configurable != goja.FLAG_NOT_SET {
		p.Configurable = d.Configurable.Bool()
	}
	if !p.IsAccessor() && p.Value == nil {
		p.Value = goja.Undefined()
	}
	return p
}

func (r *Realm) accessor(v goja.Value) any {
	if v == nil || goja.IsUndefined(v) {
		return nil
	}
	return r.FromValue(v)
}

func flag(b bool) goja.Flag {
	if b {
		return goja.FLAG_TRUE
	}
	return goja.FLAG_FALSE
}

// Export converts a host value into plain Go data.
func Export(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case goja.Value:
		return x.Export()
	case Ref:
		return x.Export()
	case *JSObject:
		return Export(x.Ref())
	case *Map:
		return x.Export()
	case Func:
		return fmt.Sprintf("%T", x)
	}
	return v
}
