package object

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/dop251/goja"
)

var (
	ErrNotExtensible   = errors.New("object is not extensible")
	ErrNotConfigurable = errors.New("property is not configurable")
	ErrNotWritable     = errors.New("property is not writable")
	ErrNoSetter        = errors.New("property has a getter but no setter")
	ErrNotCallable     = errors.New("value is not callable")
)

// IsNil reports whether o is nil, including a nil pointer stored in the
// interface.
func IsNil(o Object) bool {
	if o == nil {
		return true
	}
	v := reflect.ValueOf(o)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

// Func is a host-implemented callable usable as an accessor or exposed to
// scripts as a function. this is the receiver as a host value.
type Func func(this any, args ...any) (any, error)

// Property is a full property descriptor. A nil Value reads as undefined.
// A property with a Getter or Setter is an accessor and ignores Value and
// Writable.
type Property struct {
	Value        any
	Getter       any
	Setter       any
	Writable     bool
	Enumerable   bool
	Configurable bool
}

// Data returns a writable, enumerable, configurable data property.
func Data(v any) Property {
	return Property{Value: v, Writable: true, Enumerable: true, Configurable: true}
}

// IsAccessor reports whether p has a getter or setter.
func (p Property) IsAccessor() bool {
	return p.Getter != nil || p.Setter != nil
}

// Object is the host-side view of a script-visible object: either a Go-native
// Map or an engine object wrapped by a Realm.
type Object interface {
	// OwnKeys returns own string keys, enumerable or not.
	OwnKeys() []string
	GetOwnProperty(name string) (Property, bool)
	DefineOwnProperty(name string, p Property) error
	// HasProperty looks through the prototype chain.
	HasProperty(name string) bool
	// Get resolves an own or inherited property, invoking getters. A throwing
	// getter panics with *Thrown.
	Get(name string) (any, bool)
	Set(name string, v any) error
	// Delete reports whether an existing property was removed.
	Delete(name string) bool
	// Ref is the value that stands for this object inside other objects.
	Ref() any
}

// Thrown carries a value thrown by script code across the host boundary.
type Thrown struct {
	Value any
	Err   error
}

func (t *Thrown) Error() string {
	if t.Err != nil {
		return t.Err.Error()
	}
	return fmt.Sprintf("thrown: %v", Export(t.Value))
}

func (t *Thrown) Unwrap() error { return t.Err }

// Same reports whether v is the reference that stands for o.
func Same(v any, o Object) bool {
	if o == nil || v == nil {
		return false
	}
	switch x := v.(type) {
	case Ref:
		r, ok := o.Ref().(Ref)
		return ok && r.obj == x.obj
	case *JSObject:
		return Same(x.Ref(), o)
	case *Map:
		m, ok := o.Ref().(*Map)
		return ok && m == x
	}
	return false
}

// SameValue compares two host values the way SameValue compares script values.
func SameValue(a, b any) bool {
	if a == nil || b == nil {
		return isUndefined(a) && isUndefined(b)
	}
	switch x := a.(type) {
	case goja.Value:
		if y, ok := b.(goja.Value); ok {
			return x.SameAs(y)
		}
		return false
	case Ref:
		y, ok := b.(Ref)
		return ok && x.obj == y.obj
	case *Map:
		y, ok := b.(*Map)
		return ok && x == y
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta.Comparable() {
		return a == b
	}
	if ta.Kind() == reflect.Func {
		return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
	}
	return reflect.DeepEqual(a, b)
}

func isUndefined(v any) bool {
	if v == nil {
		return true
	}
	gv, ok := v.(goja.Value)
	return ok && goja.IsUndefined(gv)
}

// call invokes a host or script callable with this bound to the receiver.
func call(fn any, this any, args ...any) (any, error) {
	switch f := fn.(type) {
	case Func:
		return f(this, args...)
	case Ref:
		c, ok := goja.AssertFunction(f.obj)
		if !ok {
			return nil, ErrNotCallable
		}
		vals := make([]goja.Value, len(args))
		for i, a := range args {
			vals[i] = f.realm.ToValue(a)
		}
		res, err := c(f.realm.ToValue(this), vals...)
		if err != nil {
			return nil, f.realm.thrown(err)
		}
		return f.realm.FromValue(res), nil
	case *JSObject:
		return call(f.Ref(), this, args...)
	}
	return nil, fmt.Errorf("%w: %T", ErrNotCallable, fn)
}
