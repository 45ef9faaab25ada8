package object

import (
	"fmt"

	"github.com/dop251/goja"
)

// JSObject adapts a runtime object to the Object interface. Script
// exceptions raised while reading surface as *Thrown panics; writes return
// them as errors.
type JSObject struct {
	realm *Realm
	obj   *goja.Object
}

func (o *JSObject) Realm() *Realm        { return o.realm }
func (o *JSObject) Object() *goja.Object { return o.obj }
func (o *JSObject) Ref() any             { return Ref{realm: o.realm, obj: o.obj} }

// try runs f on the owning runtime, turning a script exception into *Thrown.
func (o *JSObject) try(f func()) error {
	if exc := o.realm.vm.Try(f); exc != nil {
		return o.realm.thrown(exc)
	}
	return nil
}

func (o *JSObject) must(f func()) {
	if err := o.try(f); err != nil {
		panic(asThrown(err))
	}
}

func (o *JSObject) OwnKeys() (keys []string) {
	o.must(func() { keys = o.obj.GetOwnPropertyNames() })
	return keys
}

func (o *JSObject) GetOwnProperty(name string) (Property, bool) {
	if o.realm.getOwnDescriptor == nil {
		return Property{}, false
	}
	var desc goja.Value
	err := o.try(func() {
		var err error
		desc, err = o.realm.getOwnDescriptor(goja.Undefined(), o.obj, o.realm.vm.ToValue(name))
		if err != nil {
			panic(err)
		}
	})
	if err != nil {
		panic(asThrown(err))
	}
	if desc == nil || goja.IsUndefined(desc) {
		return Property{}, false
	}
	d := desc.ToObject(o.realm.vm)
	p := Property{
		Enumerable:   d.Get("enumerable").ToBoolean(),
		Configurable: d.Get("configurable").ToBoolean(),
	}
	getter, setter := d.Get("get"), d.Get("set")
	if getter != nil || setter != nil {
		p.Getter = o.realm.accessor(getter)
		p.Setter = o.realm.accessor(setter)
		return p, true
	}
	p.Value = o.realm.FromValue(d.Get("value"))
	p.Writable = d.Get("writable").ToBoolean()
	return p, true
}

func (o *JSObject) DefineOwnProperty(name string, p Property) error {
	c, e := flag(p.Configurable), flag(p.Enumerable)
	var err error
	if p.IsAccessor() {
		var getter, setter goja.Value
		if p.Getter != nil {
			getter = o.realm.ToValue(p.Getter)
		}
		if p.Setter != nil {
			setter = o.realm.ToValue(p.Setter)
		}
		err = o.obj.DefineAccessorProperty(name, getter, setter, c, e)
	} else {
		err = o.obj.DefineDataProperty(name, o.realm.ToValue(p.Value), flag(p.Writable), c, e)
	}
	if err != nil {
		return fmt.Errorf("define %q: %w", name, o.realm.thrown(err))
	}
	return nil
}

func (o *JSObject) HasProperty(name string) bool {
	if o.realm.has == nil {
		_, ok := o.Get(name)
		return ok
	}
	var res goja.Value
	o.must(func() {
		var err error
		res, err = o.realm.has(goja.Undefined(), o.obj, o.realm.vm.ToValue(name))
		if err != nil {
			panic(err)
		}
	})
	return res != nil && res.ToBoolean()
}

func (o *JSObject) Get(name string) (any, bool) {
	var v goja.Value
	o.must(func() { v = o.obj.Get(name) })
	if v == nil {
		return nil, false
	}
	return o.realm.FromValue(v), true
}

func (o *JSObject) Set(name string, v any) error {
	val := o.realm.ToValue(v)
	if err := o.obj.Set(name, val); err != nil {
		return o.realm.thrown(err)
	}
	return nil
}

func (o *JSObject) Delete(name string) bool {
	p, ok := o.GetOwnProperty(name)
	if !ok || !p.Configurable {
		return false
	}
	if err := o.obj.Delete(name); err != nil {
		return false
	}
	_, still := o.GetOwnProperty(name)
	return !still
}

// Prototype returns the object's prototype, or nil.
func (o *JSObject) Prototype() *JSObject {
	proto := o.obj.Prototype()
	if proto == nil {
		return nil
	}
	return o.realm.Wrap(proto)
}
