package object

import (
	"errors"
	"strconv"

	"github.com/dop251/goja"
)

// dynamicObject is the view of a Map or a foreign object inside a realm.
type dynamicObject struct {
	realm *Realm
	obj   Object
}

func (d *dynamicObject) Get(key string) goja.Value {
	defer d.realm.Rethrow()
	v, ok := d.obj.Get(key)
	if !ok {
		return nil
	}
	return d.realm.ToValue(v)
}

func (d *dynamicObject) Set(key string, val goja.Value) bool {
	err := d.obj.Set(key, d.realm.FromValue(val))
	if t := thrownOf(err); t != nil {
		panic(d.realm.throwValue(t))
	}
	return err == nil
}

func (d *dynamicObject) Has(key string) bool {
	defer d.realm.Rethrow()
	_, ok := d.obj.GetOwnProperty(key)
	return ok
}

func (d *dynamicObject) Delete(key string) bool {
	defer d.realm.Rethrow()
	if _, ok := d.obj.GetOwnProperty(key); !ok {
		return true
	}
	return d.obj.Delete(key)
}

func (d *dynamicObject) Keys() []string {
	defer d.realm.Rethrow()
	var keys []string
	for _, k := range d.obj.OwnKeys() {
		if p, ok := d.obj.GetOwnProperty(k); ok && p.Enumerable {
			keys = append(keys, k)
		}
	}
	return keys
}

// dynamicArray is the view of a foreign array.
type dynamicArray struct {
	realm *Realm
	src   *JSObject
}

func (a *dynamicArray) Len() int {
	defer a.realm.Rethrow()
	v, ok := a.src.Get("length")
	if !ok {
		return 0
	}
	if gv, ok := v.(goja.Value); ok {
		return int(gv.ToInteger())
	}
	return 0
}

func (a *dynamicArray) Get(idx int) goja.Value {
	defer a.realm.Rethrow()
	v, ok := a.src.Get(strconv.Itoa(idx))
	if !ok {
		return nil
	}
	return a.realm.ToValue(v)
}

func (a *dynamicArray) Set(idx int, val goja.Value) bool {
	return a.src.Set(strconv.Itoa(idx), a.realm.FromValue(val)) == nil
}

func (a *dynamicArray) SetLen(n int) bool {
	return a.src.Set("length", n) == nil
}

func thrownOf(err error) *Thrown {
	var t *Thrown
	if errors.As(err, &t) {
		return t
	}
	return nil
}
