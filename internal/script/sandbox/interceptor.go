package sandbox

import (
	"errors"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/dop251/goja"

	"github.com/GriffinCanCode/evalmachine/internal/script/object"
)

// link is the cell the interception layer reads on every call. Destroying
// the owning Context clears it; traps that find it empty fall back to the
// plain target object.
type link struct {
	vm *goja.Runtime
	p  atomic.Pointer[binding]
}

func (l *link) bind(b *binding) { l.p.Store(b) }
func (l *link) clear()          { l.p.Store(nil) }
func (l *link) load() *binding  { return l.p.Load() }

// binding holds what the traps need. S is sandbox, G is global, T is target.
type binding struct {
	sandbox object.Object
	global  *object.JSObject
	target  *object.JSObject
	proxy   *goja.Object
	realm   *object.Realm

	mu      sync.Mutex
	mirrors map[string]bool // names defined non-configurable on T
}

func (b *binding) mirrored(name string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mirrors[name]
}

// mirror copies p onto T. The engine checks proxy results against T, so a
// non-configurable property reported by a trap must exist on T as well.
func (b *binding) mirror(name string, p object.Property) {
	if !p.IsAccessor() && b.isSelf(p.Value) {
		p.Value = b.proxy
	}
	if err := b.target.DefineOwnProperty(name, p); err != nil {
		return
	}
	if !p.Configurable {
		b.mu.Lock()
		b.mirrors[name] = true
		b.mu.Unlock()
	}
}

func (b *binding) isSelf(v any) bool {
	return object.Same(v, b.sandbox) || object.Same(v, b.global)
}

// value converts a host value for the script. References to the sandbox or
// the intrinsic global become the installed global.
func (b *binding) value(v any) goja.Value {
	if b.isSelf(v) {
		return b.proxy
	}
	return b.realm.ToValue(v)
}

func (b *binding) descriptor(p object.Property) goja.PropertyDescriptor {
	if !p.IsAccessor() && b.isSelf(p.Value) {
		p.Value = b.proxy
	}
	return b.realm.Descriptor(p)
}

func (l *link) traps() *goja.ProxyTrapConfig {
	return &goja.ProxyTrapConfig{
		Get:                         l.get,
		Set:                         l.set,
		Has:                         l.has,
		DeleteProperty:              l.deleteProperty,
		OwnKeys:                     l.ownKeys,
		GetOwnPropertyDescriptor:    l.getOwnPropertyDescriptor,
		DefineProperty:              l.defineProperty,
		PreventExtensions:           func(*goja.Object) bool { return false },
		GetIdx:                      l.getIdx,
		SetIdx:                      l.setIdx,
		HasIdx:                      l.hasIdx,
		DeletePropertyIdx:           l.deletePropertyIdx,
		GetOwnPropertyDescriptorIdx: l.getOwnPropertyDescriptorIdx,
		DefinePropertyIdx:           l.definePropertyIdx,
	}
}

// Index keys are ordinary names on the sandbox.

func (l *link) getIdx(t *goja.Object, i int, r goja.Value) goja.Value {
	return l.get(t, strconv.Itoa(i), r)
}

func (l *link) setIdx(t *goja.Object, i int, v, r goja.Value) bool {
	return l.set(t, strconv.Itoa(i), v, r)
}

func (l *link) hasIdx(t *goja.Object, i int) bool {
	return l.has(t, strconv.Itoa(i))
}

func (l *link) deletePropertyIdx(t *goja.Object, i int) bool {
	return l.deleteProperty(t, strconv.Itoa(i))
}

func (l *link) getOwnPropertyDescriptorIdx(t *goja.Object, i int) goja.PropertyDescriptor {
	return l.getOwnPropertyDescriptor(t, strconv.Itoa(i))
}

func (l *link) definePropertyIdx(t *goja.Object, i int, d goja.PropertyDescriptor) bool {
	return l.defineProperty(t, strconv.Itoa(i), d)
}

// get resolves name on S, then on G.
func (l *link) get(target *goja.Object, name string, _ goja.Value) goja.Value {
	b := l.load()
	if b == nil {
		return target.Get(name)
	}
	defer b.realm.Rethrow()

	if b.mirrored(name) {
		if p, ok := b.target.GetOwnProperty(name); ok && !p.IsAccessor() && !p.Writable {
			return target.Get(name)
		}
	}
	if v, ok := b.sandbox.Get(name); ok {
		return b.value(v)
	}
	if v, ok := b.global.Get(name); ok {
		return b.value(v)
	}
	return nil
}

// set always writes to S.
func (l *link) set(_ *goja.Object, name string, value goja.Value, _ goja.Value) bool {
	b := l.load()
	if b == nil {
		return false
	}
	defer b.realm.Rethrow()

	v := b.realm.FromValue(value)
	if err := b.sandbox.Set(name, v); err != nil {
		if t := thrownOf(err); t != nil {
			panic(t)
		}
		return false
	}
	return true
}

func (l *link) has(target *goja.Object, name string) bool {
	b := l.load()
	if b == nil {
		return hasOwn(target, name)
	}
	defer b.realm.Rethrow()

	return b.sandbox.HasProperty(name) || b.global.HasProperty(name) || b.mirrored(name)
}

// deleteProperty deletes from S, falling back to G.
func (l *link) deleteProperty(_ *goja.Object, name string) bool {
	b := l.load()
	if b == nil {
		return false
	}
	defer b.realm.Rethrow()

	if b.mirrored(name) {
		return false
	}
	return b.sandbox.Delete(name) || b.global.Delete(name)
}

// ownKeys lists S's own names, plus mirrors S no longer has.
func (l *link) ownKeys(target *goja.Object) *goja.Object {
	b := l.load()
	if b == nil {
		var keys []interface{}
		for _, k := range target.GetOwnPropertyNames() {
			keys = append(keys, k)
		}
		return l.vm.NewArray(keys...)
	}
	defer b.realm.Rethrow()

	seen := make(map[string]bool)
	var keys []interface{}
	for _, k := range b.sandbox.OwnKeys() {
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	for _, k := range b.target.OwnKeys() {
		if !seen[k] && b.mirrored(k) {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	return l.vm.NewArray(keys...)
}

func (l *link) getOwnPropertyDescriptor(target *goja.Object, name string) goja.PropertyDescriptor {
	b := l.load()
	if b == nil {
		return goja.PropertyDescriptor{}
	}
	defer b.realm.Rethrow()

	if p, ok := b.sandbox.GetOwnProperty(name); ok {
		if !p.Configurable {
			b.mirror(name, p)
		}
		return b.descriptor(p)
	}
	if b.mirrored(name) {
		if p, ok := b.target.GetOwnProperty(name); ok {
			return b.realm.Descriptor(p)
		}
	}
	if p, ok := b.global.GetOwnProperty(name); ok {
		p.Configurable = true
		return b.descriptor(p)
	}
	return goja.PropertyDescriptor{}
}

// defineProperty defines on S. Non-configurable definitions are mirrored on
// T, as are redefinitions of names T already holds.
func (l *link) defineProperty(_ *goja.Object, name string, d goja.PropertyDescriptor) bool {
	b := l.load()
	if b == nil {
		return false
	}
	defer b.realm.Rethrow()

	cur, exists := b.sandbox.GetOwnProperty(name)
	p := b.realm.Merge(cur, exists, d)
	if err := b.sandbox.DefineOwnProperty(name, p); err != nil {
		return false
	}
	if !p.Configurable || b.mirrored(name) {
		b.mirror(name, p)
	}
	return true
}

func hasOwn(o *goja.Object, name string) bool {
	for _, k := range o.GetOwnPropertyNames() {
		if k == name {
			return true
		}
	}
	return false
}

func thrownOf(err error) *object.Thrown {
	var t *object.Thrown
	if errors.As(err, &t) {
		return t
	}
	return nil
}
