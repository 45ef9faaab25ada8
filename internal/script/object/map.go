package object

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Map is a Go-native object with full property descriptors. Keys keep
// insertion order. Accessors run without the lock held.
type Map struct {
	mu            sync.RWMutex
	keys          []string
	props         map[string]Property // Protected by mu
	proto         *Map
	nonExtensible bool
}

// NewMap creates an empty extensible Map.
func NewMap() *Map {
	return &Map{props: make(map[string]Property)}
}

// FromMap builds a Map from plain Go data. Keys are added in sorted order and
// nested map[string]any values become nested Maps.
func FromMap(values map[string]any) *Map {
	m := NewMap()
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := values[k]
		if nested, ok := v.(map[string]any); ok {
			v = FromMap(nested)
		}
		m.put(k, Data(v))
	}
	return m
}

func (m *Map) put(name string, p Property) {
	if _, exists := m.props[name]; !exists {
		m.keys = append(m.keys, name)
	}
	m.props[name] = p
}

// SetPrototype sets the Map consulted by HasProperty, Get and Set.
func (m *Map) SetPrototype(proto *Map) error {
	for p := proto; p != nil; p = p.Prototype() {
		if p == m {
			return fmt.Errorf("object: cyclic prototype chain")
		}
	}
	m.mu.Lock()
	m.proto = proto
	m.mu.Unlock()
	return nil
}

func (m *Map) Prototype() *Map {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.proto
}

func (m *Map) OwnKeys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.keys...)
}

// Len returns the number of own properties.
func (m *Map) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.keys)
}

func (m *Map) GetOwnProperty(name string) (Property, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.props[name]
	return p, ok
}

// DefineOwnProperty validates p against the existing property the way
// ECMAScript's ValidateAndApplyPropertyDescriptor does for full descriptors.
func (m *Map) DefineOwnProperty(name string, p Property) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, exists := m.props[name]
	if !exists {
		if m.nonExtensible {
			return fmt.Errorf("%w: cannot define %q", ErrNotExtensible, name)
		}
		m.put(name, normalize(p))
		return nil
	}
	if !cur.Configurable {
		if p.Configurable || p.Enumerable != cur.Enumerable || p.IsAccessor() != cur.IsAccessor() {
			return fmt.Errorf("%w: cannot redefine %q", ErrNotConfigurable, name)
		}
		if cur.IsAccessor() {
			if !SameValue(cur.Getter, p.Getter) || !SameValue(cur.Setter, p.Setter) {
				return fmt.Errorf("%w: cannot redefine %q", ErrNotConfigurable, name)
			}
		} else if !cur.Writable {
			if p.Writable || !SameValue(cur.Value, p.Value) {
				return fmt.Errorf("%w: cannot redefine %q", ErrNotWritable, name)
			}
		}
	}
	m.put(name, normalize(p))
	return nil
}

func normalize(p Property) Property {
	if p.IsAccessor() {
		p.Value = nil
		p.Writable = false
	}
	return p
}

func (m *Map) HasProperty(name string) bool {
	for o := m; o != nil; o = o.Prototype() {
		if _, ok := o.GetOwnProperty(name); ok {
			return true
		}
	}
	return false
}

// lookup finds name on m or its prototype chain.
func (m *Map) lookup(name string) (Property, bool) {
	for o := m; o != nil; o = o.Prototype() {
		if p, ok := o.GetOwnProperty(name); ok {
			return p, true
		}
	}
	return Property{}, false
}

func (m *Map) Get(name string) (any, bool) {
	p, ok := m.lookup(name)
	if !ok {
		return nil, false
	}
	if !p.IsAccessor() {
		return p.Value, true
	}
	if p.Getter == nil {
		return nil, true
	}
	v, err := call(p.Getter, m)
	if err != nil {
		panic(asThrown(err))
	}
	return v, true
}

// Set assigns v the way ordinary [[Set]] does with m as the receiver.
func (m *Map) Set(name string, v any) error {
	p, ok := m.lookup(name)
	if ok && p.IsAccessor() {
		if p.Setter == nil {
			return fmt.Errorf("%w: %q", ErrNoSetter, name)
		}
		_, err := call(p.Setter, m, v)
		return err
	}
	if ok && !p.Writable {
		return fmt.Errorf("%w: %q", ErrNotWritable, name)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if own, exists := m.props[name]; exists {
		own.Value = v
		m.props[name] = own
		return nil
	}
	if m.nonExtensible {
		return fmt.Errorf("%w: cannot add %q", ErrNotExtensible, name)
	}
	m.put(name, Data(v))
	return nil
}

func (m *Map) Delete(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.props[name]
	if !ok || !p.Configurable {
		return false
	}
	delete(m.props, name)
	for i, k := range m.keys {
		if k == name {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
	return true
}

func (m *Map) Ref() any { return m }

// PreventExtensions stops new properties from being added.
func (m *Map) PreventExtensions() {
	m.mu.Lock()
	m.nonExtensible = true
	m.mu.Unlock()
}

func (m *Map) IsExtensible() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return !m.nonExtensible
}

// Seal prevents extensions and marks every property non-configurable.
func (m *Map) Seal() {
	m.lock(false)
}

// Freeze seals m and makes data properties read-only.
func (m *Map) Freeze() {
	m.lock(true)
}

func (m *Map) lock(readOnly bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nonExtensible = true
	for k, p := range m.props {
		p.Configurable = false
		if readOnly && !p.IsAccessor() {
			p.Writable = false
		}
		m.props[k] = p
	}
}

// Export returns enumerable data properties as plain Go values.
func (m *Map) Export() map[string]any {
	return exportMap(m, make(map[*Map]bool))
}

func exportMap(m *Map, seen map[*Map]bool) map[string]any {
	seen[m] = true
	defer delete(seen, m)

	out := make(map[string]any)
	for _, k := range m.OwnKeys() {
		p, ok := m.GetOwnProperty(k)
		if !ok || !p.Enumerable || p.IsAccessor() {
			continue
		}
		if nested, ok := p.Value.(*Map); ok {
			if seen[nested] {
				continue
			}
			out[k] = exportMap(nested, seen)
			continue
		}
		out[k] = Export(p.Value)
	}
	return out
}

func asThrown(err error) *Thrown {
	var t *Thrown
	if errors.As(err, &t) {
		return t
	}
	return &Thrown{Value: err.Error(), Err: err}
}
