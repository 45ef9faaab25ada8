package object

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapSetAndGet(t *testing.T) {
	m := NewMap()
	require.NoError(t, m.Set("a", 1))
	require.NoError(t, m.Set("b", "two"))

	v, ok := m.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = m.Get("missing")
	assert.False(t, ok)
	assert.Equal(t, []string{"a", "b"}, m.OwnKeys())
}

func TestFromMapNestsAndSorts(t *testing.T) {
	m := FromMap(map[string]any{
		"z":      1,
		"a":      true,
		"nested": map[string]any{"x": "y"},
	})

	assert.Equal(t, []string{"a", "nested", "z"}, m.OwnKeys())
	nested, ok := m.Get("nested")
	require.True(t, ok)
	require.IsType(t, &Map{}, nested)

	x, _ := nested.(*Map).Get("x")
	assert.Equal(t, "y", x)
}

func TestMapDefineRules(t *testing.T) {
	tests := []struct {
		name    string
		initial Property
		next    Property
		wantErr error
	}{
		{
			name:    "configurable can change anything",
			initial: Data(1),
			next:    Property{Value: 2, Writable: false, Enumerable: false, Configurable: false},
		},
		{
			name:    "non-configurable cannot become configurable",
			initial: Property{Value: 1, Writable: true},
			next:    Property{Value: 1, Writable: true, Configurable: true},
			wantErr: ErrNotConfigurable,
		},
		{
			name:    "non-configurable writable can change value",
			initial: Property{Value: 1, Writable: true},
			next:    Property{Value: 2, Writable: true},
		},
		{
			name:    "non-configurable writable can become read-only",
			initial: Property{Value: 1, Writable: true},
			next:    Property{Value: 1},
		},
		{
			name:    "read-only value is fixed",
			initial: Property{Value: 1},
			next:    Property{Value: 2},
			wantErr: ErrNotWritable,
		},
		{
			name:    "read-only cannot become writable",
			initial: Property{Value: 1},
			next:    Property{Value: 1, Writable: true},
			wantErr: ErrNotWritable,
		},
		{
			name:    "kind change needs configurable",
			initial: Property{Value: 1},
			next:    Property{Getter: Func(func(any, ...any) (any, error) { return 1, nil })},
			wantErr: ErrNotConfigurable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMap()
			require.NoError(t, m.DefineOwnProperty("k", tt.initial))

			err := m.DefineOwnProperty("k", tt.next)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			got, _ := m.GetOwnProperty("k")
			assert.Equal(t, tt.next, got)
		})
	}
}

func TestMapDelete(t *testing.T) {
	m := NewMap()
	require.NoError(t, m.Set("a", 1))
	require.NoError(t, m.DefineOwnProperty("fixed", Property{Value: 1}))

	assert.True(t, m.Delete("a"))
	assert.False(t, m.Delete("a"), "second delete finds nothing")
	assert.False(t, m.Delete("fixed"), "non-configurable survives")
	assert.False(t, m.Delete("missing"))
	assert.Equal(t, []string{"fixed"}, m.OwnKeys())
}

func TestMapFreezeAndSeal(t *testing.T) {
	m := FromMap(map[string]any{"a": 1})
	m.Freeze()

	assert.ErrorIs(t, m.Set("a", 2), ErrNotWritable)
	assert.ErrorIs(t, m.Set("b", 2), ErrNotExtensible)
	assert.False(t, m.Delete("a"))

	s := FromMap(map[string]any{"a": 1})
	s.Seal()
	assert.NoError(t, s.Set("a", 2))
	assert.ErrorIs(t, s.DefineOwnProperty("b", Data(1)), ErrNotExtensible)
}

func TestMapPrototypeChain(t *testing.T) {
	proto := FromMap(map[string]any{"inherited": "yes"})
	m := NewMap()
	require.NoError(t, m.SetPrototype(proto))

	assert.True(t, m.HasProperty("inherited"))
	v, ok := m.Get("inherited")
	assert.True(t, ok)
	assert.Equal(t, "yes", v)

	_, own := m.GetOwnProperty("inherited")
	assert.False(t, own)

	require.NoError(t, m.Set("inherited", "shadowed"))
	v, _ = proto.Get("inherited")
	assert.Equal(t, "yes", v, "assignment shadows instead of writing through")

	assert.Error(t, proto.SetPrototype(m))
}

func TestMapAccessors(t *testing.T) {
	var stored any
	m := NewMap()
	require.NoError(t, m.DefineOwnProperty("x", Property{
		Getter: Func(func(this any, _ ...any) (any, error) {
			assert.Same(t, m, this)
			return "got", nil
		}),
		Setter: Func(func(_ any, args ...any) (any, error) {
			stored = args[0]
			return nil, nil
		}),
		Enumerable:   true,
		Configurable: true,
	}))

	v, ok := m.Get("x")
	assert.True(t, ok)
	assert.Equal(t, "got", v)

	require.NoError(t, m.Set("x", 42))
	assert.Equal(t, 42, stored)

	require.NoError(t, m.DefineOwnProperty("ro", Property{
		Getter: Func(func(any, ...any) (any, error) { return 1, nil }),
	}))
	assert.ErrorIs(t, m.Set("ro", 2), ErrNoSetter)
}

func TestMapExport(t *testing.T) {
	m := FromMap(map[string]any{"a": 1, "n": map[string]any{"b": "c"}})
	require.NoError(t, m.DefineOwnProperty("hidden", Property{Value: 1}))
	require.NoError(t, m.Set("self", m))

	assert.Equal(t, map[string]any{
		"a": 1,
		"n": map[string]any{"b": "c"},
	}, m.Export())
}

func TestSame(t *testing.T) {
	a, b := NewMap(), NewMap()
	assert.True(t, Same(a, a))
	assert.False(t, Same(b, a))
	assert.False(t, Same(1, a))
	assert.False(t, Same(nil, a))
}
