package propsync

import (
	"testing"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/evalmachine/internal/script/object"
)

func TestSyncCopiesDescriptors(t *testing.T) {
	src := object.NewMap()
	require.NoError(t, src.Set("a", 1))
	require.NoError(t, src.DefineOwnProperty("hidden", object.Property{Value: "h", Writable: true}))
	getter := object.Func(func(any, ...any) (any, error) { return "g", nil })
	require.NoError(t, src.DefineOwnProperty("acc", object.Property{Getter: getter, Enumerable: true, Configurable: true}))

	dst := object.NewMap()
	require.NoError(t, Sync(src, dst))

	assert.Equal(t, []string{"a", "hidden", "acc"}, dst.OwnKeys())

	hidden, ok := dst.GetOwnProperty("hidden")
	require.True(t, ok)
	assert.False(t, hidden.Enumerable)
	assert.False(t, hidden.Configurable)
	assert.True(t, hidden.Writable)

	v, ok := dst.Get("acc")
	require.True(t, ok)
	assert.Equal(t, "g", v)
}

func TestSyncRewritesSelfReference(t *testing.T) {
	src := object.NewMap()
	require.NoError(t, src.Set("self", src))
	nested := object.NewMap()
	require.NoError(t, src.Set("nested", nested))

	dst := object.NewMap()
	require.NoError(t, Sync(src, dst))

	self, _ := dst.Get("self")
	assert.Same(t, dst, self)

	n, _ := dst.Get("nested")
	assert.Same(t, nested, n, "nested objects are shared, not cloned")
}

func TestSyncContinuesPastRejectedProperties(t *testing.T) {
	src := object.FromMap(map[string]any{"a": 1, "b": 2, "c": 3, "d": 4})

	dst := object.NewMap()
	require.NoError(t, dst.DefineOwnProperty("b", object.Property{Value: "fixed"}))
	require.NoError(t, dst.DefineOwnProperty("c", object.Data(0)))
	dst.PreventExtensions()

	err := Sync(src, dst)
	require.Error(t, err)
	assert.ErrorIs(t, err, object.ErrNotExtensible)
	assert.ErrorIs(t, err, object.ErrNotConfigurable)

	c, _ := dst.Get("c")
	assert.Equal(t, 3, c, "existing properties are still copied")
	b, _ := dst.Get("b")
	assert.Equal(t, "fixed", b)
	assert.ElementsMatch(t, []string{"b", "c"}, dst.OwnKeys())
}

func TestSyncSkip(t *testing.T) {
	src := object.FromMap(map[string]any{"keep": 1, "drop": 2})
	dst := object.NewMap()

	require.NoError(t, Sync(src, dst, Skip(func(name string, _ object.Property) bool {
		return name == "drop"
	})))
	assert.Equal(t, []string{"keep"}, dst.OwnKeys())
}

func TestSyncIntoRuntimeGlobal(t *testing.T) {
	vm := goja.New()
	realm := object.NewRealm(vm)
	global := realm.Wrap(vm.GlobalObject())

	src := object.FromMap(map[string]any{"answer": 42})
	require.NoError(t, src.Set("me", src))
	require.NoError(t, Sync(src, global))

	v, err := vm.RunString("answer + (me === globalThis ? 1 : 0)")
	require.NoError(t, err)
	assert.Equal(t, int64(43), v.Export())

	back := object.NewMap()
	_, err = vm.RunString("var added = 'new'")
	require.NoError(t, err)
	require.NoError(t, Sync(global, back, Skip(func(name string, _ object.Property) bool {
		return name != "added" && name != "me"
	})))

	added, _ := back.Get("added")
	assert.Equal(t, "new", object.Export(added))
	me, _ := back.Get("me")
	assert.Same(t, back, me)
}
