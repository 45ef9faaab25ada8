package evalmachine

import (
	"testing"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/evalmachine/internal/script/scripterr"
)

func installed(t *testing.T) *goja.Runtime {
	t.Helper()
	vm := goja.New()
	m := New(WithRuntime(vm))
	require.NoError(t, m.Install())
	return vm
}

func TestBinding(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want any
	}{
		{"alias", "NodeScript === Script", true},
		{"construct and run", "new Script('1 + 2').runInThisContext()", int64(3)},
		{"static this", "var hostVar = 4; Script.runInThisContext('hostVar * 2')", int64(8)},
		{"static new", "var sb = {a: 1}; Script.runInNewContext('a += 1; b = 2', sb); sb.a + sb.b", int64(4)},
		{"new without sandbox", "Script.runInNewContext('typeof hostVar')", "undefined"},
		{"context reuse", `
			var s = new Script('x = (typeof x === "number" ? x : 0) + 1');
			var c = new Context({});
			s.runInContext(c);
			s.runInContext(c)`, int64(2)},
		{"create context", `
			var sb = {};
			var c = Script.createContext(sb);
			Script.runInContext('y = 7', c);
			sb.y`, int64(7)},
		{"foreign result", "Script.runInNewContext('({v: [1, 2]})').v[1]", int64(2)},
		{"syntax error", "try { new Script('(') } catch (e) { e instanceof SyntaxError }", true},
		{"missing code", "try { Script.runInThisContext() } catch (e) { e instanceof TypeError && e.message }", scripterr.MsgNeedsCode},
		{"missing context", "try { Script.runInContext('1', {}) } catch (e) { e.message }", scripterr.MsgNeedsContext},
		{"not a method", "try { Script.prototype.runInThisContext.call({}) } catch (e) { e.message }", scripterr.MsgNotMethod},
		{"context arity", "try { new Context() } catch (e) { e.message }", scripterr.MsgContextArity},
		{"context object", "try { new Context(1) } catch (e) { e.message }", scripterr.MsgContextNotObject},
		{"thrown identity", "var o = {}; try { Script.runInThisContext('throw o') } catch (e) { e === o }", true},
		{"foreign exception", "try { Script.runInNewContext('throw new Error(\"boom\")') } catch (e) { e.message }", "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vm := installed(t)
			v, err := vm.RunString(tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.Export())
		})
	}
}

func TestBindingUncaught(t *testing.T) {
	vm := installed(t)

	_, err := vm.RunString("Script.runInNewContext('throw new TypeError(\"inner\")')")
	var exc *goja.Exception
	require.ErrorAs(t, err, &exc)
	assert.Contains(t, exc.Error(), "inner")
}
