package evalmachine

import (
	"fmt"

	"github.com/dop251/goja"

	"github.com/GriffinCanCode/evalmachine/internal/script/object"
	"github.com/GriffinCanCode/evalmachine/internal/script/sandbox"
	"github.com/GriffinCanCode/evalmachine/internal/script/scripterr"
)

// DefaultFilename names code run without an explicit filename.
const DefaultFilename = "evalmachine.<anonymous>"

// call is the resolved positional argument list of one evaluation.
type call struct {
	code          string
	sandbox       object.Object    // Fresh
	context       *sandbox.Context // Supplied
	filename      string
	displayErrors bool
}

// resolveArgs validates args against cfg. Positions shift with the active
// axes: code first for FreshSource, then the sandbox or context, then the
// filename. A trailing boolean true turns on displayErrors.
func resolveArgs(cfg Config, defaultFilename string, args []any) (*call, error) {
	c := &call{filename: defaultFilename}

	if cfg.Input == FreshSource {
		if len(args) < 1 {
			return nil, scripterr.Argument(scripterr.MsgNeedsCode)
		}
		c.code = toString(args[0])
	}

	si := cfg.sandboxIndex()
	switch cfg.Target {
	case Supplied:
		ctx, ok := arg(args, si).(*sandbox.Context)
		if !ok || ctx == nil {
			return nil, scripterr.Argument(scripterr.MsgNeedsContext)
		}
		c.context = ctx
	case Fresh:
		c.sandbox = toObject(arg(args, si))
	}

	if name, ok := toFilename(arg(args, cfg.filenameIndex())); ok {
		c.filename = name
	}
	if len(args) > 0 {
		c.displayErrors = isTrue(args[len(args)-1])
	}
	return c, nil
}

func arg(args []any, i int) any {
	if i < len(args) {
		return args[i]
	}
	return nil
}

func toString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case goja.Value:
		return x.String()
	case nil:
		return "undefined"
	}
	return fmt.Sprint(v)
}

// toFilename converts a filename argument to a string. Booleans belong to
// displayErrors, and undefined or null leave the default name.
func toFilename(v any) (string, bool) {
	switch x := v.(type) {
	case nil, bool:
		return "", false
	case string:
		return x, true
	case goja.Value:
		if goja.IsUndefined(x) || goja.IsNull(x) {
			return "", false
		}
		if _, ok := x.Export().(bool); ok {
			return "", false
		}
		return x.String(), true
	case *sandbox.Context, object.Object, object.Ref:
		return "", false
	}
	return fmt.Sprint(v), true
}

func isTrue(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case goja.Value:
		b, ok := x.Export().(bool)
		return ok && b
	}
	return false
}

// toObject turns a sandbox argument into a host object. Anything that is not
// an object yields a new empty Map.
func toObject(v any) object.Object {
	switch x := v.(type) {
	case object.Object:
		if !object.IsNil(x) {
			return x
		}
	case map[string]any:
		return object.FromMap(x)
	case object.Ref:
		if x.Object() != nil {
			return x.Realm().Wrap(x.Object())
		}
	}
	return object.NewMap()
}
