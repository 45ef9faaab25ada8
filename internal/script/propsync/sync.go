package propsync

import (
	"errors"
	"fmt"

	"github.com/GriffinCanCode/evalmachine/internal/script/object"
)

// Option configures a Sync call.
type Option func(*options)

type options struct {
	skip func(name string, p object.Property) bool
}

// Skip excludes properties for which fn returns true.
func Skip(fn func(name string, p object.Property) bool) Option {
	return func(o *options) {
		o.skip = fn
	}
}

// Sync copies every own property of source onto target, descriptor and all.
// A value that is source itself is rewritten to target's own reference. The
// copy is shallow. Properties target refuses are collected into the returned
// error and the copy continues with the next name.
func Sync(source, target object.Object, opts ...Option) error {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	names, err := ownKeys(source)
	if err != nil {
		return err
	}

	var errs []error
	for _, name := range names {
		if err := copyProperty(source, target, name, o.skip); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func copyProperty(source, target object.Object, name string, skip func(string, object.Property) bool) (err error) {
	defer recoverThrown(&err, name)

	p, ok := source.GetOwnProperty(name)
	if !ok {
		return nil
	}
	if skip != nil && skip(name, p) {
		return nil
	}
	if !p.IsAccessor() && object.Same(p.Value, source) {
		p.Value = target.Ref()
	}
	return target.DefineOwnProperty(name, p)
}

func ownKeys(o object.Object) (keys []string, err error) {
	defer recoverThrown(&err, "")
	return o.OwnKeys(), nil
}

// recoverThrown turns a script exception raised by a proxied object into an
// error.
func recoverThrown(err *error, name string) {
	x := recover()
	if x == nil {
		return
	}
	t, ok := x.(*object.Thrown)
	if !ok {
		panic(x)
	}
	if name == "" {
		*err = fmt.Errorf("list properties: %w", t)
		return
	}
	*err = fmt.Errorf("copy %q: %w", name, t)
}
