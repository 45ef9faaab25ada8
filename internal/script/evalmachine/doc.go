// Package evalmachine compiles and runs script code against three kinds of
// environment.
//
// Every public operation is one Config of the same evaluation routine:
//
//	Input   FreshSource | Precompiled
//	Target  Ambient | Fresh | Supplied
//	Output  ReturnValue | StoreForReuse
//
// Code is compiled before any environment is touched, so a syntax error
// never creates, enters or disposes one. A Fresh target is seeded from the
// sandbox, run, and on success copied back into the sandbox; it is detached,
// exited and disposed on every path. A Supplied target belongs to a
// sandbox.Context and is only entered and exited.
//
// Usage:
//
//	m := evalmachine.New(evalmachine.WithLogger(log))
//	sb := object.FromMap(map[string]any{"n": 1})
//	res, err := m.RunInNewContext("n += 1", sb)
//
//	s, err := m.NewScript("n * 2", evalmachine.Filename("double.js"))
//	ctx, err := m.CreateContext(sb)
//	res, err = s.RunInContext(ctx)
//
// Install exposes the same operations to scripts of the host environment as
// the Script and Context constructors.
package evalmachine
