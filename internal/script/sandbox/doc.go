// Package sandbox binds execution environments to host sandbox objects.
//
// A Context owns one environment whose global object is replaced by an
// interception layer (a goja proxy). Global variable traffic from code
// running in the environment is redirected:
//   - reads consult the sandbox, then the environment's intrinsic global
//   - writes always land on the sandbox
//   - existence checks succeed if either side has the name
//   - deletes remove from the sandbox, falling back to the intrinsic global
//   - enumeration lists the sandbox only
//
// References to the sandbox or to the intrinsic global read through the
// layer come back as the installed global, so `this`, `globalThis` and a
// sandbox property pointing at the sandbox are all the same object inside
// the environment.
//
// Top-level var and function declarations define properties on the sandbox.
// Declarations are non-configurable, and the proxy target keeps a mirror of
// every non-configurable property it reports so the engine's proxy checks
// hold.
//
// The layer reaches the Context's state only through a link cell. Close, or
// the cleanup registered for an unreachable Context, clears the cell before
// disposing the environment, so a late call into the layer sees an unbound
// sandbox instead of a released one.
package sandbox
