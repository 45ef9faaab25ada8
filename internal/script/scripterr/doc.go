// Package scripterr defines the errors returned by script evaluation.
//
// ArgumentError and MisuseError carry fixed messages. CompileError carries a
// source location and can render the offending line. RuntimeError wraps the
// engine exception and exposes the thrown value. KindOf maps any error onto
// one of these kinds, or "internal".
package scripterr
