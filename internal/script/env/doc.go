// Package env provides execution environments for script code.
//
// An Environment is a goja runtime plus its intrinsic global object. The
// Manager hands environments out and keeps the execution stack:
//   - Enter pushes an environment, Exit pops it and must be called on the
//     current one (ErrNotCurrent otherwise)
//   - Detach swaps the installed global for an empty object
//   - Dispose releases the environment; it fails while entered and reports
//     ErrDisposed the second time
//
// Every Manager owns one host environment. It is the target of "run in this
// context" operations, is never pushed by them, and cannot be disposed.
//
// A Pool keeps prepared runtimes ready so that creating a fresh environment
// for a single run stays cheap. Pooled environments are used once.
//
// Lifecycle transitions are reported to an Observer; EventLog records them
// for tests and diagnostics.
package env
