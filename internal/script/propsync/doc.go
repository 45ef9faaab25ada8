// Package propsync copies own properties between host objects.
//
// Sync is how a disposable environment is made to look like the sandbox it
// was created for: the sandbox is copied onto the fresh global before a run
// and the global is copied back afterwards. Descriptors are preserved, so
// read-only and non-enumerable properties stay that way, and a property whose
// value is the source object itself ends up pointing at the target.
package propsync
