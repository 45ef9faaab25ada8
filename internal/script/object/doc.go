// Package object is the host-side object model shared by sandboxes, property
// sync and the evaluation machine.
//
// Two implementations of Object exist:
//   - Map: a Go-native property bag with full descriptors, extensibility,
//     sealing and freezing
//   - JSObject: an object owned by a goja runtime, reached through a Realm
//
// Values crossing the boundary follow one convention. Primitives travel as
// goja.Value, engine objects as Ref, Maps as themselves. Each goja runtime
// has exactly one Realm; objects from other realms and Maps appear inside it
// as live views that convert back to their origin when they leave, so
// identity survives a round trip:
//
//	realm := object.NewRealm(goja.New())
//	sb := object.NewMap()
//	v := realm.ToValue(sb)            // dynamic view
//	same := realm.FromValue(v) == sb  // true
package object
