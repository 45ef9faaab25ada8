// Package runner holds sandbox contexts and compiled scripts under ids so
// that they outlive a single request.
//
// Every operation takes the runner's mutex, so one Runner can serve
// concurrent HTTP and websocket clients while its Machine only ever runs on
// one goroutine at a time. Contexts get their own captured console;
// host-environment runs share the runner's console.
package runner
