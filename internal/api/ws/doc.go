// Package ws serves interactive REPL sessions over WebSocket.
//
// A session is bound to one runner context. Every eval frame runs in that
// context, so bindings persist between frames, and the reply carries the
// value, the context's sandbox and console output.
//
//	-> {"type":"eval","id":"1","code":"n = (n || 0) + 1"}
//	<- {"type":"result","id":"1","value":1,"sandbox":{"n":1}}
//	-> {"type":"ping"}
//	<- {"type":"pong","id":"<generated>"}
//
// Failed evaluations reply with {"type":"error","kind":...}; the session
// stays open.
package ws
