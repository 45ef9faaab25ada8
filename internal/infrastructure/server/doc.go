// Package server assembles the evaluation service: the configured runner,
// the gin router with its middleware, the REST and REPL handlers, and the
// Prometheus endpoint.
//
// Routes:
//
//	GET    /                      service identity
//	GET    /health                runner counts
//	GET    /stats                 runner counts and metrics snapshot
//	GET    /metrics               Prometheus exposition
//	POST   /run                   compile and run code
//	POST   /contexts              create a context
//	GET    /contexts              list contexts
//	GET    /contexts/:id          describe a context
//	DELETE /contexts/:id          close a context
//	POST   /contexts/:id/run      run code in a context
//	GET    /contexts/:id/repl     WebSocket REPL bound to a context
//	POST   /scripts               compile and store a script
//	GET    /scripts               list scripts
//	DELETE /scripts/:id           forget a script
//	POST   /scripts/:id/run       run a stored script
package server
