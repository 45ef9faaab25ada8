// Package main is the entry point of the evaluation server.
//
// The server keeps sandbox contexts and compiled scripts addressable by id
// and runs code against them over a REST API and a WebSocket REPL.
//
// Configuration:
//   - Environment variables (PORT, ENGINE_POOL_SIZE, LOG_LEVEL, ...)
//   - CLI flags (override env vars)
//
// Usage:
//
//	./server -port 8000 -pool 8
//
//	# Development mode (colored logs, debug level)
//	./server -dev -log-level debug
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
