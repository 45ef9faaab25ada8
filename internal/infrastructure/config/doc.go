// Package config provides 12-factor configuration for the evaluation
// service.
//
// Configuration is loaded from environment variables with defaults. CLI
// flags in cmd/server override the loaded values.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host)
//   - Engine: environment pool, error display and default filename
//   - Logging: Log level and output format
//   - RateLimit: Per-IP rate limiting configuration
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Server running on %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//
// Environment Variables:
//   - PORT, HOST
//   - ENGINE_POOL_SIZE, ENGINE_DISPLAY_ERRORS, ENGINE_DEFAULT_FILENAME, ENGINE_MAX_CALL_STACK
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
package config
