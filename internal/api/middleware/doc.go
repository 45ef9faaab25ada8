// Package middleware provides the gin middleware stack of the evaluation
// server.
//
//   - CORS: cross-origin access with configurable origins
//   - RateLimit: per-IP token buckets, idle clients are evicted
//   - GlobalRateLimit: one token bucket for every client
//   - Logger: one structured log line per request
//
// Example:
//
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
package middleware
