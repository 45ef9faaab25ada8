// Package utils holds request validation and source digests shared by the
// API handlers.
package utils
