// Package middleware provides HTTP middleware for the API server: request
// ids, request-scoped logging, Prometheus metrics, and body size limits.
package middleware

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey string
