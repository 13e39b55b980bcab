// Package middleware provides the HTTP middleware stack of the web server:
// trace ID propagation, request logging, OpenTelemetry spans and metrics,
// rate limiting, security headers and request body validation.
package middleware
