// Package middleware wraps the metrics listener with request logging in
// W3C Extended Log Format and request metrics.
package middleware
