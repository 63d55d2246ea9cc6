// Package observability builds the process logger and the HTTP request
// logging middleware.
package observability
