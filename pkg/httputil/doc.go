// Package httputil provides HTTP handler utilities: the response envelope
// all API endpoints share, JSON request parsing and common middleware.
package httputil
