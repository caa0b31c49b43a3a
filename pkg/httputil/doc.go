// Package httputil provides the JSON request and response conventions shared
// by every handler: a single envelope for errors, status-specific writers,
// and body parsing that tolerates a second read of a peeked field.
package httputil
