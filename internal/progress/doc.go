// Package progress holds the counter-tracking domain: the singleton progress
// document, the categories it tracks, the error taxonomy surfaced to the HTTP
// layer, and the Service that implements get, increment, and reset on top of a
// pluggable Store. Implementations of Store live in internal/storage; this
// package must not import database drivers or concrete clients.
package progress
