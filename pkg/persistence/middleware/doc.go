// Package middleware wraps a ports.ResultStore with transcript redaction and
// encryption at rest.
//
//	store = middleware.Chain(redis.New(...), redact, encrypt)
//
// Redaction runs before encryption, so sealed transcripts are masked too.
package middleware
