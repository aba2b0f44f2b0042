// Package postgres provides the concrete storage clients: a
// PostgreSQL connection manager with optional read replicas, an S3
// artifact store for rendered invoices, and a Redis client for the
// invoice cache. Storage operations emit OpenTelemetry spans.
package postgres
