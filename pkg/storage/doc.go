// Package storage holds the shared configuration for the billing
// platform's storage backends: PostgreSQL for billing records and
// invoices, S3 for rendered invoice artifacts, and Redis for the
// invoice read cache.
//
// The concrete clients live in pkg/storage/postgres.
package storage
