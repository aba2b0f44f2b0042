// Package invoices persists and serves invoices: draft generation from
// aggregated billing records, finalization to the sent state, and
// lookups for the delivery pipeline. Generation is all-or-nothing; a
// failed attempt never leaves a partially written invoice behind.
package invoices
