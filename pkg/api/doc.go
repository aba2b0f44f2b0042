// Package api implements the HTTP surface of the billing service.
//
// All business routes live under /api/v1 and require an X-Tenant-ID
// header; the tenant id scopes every lookup and mutation. Invoice
// routes generate, finalize and read invoices synchronously, while the
// send-invoices job route starts the asynchronous delivery pipeline
// and returns immediately with a pollable job record.
package api
