package invoices

import "errors"

var (
	// ErrInvoiceNotFound is returned when an invoice does not exist for the tenant
	ErrInvoiceNotFound = errors.New("invoice not found")

	// ErrInvoiceNotDraft is returned when finalizing an invoice that already left draft
	ErrInvoiceNotDraft = errors.New("invoice is not in draft status")
)
