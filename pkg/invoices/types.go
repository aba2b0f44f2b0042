package invoices

import (
	"context"
	"time"

	"github.com/platinummonkey/mspbill/pkg/billing"
)

// Status represents the lifecycle state of an invoice
type Status string

const (
	StatusDraft  Status = "draft"
	StatusSent   Status = "sent"
	StatusFailed Status = "failed"
)

// Invoice represents a single-currency invoice for one company and period.
// SubtotalCents is always the sum of line item net amounts and
// TotalCents is SubtotalCents plus TaxCents.
type Invoice struct {
	ID            int64      `json:"id"`
	TenantID      int64      `json:"tenant_id"`
	CompanyID     int64      `json:"company_id"`
	InvoiceNumber string     `json:"invoice_number"`
	PeriodStart   time.Time  `json:"period_start"`
	PeriodEnd     time.Time  `json:"period_end"`
	SubtotalCents int64      `json:"subtotal_cents"`
	TaxCents      int64      `json:"tax_cents"`
	TotalCents    int64      `json:"total_cents"`
	Currency      string     `json:"currency"`
	Status        Status     `json:"status"`
	FinalizedAt   *time.Time `json:"finalized_at,omitempty"`
	LineItems     []LineItem `json:"line_items,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// LineItem is a persisted invoice line. Line items are written once at
// generation time and never mutated afterwards.
type LineItem struct {
	ID             int64   `json:"id"`
	InvoiceID      int64   `json:"invoice_id"`
	Description    string  `json:"description"`
	Quantity       float64 `json:"quantity"`
	UnitPriceCents int64   `json:"unit_price_cents"`
	NetCents       int64   `json:"net_cents"`
	ServiceID      int64   `json:"service_id,omitempty"`
}

// Detail bundles an invoice with its company for the delivery pipeline.
type Detail struct {
	Invoice *Invoice         `json:"invoice"`
	Company *billing.Company `json:"company"`
}

// Service defines the interface for invoice operations
type Service interface {
	// GenerateInvoice aggregates billing records for the company over
	// [periodStart, periodEnd), computes tax, and persists a draft invoice
	// with its line items in one transaction.
	GenerateInvoice(ctx context.Context, tenantID, companyID int64, periodStart, periodEnd time.Time) (*Invoice, error)

	// FinalizeInvoice transitions a draft invoice to sent and stamps
	// finalized_at. Finalizing a missing or non-draft invoice is rejected.
	FinalizeInvoice(ctx context.Context, tenantID, invoiceID int64) (*Invoice, error)

	// GetInvoice retrieves an invoice with its line items.
	GetInvoice(ctx context.Context, tenantID, invoiceID int64) (*Invoice, error)

	// GetInvoiceDetail retrieves an invoice together with its company.
	GetInvoiceDetail(ctx context.Context, tenantID, invoiceID int64) (*Detail, error)

	// ListInvoices lists a company's invoices, newest first.
	ListInvoices(ctx context.Context, tenantID, companyID int64, limit int) ([]*Invoice, error)
}
