package invoices

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/platinummonkey/mspbill/pkg/billing"
	"github.com/platinummonkey/mspbill/pkg/observability"
)

// DefaultCurrency is the single currency all invoices are issued in.
const DefaultCurrency = "usd"

// PostgresService implements the invoice Service interface using PostgreSQL
type PostgresService struct {
	db         *sql.DB
	repo       billing.Repository
	aggregator *billing.Aggregator
	taxCalc    billing.TaxCalculator
	logger     *observability.Logger

	// generate collapses concurrent GenerateInvoice calls for the same
	// (tenant, company, period) into a single execution so the same
	// request cannot produce duplicate draft invoices.
	generate singleflight.Group
}

// NewPostgresService creates a new PostgresService
func NewPostgresService(db *sql.DB, repo billing.Repository, taxCalc billing.TaxCalculator, logger *observability.Logger) *PostgresService {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &PostgresService{
		db:         db,
		repo:       repo,
		aggregator: billing.NewAggregator(repo),
		taxCalc:    taxCalc,
		logger:     logger,
	}
}

// GenerateInvoice aggregates billing records into a draft invoice.
// Everything is computed before anything is written; the invoice and its
// line items are persisted in a single transaction.
func (s *PostgresService) GenerateInvoice(ctx context.Context, tenantID, companyID int64, periodStart, periodEnd time.Time) (*Invoice, error) {
	key := fmt.Sprintf("%d:%d:%d:%d", tenantID, companyID, periodStart.Unix(), periodEnd.Unix())
	v, err, _ := s.generate.Do(key, func() (interface{}, error) {
		return s.generateInvoice(ctx, tenantID, companyID, periodStart, periodEnd)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Invoice), nil
}

func (s *PostgresService) generateInvoice(ctx context.Context, tenantID, companyID int64, periodStart, periodEnd time.Time) (*Invoice, error) {
	if !periodStart.Before(periodEnd) {
		return nil, billing.ErrInvalidPeriod
	}

	company, err := s.repo.Company(ctx, tenantID, companyID)
	if err != nil {
		return nil, err
	}

	items, err := s.aggregator.AggregateLineItems(ctx, tenantID, companyID, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}

	subtotal := billing.SumNetCents(items)

	taxCtx, err := s.repo.TaxContext(ctx, tenantID, companyID)
	if err != nil {
		return nil, err
	}
	tax := s.taxCalc.CalculateTax(subtotal, taxCtx)

	invoice := &Invoice{
		TenantID:      tenantID,
		CompanyID:     companyID,
		PeriodStart:   periodStart,
		PeriodEnd:     periodEnd,
		SubtotalCents: subtotal,
		TaxCents:      tax,
		TotalCents:    subtotal + tax,
		Currency:      DefaultCurrency,
		Status:        StatusDraft,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	insertQuery := `
		INSERT INTO invoices (tenant_id, company_id, period_start, period_end,
			subtotal_cents, tax_cents, total_cents, currency, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`
	err = tx.QueryRowContext(ctx, insertQuery,
		invoice.TenantID, invoice.CompanyID, invoice.PeriodStart, invoice.PeriodEnd,
		invoice.SubtotalCents, invoice.TaxCents, invoice.TotalCents,
		invoice.Currency, invoice.Status).
		Scan(&invoice.ID, &invoice.CreatedAt, &invoice.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create invoice: %w", err)
	}

	invoice.InvoiceNumber = fmt.Sprintf("INV-%d-%06d", tenantID, invoice.ID)
	if _, err := tx.ExecContext(ctx,
		`UPDATE invoices SET invoice_number = $1 WHERE id = $2`,
		invoice.InvoiceNumber, invoice.ID); err != nil {
		return nil, fmt.Errorf("failed to set invoice number: %w", err)
	}

	itemQuery := `
		INSERT INTO invoice_line_items (invoice_id, description, quantity, unit_price_cents, net_cents, service_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	for _, item := range items {
		line := LineItem{
			InvoiceID:      invoice.ID,
			Description:    item.Description,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			NetCents:       item.NetCents,
			ServiceID:      item.ServiceID,
		}
		err := tx.QueryRowContext(ctx, itemQuery,
			line.InvoiceID, line.Description, line.Quantity,
			line.UnitPriceCents, line.NetCents, line.ServiceID).
			Scan(&line.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to create line item: %w", err)
		}
		invoice.LineItems = append(invoice.LineItems, line)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit invoice: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"tenant_id":      tenantID,
		"company":        company.Name,
		"invoice_number": invoice.InvoiceNumber,
		"total_cents":    invoice.TotalCents,
		"line_items":     len(invoice.LineItems),
	}).Info("generated draft invoice")

	return invoice, nil
}

// FinalizeInvoice transitions a draft invoice to sent
func (s *PostgresService) FinalizeInvoice(ctx context.Context, tenantID, invoiceID int64) (*Invoice, error) {
	query := `
		UPDATE invoices
		SET status = $1, finalized_at = NOW(), updated_at = NOW()
		WHERE tenant_id = $2 AND id = $3 AND status = $4
		RETURNING id, tenant_id, company_id, invoice_number, period_start, period_end,
			subtotal_cents, tax_cents, total_cents, currency, status, finalized_at,
			created_at, updated_at
	`
	invoice := &Invoice{}
	err := s.db.QueryRowContext(ctx, query, StatusSent, tenantID, invoiceID, StatusDraft).Scan(
		&invoice.ID, &invoice.TenantID, &invoice.CompanyID, &invoice.InvoiceNumber,
		&invoice.PeriodStart, &invoice.PeriodEnd, &invoice.SubtotalCents,
		&invoice.TaxCents, &invoice.TotalCents, &invoice.Currency, &invoice.Status,
		&invoice.FinalizedAt, &invoice.CreatedAt, &invoice.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		// Distinguish a missing invoice from one that already left draft.
		var status Status
		err := s.db.QueryRowContext(ctx,
			`SELECT status FROM invoices WHERE tenant_id = $1 AND id = $2`,
			tenantID, invoiceID).Scan(&status)
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: id %d", ErrInvoiceNotFound, invoiceID)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to check invoice status: %w", err)
		}
		return nil, fmt.Errorf("%w: id %d has status %q", ErrInvoiceNotDraft, invoiceID, status)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to finalize invoice: %w", err)
	}

	items, err := s.lineItems(ctx, invoice.ID)
	if err != nil {
		return nil, err
	}
	invoice.LineItems = items

	s.logger.WithFields(map[string]interface{}{
		"tenant_id":      tenantID,
		"invoice_number": invoice.InvoiceNumber,
	}).Info("finalized invoice")

	return invoice, nil
}

// GetInvoice retrieves an invoice with its line items
func (s *PostgresService) GetInvoice(ctx context.Context, tenantID, invoiceID int64) (*Invoice, error) {
	query := `
		SELECT id, tenant_id, company_id, invoice_number, period_start, period_end,
			subtotal_cents, tax_cents, total_cents, currency, status, finalized_at,
			created_at, updated_at
		FROM invoices
		WHERE tenant_id = $1 AND id = $2
	`
	invoice := &Invoice{}
	err := s.db.QueryRowContext(ctx, query, tenantID, invoiceID).Scan(
		&invoice.ID, &invoice.TenantID, &invoice.CompanyID, &invoice.InvoiceNumber,
		&invoice.PeriodStart, &invoice.PeriodEnd, &invoice.SubtotalCents,
		&invoice.TaxCents, &invoice.TotalCents, &invoice.Currency, &invoice.Status,
		&invoice.FinalizedAt, &invoice.CreatedAt, &invoice.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: id %d", ErrInvoiceNotFound, invoiceID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}

	items, err := s.lineItems(ctx, invoice.ID)
	if err != nil {
		return nil, err
	}
	invoice.LineItems = items
	return invoice, nil
}

// GetInvoiceDetail retrieves an invoice together with its company
func (s *PostgresService) GetInvoiceDetail(ctx context.Context, tenantID, invoiceID int64) (*Detail, error) {
	invoice, err := s.GetInvoice(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}
	company, err := s.repo.Company(ctx, tenantID, invoice.CompanyID)
	if err != nil {
		return nil, err
	}
	return &Detail{Invoice: invoice, Company: company}, nil
}

// ListInvoices lists a company's invoices, newest first, without line items
func (s *PostgresService) ListInvoices(ctx context.Context, tenantID, companyID int64, limit int) ([]*Invoice, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, tenant_id, company_id, invoice_number, period_start, period_end,
			subtotal_cents, tax_cents, total_cents, currency, status, finalized_at,
			created_at, updated_at
		FROM invoices
		WHERE tenant_id = $1 AND company_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`
	rows, err := s.db.QueryContext(ctx, query, tenantID, companyID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	var result []*Invoice
	for rows.Next() {
		invoice := &Invoice{}
		if err := rows.Scan(
			&invoice.ID, &invoice.TenantID, &invoice.CompanyID, &invoice.InvoiceNumber,
			&invoice.PeriodStart, &invoice.PeriodEnd, &invoice.SubtotalCents,
			&invoice.TaxCents, &invoice.TotalCents, &invoice.Currency, &invoice.Status,
			&invoice.FinalizedAt, &invoice.CreatedAt, &invoice.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		result = append(result, invoice)
	}
	return result, rows.Err()
}

func (s *PostgresService) lineItems(ctx context.Context, invoiceID int64) ([]LineItem, error) {
	query := `
		SELECT id, invoice_id, description, quantity, unit_price_cents, net_cents, service_id
		FROM invoice_line_items
		WHERE invoice_id = $1
		ORDER BY id
	`
	rows, err := s.db.QueryContext(ctx, query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list line items: %w", err)
	}
	defer rows.Close()

	var items []LineItem
	for rows.Next() {
		var item LineItem
		if err := rows.Scan(&item.ID, &item.InvoiceID, &item.Description,
			&item.Quantity, &item.UnitPriceCents, &item.NetCents, &item.ServiceID); err != nil {
			return nil, fmt.Errorf("failed to scan line item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
