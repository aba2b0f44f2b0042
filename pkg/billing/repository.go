package billing

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Repository provides read access to the billing records that feed
// invoice generation. Implementations must scope every query by tenant.
type Repository interface {
	Company(ctx context.Context, tenantID, companyID int64) (*Company, error)
	ActivePlans(ctx context.Context, tenantID, companyID int64, periodStart, periodEnd time.Time) ([]*BillingPlan, error)
	PlanServices(ctx context.Context, planID int64) ([]*PlanService, error)
	GetService(ctx context.Context, tenantID, serviceID int64) (*Service, error)
	ApprovedTimeEntries(ctx context.Context, tenantID, companyID int64, periodStart, periodEnd time.Time) ([]*TimeEntry, error)
	UsageRecords(ctx context.Context, tenantID, companyID int64, periodStart, periodEnd time.Time) ([]*UsageRecord, error)
	BucketUsages(ctx context.Context, planID int64) ([]*BucketUsage, error)
	TaxContext(ctx context.Context, tenantID, companyID int64) (*TaxContext, error)
	CompaniesWithActivePlans(ctx context.Context, tenantID int64, frequency BillingFrequency, periodStart, periodEnd time.Time) ([]int64, error)
}

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new PostgresRepository
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Company retrieves a company by ID for a tenant
func (r *PostgresRepository) Company(ctx context.Context, tenantID, companyID int64) (*Company, error) {
	query := `
		SELECT id, tenant_id, name, email, billing_email, billing_contact_name, billing_contact_email
		FROM companies
		WHERE tenant_id = $1 AND id = $2
	`
	c := &Company{}
	err := r.db.QueryRowContext(ctx, query, tenantID, companyID).Scan(
		&c.ID, &c.TenantID, &c.Name, &c.Email, &c.BillingEmail,
		&c.BillingContactName, &c.BillingContactEmail,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: id %d", ErrCompanyNotFound, companyID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	return c, nil
}

// ActivePlans retrieves the plans active for a company within [periodStart, periodEnd),
// ordered by plan assignment (insertion) order.
func (r *PostgresRepository) ActivePlans(ctx context.Context, tenantID, companyID int64, periodStart, periodEnd time.Time) ([]*BillingPlan, error) {
	query := `
		SELECT id, tenant_id, company_id, name, plan_type, frequency, start_date, end_date, created_at, updated_at
		FROM billing_plans
		WHERE tenant_id = $1 AND company_id = $2
		  AND start_date < $4
		  AND (end_date IS NULL OR end_date > $3)
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query, tenantID, companyID, periodStart, periodEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to list active plans: %w", err)
	}
	defer rows.Close()

	var plans []*BillingPlan
	for rows.Next() {
		p := &BillingPlan{}
		if err := rows.Scan(&p.ID, &p.TenantID, &p.CompanyID, &p.Name, &p.Type,
			&p.Frequency, &p.StartDate, &p.EndDate, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

// PlanServices retrieves the service assignments for a plan in assignment order
func (r *PostgresRepository) PlanServices(ctx context.Context, planID int64) ([]*PlanService, error) {
	query := `
		SELECT id, plan_id, service_id, quantity, custom_rate_cents
		FROM plan_services
		WHERE plan_id = $1
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query, planID)
	if err != nil {
		return nil, fmt.Errorf("failed to list plan services: %w", err)
	}
	defer rows.Close()

	var assignments []*PlanService
	for rows.Next() {
		ps := &PlanService{}
		if err := rows.Scan(&ps.ID, &ps.PlanID, &ps.ServiceID, &ps.Quantity, &ps.CustomRateCents); err != nil {
			return nil, fmt.Errorf("failed to scan plan service: %w", err)
		}
		assignments = append(assignments, ps)
	}
	return assignments, rows.Err()
}

// GetService retrieves a catalog service by ID
func (r *PostgresRepository) GetService(ctx context.Context, tenantID, serviceID int64) (*Service, error) {
	query := `
		SELECT id, tenant_id, name, default_rate_cents, unit
		FROM services
		WHERE tenant_id = $1 AND id = $2
	`
	s := &Service{}
	err := r.db.QueryRowContext(ctx, query, tenantID, serviceID).Scan(
		&s.ID, &s.TenantID, &s.Name, &s.DefaultRateCents, &s.Unit,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: id %d", ErrServiceNotFound, serviceID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get service: %w", err)
	}
	return s, nil
}

// ApprovedTimeEntries retrieves the approved time entries for a company
// with a work date within [periodStart, periodEnd).
func (r *PostgresRepository) ApprovedTimeEntries(ctx context.Context, tenantID, companyID int64, periodStart, periodEnd time.Time) ([]*TimeEntry, error) {
	query := `
		SELECT id, tenant_id, company_id, service_id, billable_minutes, approval_status, work_date
		FROM time_entries
		WHERE tenant_id = $1 AND company_id = $2
		  AND approval_status = 'approved'
		  AND work_date >= $3 AND work_date < $4
		ORDER BY work_date, id
	`
	rows, err := r.db.QueryContext(ctx, query, tenantID, companyID, periodStart, periodEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to list time entries: %w", err)
	}
	defer rows.Close()

	var entries []*TimeEntry
	for rows.Next() {
		e := &TimeEntry{}
		if err := rows.Scan(&e.ID, &e.TenantID, &e.CompanyID, &e.ServiceID,
			&e.BillableMinutes, &e.ApprovalStatus, &e.WorkDate); err != nil {
			return nil, fmt.Errorf("failed to scan time entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// UsageRecords retrieves usage records for a company within [periodStart, periodEnd)
func (r *PostgresRepository) UsageRecords(ctx context.Context, tenantID, companyID int64, periodStart, periodEnd time.Time) ([]*UsageRecord, error) {
	query := `
		SELECT id, tenant_id, company_id, service_id, quantity, usage_date
		FROM usage_records
		WHERE tenant_id = $1 AND company_id = $2
		  AND usage_date >= $3 AND usage_date < $4
		ORDER BY usage_date, id
	`
	rows, err := r.db.QueryContext(ctx, query, tenantID, companyID, periodStart, periodEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to list usage records: %w", err)
	}
	defer rows.Close()

	var records []*UsageRecord
	for rows.Next() {
		u := &UsageRecord{}
		if err := rows.Scan(&u.ID, &u.TenantID, &u.CompanyID, &u.ServiceID, &u.Quantity, &u.UsageDate); err != nil {
			return nil, fmt.Errorf("failed to scan usage record: %w", err)
		}
		records = append(records, u)
	}
	return records, rows.Err()
}

// BucketUsages retrieves bucket consumption rows for a plan
func (r *PostgresRepository) BucketUsages(ctx context.Context, planID int64) ([]*BucketUsage, error) {
	query := `
		SELECT id, plan_id, service_id, hours_used, total_hours, overage_rate_cents
		FROM bucket_usage
		WHERE plan_id = $1
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query, planID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bucket usage: %w", err)
	}
	defer rows.Close()

	var usages []*BucketUsage
	for rows.Next() {
		b := &BucketUsage{}
		if err := rows.Scan(&b.ID, &b.PlanID, &b.ServiceID, &b.HoursUsed, &b.TotalHours, &b.OverageRateCents); err != nil {
			return nil, fmt.Errorf("failed to scan bucket usage: %w", err)
		}
		usages = append(usages, b)
	}
	return usages, rows.Err()
}

// TaxContext resolves the tax configuration for a company. A missing
// settings row is not an error; it yields a zero-tax context.
func (r *PostgresRepository) TaxContext(ctx context.Context, tenantID, companyID int64) (*TaxContext, error) {
	taxCtx := &TaxContext{}

	query := `
		SELECT tr.percentage, cts.reverse_charge
		FROM company_tax_settings cts
		LEFT JOIN tax_rates tr ON tr.id = cts.tax_rate_id
		WHERE cts.tenant_id = $1 AND cts.company_id = $2
	`
	var pct sql.NullFloat64
	err := r.db.QueryRowContext(ctx, query, tenantID, companyID).Scan(&pct, &taxCtx.ReverseCharge)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to get tax settings: %w", err)
	}
	if pct.Valid {
		taxCtx.DefaultPercentage = &pct.Float64
	}

	overrideQuery := `
		SELECT tr.percentage
		FROM company_tax_rate_overrides o
		JOIN tax_rates tr ON tr.id = o.tax_rate_id
		WHERE o.tenant_id = $1 AND o.company_id = $2
	`
	var override float64
	err = r.db.QueryRowContext(ctx, overrideQuery, tenantID, companyID).Scan(&override)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to get tax rate override: %w", err)
	}
	if err == nil {
		taxCtx.OverridePercentage = &override
	}

	return taxCtx, nil
}

// CompaniesWithActivePlans returns the IDs of companies that have at
// least one plan of the given frequency active within the period.
func (r *PostgresRepository) CompaniesWithActivePlans(ctx context.Context, tenantID int64, frequency BillingFrequency, periodStart, periodEnd time.Time) ([]int64, error) {
	query := `
		SELECT DISTINCT company_id
		FROM billing_plans
		WHERE tenant_id = $1 AND frequency = $2
		  AND start_date < $4
		  AND (end_date IS NULL OR end_date > $3)
		ORDER BY company_id
	`
	rows, err := r.db.QueryContext(ctx, query, tenantID, frequency, periodStart, periodEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies with active plans: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan company id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ActiveTenants returns every tenant that currently has at least one
// billing plan. It feeds the scheduler's sweep loop and sits outside
// Repository because Repository methods are always tenant scoped.
func ActiveTenants(ctx context.Context, db *sql.DB) ([]int64, error) {
	query := `
		SELECT DISTINCT tenant_id
		FROM billing_plans
		ORDER BY tenant_id
	`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list active tenants: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan tenant id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
