package billing

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// GetMigrations returns all billing schema migrations
func GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create companies table",
			SQL: `
				CREATE TABLE IF NOT EXISTS companies (
					id BIGSERIAL PRIMARY KEY,
					tenant_id BIGINT NOT NULL,
					name VARCHAR(255) NOT NULL,
					email VARCHAR(255) NOT NULL DEFAULT '',
					billing_email VARCHAR(255) NOT NULL DEFAULT '',
					billing_contact_name VARCHAR(255) NOT NULL DEFAULT '',
					billing_contact_email VARCHAR(255) NOT NULL DEFAULT '',
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_companies_tenant_id ON companies(tenant_id);
			`,
		},
		{
			Version:     2,
			Description: "Create services table",
			SQL: `
				CREATE TABLE IF NOT EXISTS services (
					id BIGSERIAL PRIMARY KEY,
					tenant_id BIGINT NOT NULL,
					name VARCHAR(255) NOT NULL,
					default_rate_cents BIGINT,
					unit VARCHAR(50) NOT NULL DEFAULT '',
					created_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_services_tenant_id ON services(tenant_id);
			`,
		},
		{
			Version:     3,
			Description: "Create billing_plans and plan_services tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS billing_plans (
					id BIGSERIAL PRIMARY KEY,
					tenant_id BIGINT NOT NULL,
					company_id BIGINT NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
					name VARCHAR(255) NOT NULL,
					plan_type VARCHAR(20) NOT NULL,
					frequency VARCHAR(20) NOT NULL DEFAULT 'monthly',
					start_date TIMESTAMP NOT NULL,
					end_date TIMESTAMP,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_billing_plans_company ON billing_plans(tenant_id, company_id);

				CREATE TABLE IF NOT EXISTS plan_services (
					id BIGSERIAL PRIMARY KEY,
					plan_id BIGINT NOT NULL REFERENCES billing_plans(id) ON DELETE CASCADE,
					service_id BIGINT NOT NULL REFERENCES services(id),
					quantity BIGINT NOT NULL DEFAULT 1,
					custom_rate_cents BIGINT
				);

				CREATE INDEX IF NOT EXISTS idx_plan_services_plan_id ON plan_services(plan_id);
			`,
		},
		{
			Version:     4,
			Description: "Create time_entries, usage_records and bucket_usage tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS time_entries (
					id BIGSERIAL PRIMARY KEY,
					tenant_id BIGINT NOT NULL,
					company_id BIGINT NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
					service_id BIGINT NOT NULL REFERENCES services(id),
					billable_minutes BIGINT NOT NULL DEFAULT 0,
					approval_status VARCHAR(20) NOT NULL DEFAULT 'draft',
					work_date TIMESTAMP NOT NULL
				);

				CREATE INDEX IF NOT EXISTS idx_time_entries_company_date
					ON time_entries(tenant_id, company_id, work_date);

				CREATE TABLE IF NOT EXISTS usage_records (
					id BIGSERIAL PRIMARY KEY,
					tenant_id BIGINT NOT NULL,
					company_id BIGINT NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
					service_id BIGINT NOT NULL REFERENCES services(id),
					quantity BIGINT NOT NULL DEFAULT 0,
					usage_date TIMESTAMP NOT NULL
				);

				CREATE INDEX IF NOT EXISTS idx_usage_records_company_date
					ON usage_records(tenant_id, company_id, usage_date);

				CREATE TABLE IF NOT EXISTS bucket_usage (
					id BIGSERIAL PRIMARY KEY,
					plan_id BIGINT NOT NULL REFERENCES billing_plans(id) ON DELETE CASCADE,
					service_id BIGINT NOT NULL REFERENCES services(id),
					hours_used DOUBLE PRECISION NOT NULL DEFAULT 0,
					total_hours DOUBLE PRECISION NOT NULL DEFAULT 0,
					overage_rate_cents BIGINT NOT NULL DEFAULT 0
				);

				CREATE INDEX IF NOT EXISTS idx_bucket_usage_plan_id ON bucket_usage(plan_id);
			`,
		},
		{
			Version:     5,
			Description: "Create tax configuration tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS tax_rates (
					id BIGSERIAL PRIMARY KEY,
					tenant_id BIGINT NOT NULL,
					name VARCHAR(255) NOT NULL,
					percentage DOUBLE PRECISION NOT NULL DEFAULT 0
				);

				CREATE TABLE IF NOT EXISTS company_tax_settings (
					company_id BIGINT NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
					tenant_id BIGINT NOT NULL,
					tax_rate_id BIGINT REFERENCES tax_rates(id),
					reverse_charge BOOLEAN NOT NULL DEFAULT FALSE,
					PRIMARY KEY (tenant_id, company_id)
				);

				CREATE TABLE IF NOT EXISTS company_tax_rate_overrides (
					company_id BIGINT NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
					tenant_id BIGINT NOT NULL,
					tax_rate_id BIGINT NOT NULL REFERENCES tax_rates(id),
					PRIMARY KEY (tenant_id, company_id)
				);
			`,
		},
		{
			Version:     6,
			Description: "Create invoices and invoice_line_items tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS invoices (
					id BIGSERIAL PRIMARY KEY,
					tenant_id BIGINT NOT NULL,
					company_id BIGINT NOT NULL REFERENCES companies(id),
					invoice_number VARCHAR(64) NOT NULL DEFAULT '',
					period_start TIMESTAMP NOT NULL,
					period_end TIMESTAMP NOT NULL,
					subtotal_cents BIGINT NOT NULL DEFAULT 0,
					tax_cents BIGINT NOT NULL DEFAULT 0,
					total_cents BIGINT NOT NULL DEFAULT 0,
					currency VARCHAR(8) NOT NULL DEFAULT 'usd',
					status VARCHAR(20) NOT NULL DEFAULT 'draft',
					finalized_at TIMESTAMP,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_invoices_company ON invoices(tenant_id, company_id);

				CREATE TABLE IF NOT EXISTS invoice_line_items (
					id BIGSERIAL PRIMARY KEY,
					invoice_id BIGINT NOT NULL REFERENCES invoices(id) ON DELETE CASCADE,
					description TEXT NOT NULL,
					quantity DOUBLE PRECISION NOT NULL,
					unit_price_cents BIGINT NOT NULL,
					net_cents BIGINT NOT NULL,
					service_id BIGINT
				);

				CREATE INDEX IF NOT EXISTS idx_invoice_line_items_invoice_id
					ON invoice_line_items(invoice_id);
			`,
		},
		{
			Version:     7,
			Description: "Create jobs and job_steps tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS jobs (
					id UUID PRIMARY KEY,
					tenant_id BIGINT NOT NULL,
					job_type VARCHAR(50) NOT NULL,
					status VARCHAR(20) NOT NULL DEFAULT 'processing',
					invoice_ids BIGINT[] NOT NULL DEFAULT '{}',
					error_message TEXT NOT NULL DEFAULT '',
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					started_at TIMESTAMP,
					completed_at TIMESTAMP
				);

				CREATE INDEX IF NOT EXISTS idx_jobs_tenant_id ON jobs(tenant_id);

				CREATE TABLE IF NOT EXISTS job_steps (
					id BIGSERIAL PRIMARY KEY,
					job_id UUID NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
					tenant_id BIGINT NOT NULL,
					step_name VARCHAR(100) NOT NULL,
					step_type VARCHAR(50) NOT NULL,
					invoice_id BIGINT NOT NULL,
					status VARCHAR(20) NOT NULL,
					detail TEXT NOT NULL DEFAULT '',
					file_id VARCHAR(255) NOT NULL DEFAULT '',
					recipient_email VARCHAR(255) NOT NULL DEFAULT '',
					created_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_job_steps_job_id ON job_steps(job_id);
			`,
		},
	}
}

// RunMigrations applies all pending billing migrations in order
func RunMigrations(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS billing_schema_migrations (
			version INT PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	for _, m := range GetMigrations() {
		var applied bool
		err := db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM billing_schema_migrations WHERE version = $1)`,
			m.Version).Scan(&applied)
		if err != nil {
			return fmt.Errorf("failed to check migration %d: %w", m.Version, err)
		}
		if applied {
			continue
		}

		if _, err := db.ExecContext(ctx, m.SQL); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", m.Version, m.Description, err)
		}
		if _, err := db.ExecContext(ctx,
			`INSERT INTO billing_schema_migrations (version, description) VALUES ($1, $2)`,
			m.Version, m.Description); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
		}
	}
	return nil
}
