package billing

import (
	"time"
)

// PlanType determines how line items are derived for a billing plan.
type PlanType string

const (
	PlanTypeFixed  PlanType = "fixed"
	PlanTypeHourly PlanType = "hourly"
	PlanTypeUsage  PlanType = "usage"
	PlanTypeBucket PlanType = "bucket"
)

// BillingFrequency represents how often a plan is invoiced.
type BillingFrequency string

const (
	FrequencyMonthly   BillingFrequency = "monthly"
	FrequencyQuarterly BillingFrequency = "quarterly"
	FrequencyAnnually  BillingFrequency = "annually"
)

// BillingPlan represents a billing arrangement between a tenant and a company.
// A plan is immutable once a period it covers has been invoiced.
type BillingPlan struct {
	ID        int64            `json:"id"`
	TenantID  int64            `json:"tenant_id"`
	CompanyID int64            `json:"company_id"`
	Name      string           `json:"name"`
	Type      PlanType         `json:"type"`
	Frequency BillingFrequency `json:"frequency"`
	StartDate time.Time        `json:"start_date"`
	EndDate   *time.Time       `json:"end_date,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// ActiveIn reports whether the plan overlaps the [start, end) period.
func (p *BillingPlan) ActiveIn(start, end time.Time) bool {
	if !p.StartDate.Before(end) {
		return false
	}
	if p.EndDate != nil && !p.EndDate.After(start) {
		return false
	}
	return true
}

// PlanService associates a plan with a service, with an optional
// per-plan rate override. Used by fixed and hourly plans.
type PlanService struct {
	ID              int64  `json:"id"`
	PlanID          int64  `json:"plan_id"`
	ServiceID       int64  `json:"service_id"`
	Quantity        int64  `json:"quantity"`
	CustomRateCents *int64 `json:"custom_rate_cents,omitempty"`
}

// Service is a billable service in the tenant's catalog.
type Service struct {
	ID               int64  `json:"id"`
	TenantID         int64  `json:"tenant_id"`
	Name             string `json:"name"`
	DefaultRateCents *int64 `json:"default_rate_cents,omitempty"`
	Unit             string `json:"unit,omitempty"`
}

// ApprovalStatus represents the review state of a time entry.
type ApprovalStatus string

const (
	ApprovalStatusDraft    ApprovalStatus = "draft"
	ApprovalStatusApproved ApprovalStatus = "approved"
	ApprovalStatusRejected ApprovalStatus = "rejected"
)

// TimeEntry is a unit of billable work. Only approved entries are invoiced.
type TimeEntry struct {
	ID              int64          `json:"id"`
	TenantID        int64          `json:"tenant_id"`
	CompanyID       int64          `json:"company_id"`
	ServiceID       int64          `json:"service_id"`
	BillableMinutes int64          `json:"billable_minutes"`
	ApprovalStatus  ApprovalStatus `json:"approval_status"`
	WorkDate        time.Time      `json:"work_date"`
}

// UsageRecord is a metered consumption record. Each record yields
// exactly one line item; records are never aggregated.
type UsageRecord struct {
	ID        int64     `json:"id"`
	TenantID  int64     `json:"tenant_id"`
	CompanyID int64     `json:"company_id"`
	ServiceID int64     `json:"service_id"`
	Quantity  int64     `json:"quantity"`
	UsageDate time.Time `json:"usage_date"`
}

// BucketUsage tracks consumption against a bucket plan's hour allotment.
type BucketUsage struct {
	ID               int64   `json:"id"`
	PlanID           int64   `json:"plan_id"`
	ServiceID        int64   `json:"service_id"`
	HoursUsed        float64 `json:"hours_used"`
	TotalHours       float64 `json:"total_hours"`
	OverageRateCents int64   `json:"overage_rate_cents"`
}

// OverageHours returns the hours consumed beyond the allotment, never negative.
func (b *BucketUsage) OverageHours() float64 {
	overage := b.HoursUsed - b.TotalHours
	if overage < 0 {
		return 0
	}
	return overage
}

// TaxRate is a named percentage rate.
type TaxRate struct {
	ID         int64   `json:"id"`
	TenantID   int64   `json:"tenant_id"`
	Name       string  `json:"name"`
	Percentage float64 `json:"percentage"`
}

// TaxContext is the resolved tax configuration for one company.
// The override rate, when present, wins over the company default.
type TaxContext struct {
	DefaultPercentage  *float64 `json:"default_percentage,omitempty"`
	OverridePercentage *float64 `json:"override_percentage,omitempty"`
	ReverseCharge      bool     `json:"reverse_charge"`
}

// EffectivePercentage returns the rate that applies, or nil when no
// tax configuration exists for the company.
func (t *TaxContext) EffectivePercentage() *float64 {
	if t == nil {
		return nil
	}
	if t.OverridePercentage != nil {
		return t.OverridePercentage
	}
	return t.DefaultPercentage
}

// Company is a customer of the tenant.
type Company struct {
	ID                  int64  `json:"id"`
	TenantID            int64  `json:"tenant_id"`
	Name                string `json:"name"`
	Email               string `json:"email,omitempty"`
	BillingEmail        string `json:"billing_email,omitempty"`
	BillingContactName  string `json:"billing_contact_name,omitempty"`
	BillingContactEmail string `json:"billing_contact_email,omitempty"`
}

// BillingRecipient returns the recipient email and name for invoice
// delivery. A configured billing contact wins over the billing email,
// which wins over the company's general email. The second return is
// false when no recipient is resolvable.
func (c *Company) BillingRecipient() (email, name string, ok bool) {
	switch {
	case c.BillingContactEmail != "":
		return c.BillingContactEmail, c.BillingContactName, true
	case c.BillingEmail != "":
		return c.BillingEmail, c.Name, true
	case c.Email != "":
		return c.Email, c.Name, true
	}
	return "", "", false
}

// LineItem is one computed invoice line. NetCents is always
// Quantity x UnitPriceCents rounded to the nearest cent.
type LineItem struct {
	Description    string  `json:"description"`
	Quantity       float64 `json:"quantity"`
	UnitPriceCents int64   `json:"unit_price_cents"`
	NetCents       int64   `json:"net_cents"`
	ServiceID      int64   `json:"service_id,omitempty"`
}

// NewLineItem builds a line item with the net amount computed.
func NewLineItem(description string, quantity float64, unitPriceCents int64, serviceID int64) LineItem {
	return LineItem{
		Description:    description,
		Quantity:       quantity,
		UnitPriceCents: unitPriceCents,
		NetCents:       roundCents(quantity * float64(unitPriceCents)),
		ServiceID:      serviceID,
	}
}

// SumNetCents totals the net amounts of a set of line items.
func SumNetCents(items []LineItem) int64 {
	var total int64
	for _, item := range items {
		total += item.NetCents
	}
	return total
}
