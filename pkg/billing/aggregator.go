package billing

import (
	"context"
	"fmt"
	"time"
)

// Aggregator computes invoice line items for one company and period by
// walking every plan active in that period. Plans are processed
// independently in assignment order and their line items concatenated.
type Aggregator struct {
	repo Repository
}

// NewAggregator creates a new Aggregator
func NewAggregator(repo Repository) *Aggregator {
	return &Aggregator{repo: repo}
}

// AggregateLineItems computes the line items for a company over
// [periodStart, periodEnd). It rejects an empty or inverted period and
// a company with no active plan in range.
func (a *Aggregator) AggregateLineItems(ctx context.Context, tenantID, companyID int64, periodStart, periodEnd time.Time) ([]LineItem, error) {
	if !periodStart.Before(periodEnd) {
		return nil, ErrInvalidPeriod
	}

	plans, err := a.repo.ActivePlans(ctx, tenantID, companyID, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}
	if len(plans) == 0 {
		return nil, fmt.Errorf("%w for company %d in period %s to %s",
			ErrNoActivePlans, companyID,
			periodStart.Format("2006-01-02"), periodEnd.Format("2006-01-02"))
	}

	services := newServiceCache(a.repo, tenantID)

	var items []LineItem
	for _, plan := range plans {
		var planItems []LineItem
		switch plan.Type {
		case PlanTypeFixed:
			planItems, err = a.fixedLineItems(ctx, plan, services)
		case PlanTypeHourly:
			planItems, err = a.hourlyLineItems(ctx, plan, services, periodStart, periodEnd)
		case PlanTypeUsage:
			planItems, err = a.usageLineItems(ctx, plan, services, periodStart, periodEnd)
		case PlanTypeBucket:
			planItems, err = a.bucketLineItems(ctx, plan, services)
		default:
			err = fmt.Errorf("unknown plan type %q for plan %d", plan.Type, plan.ID)
		}
		if err != nil {
			return nil, err
		}
		items = append(items, planItems...)
	}
	return items, nil
}

// fixedLineItems emits one line item per plan-service assignment at the
// custom rate when set, else the service default rate.
func (a *Aggregator) fixedLineItems(ctx context.Context, plan *BillingPlan, services *serviceCache) ([]LineItem, error) {
	assignments, err := a.repo.PlanServices(ctx, plan.ID)
	if err != nil {
		return nil, err
	}

	var items []LineItem
	for _, ps := range assignments {
		svc, err := services.get(ctx, ps.ServiceID)
		if err != nil {
			return nil, err
		}
		rate, err := resolveRate(ps.CustomRateCents, svc)
		if err != nil {
			return nil, err
		}
		quantity := float64(ps.Quantity)
		if quantity == 0 {
			quantity = 1
		}
		items = append(items, NewLineItem(svc.Name, quantity, rate, svc.ID))
	}
	return items, nil
}

// hourlyLineItems groups approved time entries by service and emits one
// line item per service, quantity in hours. A plan-service custom rate
// overrides the service default.
func (a *Aggregator) hourlyLineItems(ctx context.Context, plan *BillingPlan, services *serviceCache, periodStart, periodEnd time.Time) ([]LineItem, error) {
	entries, err := a.repo.ApprovedTimeEntries(ctx, plan.TenantID, plan.CompanyID, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}

	assignments, err := a.repo.PlanServices(ctx, plan.ID)
	if err != nil {
		return nil, err
	}
	customRates := make(map[int64]*int64, len(assignments))
	for _, ps := range assignments {
		customRates[ps.ServiceID] = ps.CustomRateCents
	}

	// Group minutes by service, preserving first-seen order.
	minutesByService := make(map[int64]int64)
	var serviceOrder []int64
	for _, entry := range entries {
		if _, seen := minutesByService[entry.ServiceID]; !seen {
			serviceOrder = append(serviceOrder, entry.ServiceID)
		}
		minutesByService[entry.ServiceID] += entry.BillableMinutes
	}

	var items []LineItem
	for _, serviceID := range serviceOrder {
		svc, err := services.get(ctx, serviceID)
		if err != nil {
			return nil, err
		}
		rate, err := resolveRate(customRates[serviceID], svc)
		if err != nil {
			return nil, err
		}
		hours := float64(minutesByService[serviceID]) / 60
		items = append(items, NewLineItem(svc.Name, hours, rate, svc.ID))
	}
	return items, nil
}

// usageLineItems emits one line item per usage record at the service
// default rate. Records are never merged, even for the same service
// and date.
func (a *Aggregator) usageLineItems(ctx context.Context, plan *BillingPlan, services *serviceCache, periodStart, periodEnd time.Time) ([]LineItem, error) {
	records, err := a.repo.UsageRecords(ctx, plan.TenantID, plan.CompanyID, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}

	var items []LineItem
	for _, rec := range records {
		svc, err := services.get(ctx, rec.ServiceID)
		if err != nil {
			return nil, err
		}
		rate, err := resolveRate(nil, svc)
		if err != nil {
			return nil, err
		}
		description := fmt.Sprintf("%s (%s)", svc.Name, rec.UsageDate.Format("2006-01-02"))
		items = append(items, NewLineItem(description, float64(rec.Quantity), rate, svc.ID))
	}
	return items, nil
}

// bucketLineItems emits one overage line item per bucket row that has
// consumed beyond its allotment. Buckets within allotment produce nothing.
func (a *Aggregator) bucketLineItems(ctx context.Context, plan *BillingPlan, services *serviceCache) ([]LineItem, error) {
	usages, err := a.repo.BucketUsages(ctx, plan.ID)
	if err != nil {
		return nil, err
	}

	var items []LineItem
	for _, usage := range usages {
		overage := usage.OverageHours()
		if overage <= 0 {
			continue
		}
		svc, err := services.get(ctx, usage.ServiceID)
		if err != nil {
			return nil, err
		}
		description := fmt.Sprintf("%s (Overage)", svc.Name)
		items = append(items, NewLineItem(description, overage, usage.OverageRateCents, svc.ID))
	}
	return items, nil
}

// resolveRate picks the custom rate when set, else the service default.
func resolveRate(customRateCents *int64, svc *Service) (int64, error) {
	if customRateCents != nil {
		return *customRateCents, nil
	}
	if svc.DefaultRateCents != nil {
		return *svc.DefaultRateCents, nil
	}
	return 0, fmt.Errorf("%w for service %q (id %d)", ErrMissingRate, svc.Name, svc.ID)
}

// serviceCache memoizes catalog lookups for one aggregation pass.
type serviceCache struct {
	repo     Repository
	tenantID int64
	byID     map[int64]*Service
}

func newServiceCache(repo Repository, tenantID int64) *serviceCache {
	return &serviceCache{
		repo:     repo,
		tenantID: tenantID,
		byID:     make(map[int64]*Service),
	}
}

func (c *serviceCache) get(ctx context.Context, serviceID int64) (*Service, error) {
	if svc, ok := c.byID[serviceID]; ok {
		return svc, nil
	}
	svc, err := c.repo.GetService(ctx, c.tenantID, serviceID)
	if err != nil {
		return nil, err
	}
	c.byID[serviceID] = svc
	return svc, nil
}
