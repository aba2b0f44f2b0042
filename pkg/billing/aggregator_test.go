package billing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRepository is a function-field mock of Repository
type mockRepository struct {
	companyFunc             func(tenantID, companyID int64) (*Company, error)
	activePlansFunc         func(tenantID, companyID int64, start, end time.Time) ([]*BillingPlan, error)
	planServicesFunc        func(planID int64) ([]*PlanService, error)
	getServiceFunc          func(tenantID, serviceID int64) (*Service, error)
	approvedTimeEntriesFunc func(tenantID, companyID int64, start, end time.Time) ([]*TimeEntry, error)
	usageRecordsFunc        func(tenantID, companyID int64, start, end time.Time) ([]*UsageRecord, error)
	bucketUsagesFunc        func(planID int64) ([]*BucketUsage, error)
	taxContextFunc          func(tenantID, companyID int64) (*TaxContext, error)
	companiesFunc           func(tenantID int64, frequency BillingFrequency, start, end time.Time) ([]int64, error)
}

func (m *mockRepository) Company(_ context.Context, tenantID, companyID int64) (*Company, error) {
	if m.companyFunc != nil {
		return m.companyFunc(tenantID, companyID)
	}
	return &Company{ID: companyID, TenantID: tenantID, Name: "Test Co", Email: "billing@test.co"}, nil
}

func (m *mockRepository) ActivePlans(_ context.Context, tenantID, companyID int64, start, end time.Time) ([]*BillingPlan, error) {
	if m.activePlansFunc != nil {
		return m.activePlansFunc(tenantID, companyID, start, end)
	}
	return nil, nil
}

func (m *mockRepository) PlanServices(_ context.Context, planID int64) ([]*PlanService, error) {
	if m.planServicesFunc != nil {
		return m.planServicesFunc(planID)
	}
	return nil, nil
}

func (m *mockRepository) GetService(_ context.Context, tenantID, serviceID int64) (*Service, error) {
	if m.getServiceFunc != nil {
		return m.getServiceFunc(tenantID, serviceID)
	}
	return nil, ErrServiceNotFound
}

func (m *mockRepository) ApprovedTimeEntries(_ context.Context, tenantID, companyID int64, start, end time.Time) ([]*TimeEntry, error) {
	if m.approvedTimeEntriesFunc != nil {
		return m.approvedTimeEntriesFunc(tenantID, companyID, start, end)
	}
	return nil, nil
}

func (m *mockRepository) UsageRecords(_ context.Context, tenantID, companyID int64, start, end time.Time) ([]*UsageRecord, error) {
	if m.usageRecordsFunc != nil {
		return m.usageRecordsFunc(tenantID, companyID, start, end)
	}
	return nil, nil
}

func (m *mockRepository) BucketUsages(_ context.Context, planID int64) ([]*BucketUsage, error) {
	if m.bucketUsagesFunc != nil {
		return m.bucketUsagesFunc(planID)
	}
	return nil, nil
}

func (m *mockRepository) TaxContext(_ context.Context, tenantID, companyID int64) (*TaxContext, error) {
	if m.taxContextFunc != nil {
		return m.taxContextFunc(tenantID, companyID)
	}
	return &TaxContext{}, nil
}

func (m *mockRepository) CompaniesWithActivePlans(_ context.Context, tenantID int64, frequency BillingFrequency, start, end time.Time) ([]int64, error) {
	if m.companiesFunc != nil {
		return m.companiesFunc(tenantID, frequency, start, end)
	}
	return nil, nil
}

func int64Ptr(v int64) *int64 { return &v }

func testPeriod() (time.Time, time.Time) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

func fixedPlan(id int64) *BillingPlan {
	start, _ := testPeriod()
	return &BillingPlan{
		ID: id, TenantID: 1, CompanyID: 10, Name: "Managed Services",
		Type: PlanTypeFixed, Frequency: FrequencyMonthly,
		StartDate: start.AddDate(-1, 0, 0),
	}
}

func TestAggregateLineItemsInvalidPeriod(t *testing.T) {
	agg := NewAggregator(&mockRepository{})
	start, end := testPeriod()

	_, err := agg.AggregateLineItems(context.Background(), 1, 10, end, start)
	assert.ErrorIs(t, err, ErrInvalidPeriod)

	_, err = agg.AggregateLineItems(context.Background(), 1, 10, start, start)
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestAggregateLineItemsNoActivePlans(t *testing.T) {
	agg := NewAggregator(&mockRepository{})
	start, end := testPeriod()

	_, err := agg.AggregateLineItems(context.Background(), 1, 10, start, end)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoActivePlans)
	assert.Contains(t, err.Error(), "company 10")
}

func TestAggregateFixedPlan(t *testing.T) {
	services := map[int64]*Service{
		100: {ID: 100, TenantID: 1, Name: "Helpdesk", DefaultRateCents: int64Ptr(10000)},
		101: {ID: 101, TenantID: 1, Name: "Monitoring", DefaultRateCents: int64Ptr(15000)},
	}
	repo := &mockRepository{
		activePlansFunc: func(_, _ int64, _, _ time.Time) ([]*BillingPlan, error) {
			return []*BillingPlan{fixedPlan(1)}, nil
		},
		planServicesFunc: func(planID int64) ([]*PlanService, error) {
			return []*PlanService{
				{ID: 1, PlanID: planID, ServiceID: 100, Quantity: 1},
				{ID: 2, PlanID: planID, ServiceID: 101, Quantity: 1},
			}, nil
		},
		getServiceFunc: func(_, serviceID int64) (*Service, error) {
			return services[serviceID], nil
		},
	}

	agg := NewAggregator(repo)
	start, end := testPeriod()
	items, err := agg.AggregateLineItems(context.Background(), 1, 10, start, end)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "Helpdesk", items[0].Description)
	assert.Equal(t, float64(1), items[0].Quantity)
	assert.Equal(t, int64(10000), items[0].NetCents)
	assert.Equal(t, int64(15000), items[1].NetCents)
	assert.Equal(t, int64(25000), SumNetCents(items))
}

func TestAggregateFixedPlanCustomRateWins(t *testing.T) {
	repo := &mockRepository{
		activePlansFunc: func(_, _ int64, _, _ time.Time) ([]*BillingPlan, error) {
			return []*BillingPlan{fixedPlan(1)}, nil
		},
		planServicesFunc: func(planID int64) ([]*PlanService, error) {
			return []*PlanService{
				{ID: 1, PlanID: planID, ServiceID: 100, Quantity: 3, CustomRateCents: int64Ptr(2000)},
			}, nil
		},
		getServiceFunc: func(_, serviceID int64) (*Service, error) {
			return &Service{ID: serviceID, Name: "Helpdesk", DefaultRateCents: int64Ptr(9999)}, nil
		},
	}

	agg := NewAggregator(repo)
	start, end := testPeriod()
	items, err := agg.AggregateLineItems(context.Background(), 1, 10, start, end)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, float64(3), items[0].Quantity)
	assert.Equal(t, int64(2000), items[0].UnitPriceCents)
	assert.Equal(t, int64(6000), items[0].NetCents)
}

func TestAggregateFixedPlanMissingRate(t *testing.T) {
	repo := &mockRepository{
		activePlansFunc: func(_, _ int64, _, _ time.Time) ([]*BillingPlan, error) {
			return []*BillingPlan{fixedPlan(1)}, nil
		},
		planServicesFunc: func(planID int64) ([]*PlanService, error) {
			return []*PlanService{{ID: 1, PlanID: planID, ServiceID: 100, Quantity: 1}}, nil
		},
		getServiceFunc: func(_, serviceID int64) (*Service, error) {
			return &Service{ID: serviceID, Name: "Helpdesk"}, nil
		},
	}

	agg := NewAggregator(repo)
	start, end := testPeriod()
	_, err := agg.AggregateLineItems(context.Background(), 1, 10, start, end)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingRate)
	assert.Contains(t, err.Error(), "Helpdesk")
}

func TestAggregateHourlyPlan(t *testing.T) {
	start, end := testPeriod()
	plan := fixedPlan(2)
	plan.Type = PlanTypeHourly

	repo := &mockRepository{
		activePlansFunc: func(_, _ int64, _, _ time.Time) ([]*BillingPlan, error) {
			return []*BillingPlan{plan}, nil
		},
		planServicesFunc: func(planID int64) ([]*PlanService, error) {
			return []*PlanService{
				{ID: 1, PlanID: planID, ServiceID: 200, CustomRateCents: int64Ptr(5000)},
			}, nil
		},
		approvedTimeEntriesFunc: func(_, _ int64, _, _ time.Time) ([]*TimeEntry, error) {
			return []*TimeEntry{
				{ID: 1, ServiceID: 200, BillableMinutes: 90, ApprovalStatus: ApprovalStatusApproved, WorkDate: start},
				{ID: 2, ServiceID: 200, BillableMinutes: 30, ApprovalStatus: ApprovalStatusApproved, WorkDate: start.AddDate(0, 0, 3)},
			}, nil
		},
		getServiceFunc: func(_, serviceID int64) (*Service, error) {
			return &Service{ID: serviceID, Name: "Remote Support", DefaultRateCents: int64Ptr(12000)}, nil
		},
	}

	agg := NewAggregator(repo)
	items, err := agg.AggregateLineItems(context.Background(), 1, 10, start, end)
	require.NoError(t, err)
	require.Len(t, items, 1)

	// 120 minutes at the 5000/hour override rate
	assert.Equal(t, "Remote Support", items[0].Description)
	assert.Equal(t, float64(2), items[0].Quantity)
	assert.Equal(t, int64(5000), items[0].UnitPriceCents)
	assert.Equal(t, int64(10000), items[0].NetCents)
}

func TestAggregateHourlyPlanGroupsPerService(t *testing.T) {
	start, end := testPeriod()
	plan := fixedPlan(2)
	plan.Type = PlanTypeHourly

	services := map[int64]*Service{
		200: {ID: 200, Name: "Remote Support", DefaultRateCents: int64Ptr(10000)},
		201: {ID: 201, Name: "Onsite Support", DefaultRateCents: int64Ptr(20000)},
	}
	repo := &mockRepository{
		activePlansFunc: func(_, _ int64, _, _ time.Time) ([]*BillingPlan, error) {
			return []*BillingPlan{plan}, nil
		},
		approvedTimeEntriesFunc: func(_, _ int64, _, _ time.Time) ([]*TimeEntry, error) {
			return []*TimeEntry{
				{ID: 1, ServiceID: 200, BillableMinutes: 60, ApprovalStatus: ApprovalStatusApproved},
				{ID: 2, ServiceID: 201, BillableMinutes: 30, ApprovalStatus: ApprovalStatusApproved},
				{ID: 3, ServiceID: 200, BillableMinutes: 60, ApprovalStatus: ApprovalStatusApproved},
			}, nil
		},
		getServiceFunc: func(_, serviceID int64) (*Service, error) {
			return services[serviceID], nil
		},
	}

	agg := NewAggregator(repo)
	items, err := agg.AggregateLineItems(context.Background(), 1, 10, start, end)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, float64(2), items[0].Quantity)
	assert.Equal(t, int64(20000), items[0].NetCents)
	assert.Equal(t, float64(0.5), items[1].Quantity)
	assert.Equal(t, int64(10000), items[1].NetCents)
}

func TestAggregateUsagePlanRecordsNeverMerged(t *testing.T) {
	start, end := testPeriod()
	plan := fixedPlan(3)
	plan.Type = PlanTypeUsage

	repo := &mockRepository{
		activePlansFunc: func(_, _ int64, _, _ time.Time) ([]*BillingPlan, error) {
			return []*BillingPlan{plan}, nil
		},
		usageRecordsFunc: func(_, _ int64, _, _ time.Time) ([]*UsageRecord, error) {
			return []*UsageRecord{
				{ID: 1, ServiceID: 300, Quantity: 50, UsageDate: start},
				{ID: 2, ServiceID: 300, Quantity: 30, UsageDate: start},
			}, nil
		},
		getServiceFunc: func(_, serviceID int64) (*Service, error) {
			return &Service{ID: serviceID, Name: "Backup Storage", DefaultRateCents: int64Ptr(10)}, nil
		},
	}

	agg := NewAggregator(repo)
	items, err := agg.AggregateLineItems(context.Background(), 1, 10, start, end)
	require.NoError(t, err)
	require.Len(t, items, 2)

	// Same service, same date: still two line items.
	assert.Equal(t, int64(500), items[0].NetCents)
	assert.Equal(t, int64(300), items[1].NetCents)
	assert.Equal(t, int64(800), SumNetCents(items))
}

func TestAggregateBucketPlanOverage(t *testing.T) {
	start, end := testPeriod()
	plan := fixedPlan(4)
	plan.Type = PlanTypeBucket

	repo := &mockRepository{
		activePlansFunc: func(_, _ int64, _, _ time.Time) ([]*BillingPlan, error) {
			return []*BillingPlan{plan}, nil
		},
		bucketUsagesFunc: func(planID int64) ([]*BucketUsage, error) {
			return []*BucketUsage{
				{ID: 1, PlanID: planID, ServiceID: 400, HoursUsed: 45, TotalHours: 40, OverageRateCents: 7500},
			}, nil
		},
		getServiceFunc: func(_, serviceID int64) (*Service, error) {
			return &Service{ID: serviceID, Name: "Block Hours"}, nil
		},
	}

	agg := NewAggregator(repo)
	items, err := agg.AggregateLineItems(context.Background(), 1, 10, start, end)
	require.NoError(t, err)
	require.Len(t, items, 1)

	assert.Contains(t, items[0].Description, "(Overage)")
	assert.Equal(t, float64(5), items[0].Quantity)
	assert.Equal(t, int64(7500), items[0].UnitPriceCents)
	assert.Equal(t, int64(37500), items[0].NetCents)
}

func TestAggregateBucketPlanWithinAllotment(t *testing.T) {
	start, end := testPeriod()
	plan := fixedPlan(4)
	plan.Type = PlanTypeBucket

	repo := &mockRepository{
		activePlansFunc: func(_, _ int64, _, _ time.Time) ([]*BillingPlan, error) {
			return []*BillingPlan{plan}, nil
		},
		bucketUsagesFunc: func(planID int64) ([]*BucketUsage, error) {
			return []*BucketUsage{
				{ID: 1, PlanID: planID, ServiceID: 400, HoursUsed: 38, TotalHours: 40, OverageRateCents: 7500},
			}, nil
		},
	}

	agg := NewAggregator(repo)
	items, err := agg.AggregateLineItems(context.Background(), 1, 10, start, end)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestAggregateMultiplePlansConcatenated(t *testing.T) {
	start, end := testPeriod()
	fixed := fixedPlan(1)
	usage := fixedPlan(2)
	usage.Type = PlanTypeUsage

	repo := &mockRepository{
		activePlansFunc: func(_, _ int64, _, _ time.Time) ([]*BillingPlan, error) {
			return []*BillingPlan{fixed, usage}, nil
		},
		planServicesFunc: func(planID int64) ([]*PlanService, error) {
			return []*PlanService{{ID: 1, PlanID: planID, ServiceID: 100, Quantity: 1}}, nil
		},
		usageRecordsFunc: func(_, _ int64, _, _ time.Time) ([]*UsageRecord, error) {
			return []*UsageRecord{{ID: 1, ServiceID: 100, Quantity: 2, UsageDate: start}}, nil
		},
		getServiceFunc: func(_, serviceID int64) (*Service, error) {
			return &Service{ID: serviceID, Name: "Helpdesk", DefaultRateCents: int64Ptr(1000)}, nil
		},
	}

	agg := NewAggregator(repo)
	items, err := agg.AggregateLineItems(context.Background(), 1, 10, start, end)
	require.NoError(t, err)
	require.Len(t, items, 2)

	// Fixed plan items precede usage plan items (plan assignment order).
	assert.Equal(t, int64(1000), items[0].NetCents)
	assert.Equal(t, int64(2000), items[1].NetCents)
}
