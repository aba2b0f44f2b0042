// Package billing contains the billing domain model and the invoice
// generation primitives: the billing-record repository, the plan
// aggregator that converts billing records into invoice line items,
// and the tax calculator.
//
// All monetary amounts are int64 minor currency units (cents). Every
// repository call is tenant-scoped; tenancy is an explicit parameter,
// never ambient state.
package billing
