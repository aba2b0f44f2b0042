package billing

import "errors"

var (
	// ErrInvalidPeriod is returned when a billing period start is not before its end
	ErrInvalidPeriod = errors.New("billing period start must be before end")

	// ErrNoActivePlans is returned when a company has no plan active in the period
	ErrNoActivePlans = errors.New("no active billing plans")

	// ErrMissingRate is returned when neither a custom rate nor a service default rate exists
	ErrMissingRate = errors.New("no rate defined")

	// ErrCompanyNotFound is returned when a company does not exist for the tenant
	ErrCompanyNotFound = errors.New("company not found")

	// ErrServiceNotFound is returned when a referenced service does not exist
	ErrServiceNotFound = errors.New("service not found")
)
