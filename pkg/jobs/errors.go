package jobs

import "errors"

var (
	// ErrJobNotFound indicates no job matched the tenant and id
	ErrJobNotFound = errors.New("job not found")

	// ErrStepNotFound indicates no started step matched the job and step id
	ErrStepNotFound = errors.New("job step not found")

	// ErrNoRecipient indicates a company has no usable billing email address
	ErrNoRecipient = errors.New("no billing recipient configured")

	// ErrSendFailed indicates the mail transport reported an unsuccessful delivery
	ErrSendFailed = errors.New("email delivery failed")
)
