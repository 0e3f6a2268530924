package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrNoPendingJobs   = errors.New("no pending jobs")
	ErrInvalidBrief    = errors.New("invalid brief")
	ErrJobNotRetryable = errors.New("job not retryable")
	ErrProviderFailure = errors.New("provider failure")
	ErrSchemaParse     = errors.New("schema parse failure")
)
