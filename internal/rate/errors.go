package rate

import "errors"

var (
	// ErrRateLimited is returned by Consume when the bucket has no points left
	// in the current window.
	ErrRateLimited = errors.New("rate limited")
	// ErrUnavailable wraps backend failures.
	ErrUnavailable = errors.New("rate limiter backend unavailable")
)
