package usecase

import "errors"

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrDependencyUnavailable = errors.New("dependency unavailable")

	// ErrInsufficientOfflineData signals an offline request that the local
	// cache cannot serve at all.
	ErrInsufficientOfflineData = errors.New("insufficient offline data")

	ErrRateLimited = errors.New("rate limited")
)
