package domain

import "errors"

var (
	ErrMissingIdentity = errors.New("user id is required")
	ErrAlreadyTracking = errors.New("tracking already active for user")
	ErrNotTracking     = errors.New("no active tracking session for user")
	ErrInvalidMode     = errors.New("unknown tracking mode")
	ErrNotFound        = errors.New("not found")
)
