package domain

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrStaleVersion = errors.New("stale rule version")
	ErrInvalidEvent = errors.New("invalid event payload")
	ErrInvalidRule  = errors.New("invalid rule")
	ErrUnknownParam = errors.New("unknown trading parameter")
	ErrRateLimited  = errors.New("rate limited")
)
