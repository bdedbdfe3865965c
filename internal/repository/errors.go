package repository

import "errors"

var (
	// ErrInvalidAttempt indicates an attempt record missing required fields
	ErrInvalidAttempt = errors.New("invalid attempt record")

	// ErrRepositoryUnavailable indicates the repository is unavailable
	ErrRepositoryUnavailable = errors.New("repository unavailable")
)
