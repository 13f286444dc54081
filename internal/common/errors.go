// Package common defines shared constants and sentinel errors used across
// the client and server layers of Tally. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrInternal     = errors.New("internal error")
	ErrUnauthorized = errors.New("unauthorized")

	// Sync engine errors.
	ErrOffline         = errors.New("offline")
	ErrSyncInProgress  = errors.New("sync already in progress")
	ErrConflict        = errors.New("conflicting records share a natural key")
	ErrRetriesExceeded = errors.New("retry limit exceeded")
	ErrBatchTooLarge   = errors.New("batch exceeds operation limit")

	// Validation errors.
	ErrValidation = errors.New("validation failed")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)
