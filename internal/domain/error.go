package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrOperationFailed    = errors.New("operation failed")
	ErrInvalidExecContext = errors.New("invalid executor context")
	ErrReadDatabaseRow    = errors.New("failed to read database row")

	// Membership errors
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrNotSubscribed      = errors.New("user has no active subscription")
	ErrRateLimited        = errors.New("too many attempts")

	// Payment errors
	ErrAmountPrecision         = errors.New("price is not an integral minor-unit amount")
	ErrUnknownPayment          = errors.New("no payment matches the gateway reference")
	ErrConflictingNotification = errors.New("notification conflicts with settled payment")
	ErrSweepLocked             = errors.New("another sweep run holds the lock")
)
