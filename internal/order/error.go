package order

import (
	"errors"

	"storefront-be/internal/product"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrInvalidInput  = errors.New("invalid order input")
	ErrInvalidStatus = errors.New("invalid status transition")
	ErrOutOfStock    = product.ErrOutOfStock

	// ErrStaleTransition means the row changed state before the lock was taken.
	ErrStaleTransition = errors.New("stale transition")
	// ErrTransactionFailure wraps any database failure inside a unit of work.
	ErrTransactionFailure = errors.New("transaction failure")
	// ErrPaymentUnavailable means the order exists but no redirect could be produced.
	ErrPaymentUnavailable = errors.New("payment gateway unavailable")
)
