package payment

import (
	"errors"

	"storefront-be/internal/signature"
)

var (
	ErrSignatureInvalid    = signature.ErrSignatureInvalid
	ErrAmountMismatch      = errors.New("amount mismatch")
	ErrProviderUnreachable = errors.New("payment provider unreachable")
	ErrUnknownProvider     = errors.New("unknown payment provider")
	ErrAttemptNotFound     = errors.New("payment attempt not found")
	ErrMalformedReference  = errors.New("malformed transaction reference")
)
