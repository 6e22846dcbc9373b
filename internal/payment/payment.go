package payment

import (
	"context"
)

// Provider abstracts one upstream payment gateway.
type Provider interface {
	Name() ProviderName
	CreateIntent(ctx context.Context, req IntentRequest) (*IntentResponse, error)
	// ParseCallback verifies the provider signature and normalises the
	// notification. Signature failures return ErrSignatureInvalid.
	ParseCallback(params map[string]string) (*CallbackResult, error)
}
