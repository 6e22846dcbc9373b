package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"storefront-be/internal/logger"
	"storefront-be/internal/metrics"
	"storefront-be/internal/order"
	"storefront-be/internal/payment"

	"go.uber.org/zap"
)

const (
	defaultCallbackTimeout = 5 * time.Second
	outcomeWriteTimeout    = 2 * time.Second
)

// Handler receives provider notifications and applies them to orders.
type Handler struct {
	orders    order.Service
	payments  payment.Repository
	providers map[payment.ProviderName]payment.Provider
	timeout   time.Duration
}

func NewWebhookHandler(
	orders order.Service,
	payments payment.Repository,
	providers []payment.Provider,
	timeout time.Duration,
) *Handler {
	byName := make(map[payment.ProviderName]payment.Provider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}
	if timeout <= 0 {
		timeout = defaultCallbackTimeout
	}

	return &Handler{
		orders:    orders,
		payments:  payments,
		providers: byName,
		timeout:   timeout,
	}
}

// process verifies one notification, records it for audit and applies it.
// The outcome is all the caller needs to answer the provider.
func (h *Handler) process(
	ctx context.Context,
	name payment.ProviderName,
	txnRef string,
	params map[string]string,
) payment.CallbackOutcome {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "webhook"),
		zap.String("provider", string(name)),
		zap.String("txn_ref", txnRef),
	)

	provider, ok := h.providers[name]
	if !ok {
		log.Error("callback for unconfigured provider")
		return payment.OutcomeProcessingFailure
	}

	res, parseErr := provider.ParseCallback(params)

	payload, err := json.Marshal(params)
	if err != nil {
		log.Error("failed to encode callback payload", zap.Error(err))
		payload = []byte("{}")
	}

	callbackID, err := h.payments.SaveCallback(ctx, name, txnRef, payload, !errors.Is(parseErr, payment.ErrSignatureInvalid))
	if err != nil {
		log.Error("failed to record callback", zap.Error(err))
	}

	outcome, reason := h.apply(ctx, res, parseErr)

	switch outcome {
	case payment.OutcomeApplied:
		log.Info("payment callback applied", zap.Bool("paid", res.Paid), zap.String("response_code", res.ResponseCode))
	case payment.OutcomeProcessingFailure:
		log.Error("payment callback failed", zap.String("reason", reason))
	default:
		log.Warn("payment callback rejected", zap.String("outcome", string(outcome)), zap.String("reason", reason))
	}

	if callbackID != 0 {
		h.recordOutcome(ctx, log, callbackID, outcome, reason)
	}
	metrics.RecordCallback(string(name), string(outcome))

	return outcome
}

// recordOutcome gets a fresh deadline: an apply that used up the processing
// budget must still leave its outcome on the audit row.
func (h *Handler) recordOutcome(
	ctx context.Context,
	log *zap.Logger,
	callbackID int64,
	outcome payment.CallbackOutcome,
	reason string,
) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), outcomeWriteTimeout)
	defer cancel()

	if err := h.payments.MarkCallbackOutcome(ctx, callbackID, outcome, reason); err != nil {
		log.Error("failed to record callback outcome", zap.Int64("callback_id", callbackID), zap.Error(err))
	}
}

func (h *Handler) apply(ctx context.Context, res *payment.CallbackResult, parseErr error) (payment.CallbackOutcome, string) {
	if parseErr != nil {
		return classify(parseErr), parseErr.Error()
	}

	if _, err := h.orders.ApplyPaymentResult(ctx, res); err != nil {
		return classify(err), err.Error()
	}
	return payment.OutcomeApplied, ""
}

func classify(err error) payment.CallbackOutcome {
	switch {
	case errors.Is(err, payment.ErrSignatureInvalid):
		return payment.OutcomeSignatureInvalid
	case errors.Is(err, payment.ErrAmountMismatch):
		return payment.OutcomeAmountMismatch
	case errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, payment.ErrMalformedReference):
		return payment.OutcomeOrderNotFound
	case errors.Is(err, order.ErrStaleTransition):
		return payment.OutcomeStale
	default:
		return payment.OutcomeProcessingFailure
	}
}

// verifyOnly checks a browser return without changing state. The IPN is the
// only path that settles payments.
func (h *Handler) verifyOnly(name payment.ProviderName, params map[string]string) (*payment.CallbackResult, error) {
	provider, ok := h.providers[name]
	if !ok {
		return nil, payment.ErrUnknownProvider
	}
	return provider.ParseCallback(params)
}
