package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront-be/internal/events"
	"storefront-be/internal/logger"
	"storefront-be/internal/metrics"
	"storefront-be/internal/payment"
	"storefront-be/internal/utils"

	"go.uber.org/zap"
)

type Service interface {
	Checkout(ctx context.Context, in CheckoutInput) (*CheckoutResult, error)
	RetryPayment(ctx context.Context, userID, orderID uint, clientIP string) (*CheckoutResult, error)
	GetOrderDetail(ctx context.Context, userID, orderID uint, isAdmin bool) (*Order, error)
	GetOrders(ctx context.Context, filter ListFilter) (*ListResult, error)
	UpdateOrderStatus(ctx context.Context, orderID uint, to Status) (*Order, error)

	// ApplyPaymentResult applies a verified provider callback to its order.
	ApplyPaymentResult(ctx context.Context, res *payment.CallbackResult) (*Order, error)

	ListStaleOrderIDs(
		ctx context.Context,
		cutoff time.Time,
		afterID uint,
		limit int,
		skipMethods []PaymentMethod,
	) ([]uint, error)
	CancelStale(ctx context.Context, orderID uint, cutoff time.Time) error
}

type service struct {
	repo        Repository
	paymentRepo payment.Repository
	providers   map[payment.ProviderName]payment.Provider
	publisher   events.Publisher
	now         func() time.Time
}

func NewService(
	repo Repository,
	paymentRepo payment.Repository,
	providers []payment.Provider,
	publisher events.Publisher,
) Service {
	byName := make(map[payment.ProviderName]payment.Provider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}

	return &service{
		repo:        repo,
		paymentRepo: paymentRepo,
		providers:   byName,
		publisher:   publisher,
		now:         time.Now,
	}
}

func (s *service) Checkout(ctx context.Context, in CheckoutInput) (*CheckoutResult, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Checkout"),
		zap.Uint("user_id", in.UserID),
		zap.String("payment_method", string(in.PaymentMethod)),
	)

	if in.UserID == 0 {
		return nil, ErrUnauthorized
	}
	if len(in.Items) == 0 || len(in.Items) > MaxCheckoutLines || !in.PaymentMethod.Valid() {
		return nil, ErrInvalidInput
	}

	// Same variant twice becomes one line.
	qty := map[uint]int{}
	var seq []uint
	for _, line := range in.Items {
		if line.VariantID == 0 || line.Quantity <= 0 || line.Quantity > MaxLineQuantity {
			return nil, ErrInvalidInput
		}
		if _, seen := qty[line.VariantID]; !seen {
			seq = append(seq, line.VariantID)
		}
		qty[line.VariantID] += line.Quantity
		if qty[line.VariantID] > MaxLineQuantity {
			return nil, ErrInvalidInput
		}
	}

	o := &Order{
		UserID:        in.UserID,
		Status:        StatusPending,
		PaymentStatus: PaymentPending,
		PaymentMethod: in.PaymentMethod,
	}
	for _, vid := range seq {
		o.Items = append(o.Items, Item{VariantID: vid, Quantity: qty[vid]})
	}

	if err := s.repo.CreateOrderTx(ctx, o); err != nil {
		log.Warn("checkout failed", zap.Error(err))
		return nil, err
	}

	res := &CheckoutResult{Order: o}
	if _, online := o.PaymentMethod.Provider(); !online {
		res.Instructions = s.instructions(o, "")
		log.Info("cod order placed", zap.Uint("order_id", o.ID))
		return res, nil
	}

	intent, err := s.startPayment(ctx, o, in.ClientIP)
	if err != nil {
		// The order stays PENDING; the shopper can retry or settlement cancels it.
		return res, err
	}

	res.Payment = intent
	res.Instructions = s.instructions(o, intent.TxnRef)
	return res, nil
}

func (s *service) RetryPayment(ctx context.Context, userID, orderID uint, clientIP string) (*CheckoutResult, error) {
	o, err := s.repo.GetOrderDetail(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, ErrOrderNotFound
	}
	if _, online := o.PaymentMethod.Provider(); !online ||
		o.Status != StatusPending ||
		(o.PaymentStatus != PaymentPending && o.PaymentStatus != PaymentFailed) {
		return nil, ErrInvalidStatus
	}

	intent, err := s.startPayment(ctx, o, clientIP)
	if err != nil {
		return nil, err
	}

	return &CheckoutResult{
		Order:        o,
		Payment:      intent,
		Instructions: s.instructions(o, intent.TxnRef),
	}, nil
}

// startPayment allocates a fresh attempt and asks the provider for a redirect.
// No database transaction is open while the provider is called.
func (s *service) startPayment(ctx context.Context, o *Order, clientIP string) (*payment.IntentResponse, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "startPayment"),
		zap.Uint("order_id", o.ID),
	)

	name, _ := o.PaymentMethod.Provider()
	provider, ok := s.providers[name]
	if !ok {
		log.Error("payment provider not configured", zap.String("provider", string(name)))
		return nil, fmt.Errorf("%w: %w", ErrPaymentUnavailable, payment.ErrUnknownProvider)
	}

	attempt, err := s.paymentRepo.NextAttempt(ctx, o.ID, name, o.TotalAmount)
	if err != nil {
		log.Error("failed to allocate payment attempt", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrPaymentUnavailable, err)
	}

	intent, err := provider.CreateIntent(ctx, payment.IntentRequest{
		OrderID:   o.ID,
		TxnRef:    attempt.TxnRef,
		Amount:    o.TotalAmount,
		OrderInfo: fmt.Sprintf("Thanh toan don hang %d", o.ID),
		ClientIP:  clientIP,
		CreatedAt: s.now(),
	})
	metrics.RecordIntent(string(name), err)
	if err != nil {
		log.Error("payment provider rejected intent",
			zap.String("txn_ref", attempt.TxnRef),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %w", ErrPaymentUnavailable, err)
	}

	log.Info("payment intent created", zap.String("txn_ref", intent.TxnRef))
	return intent, nil
}

func (s *service) instructions(o *Order, txnRef string) []string {
	return payment.InjectVariables(
		payment.GetInstructions(string(o.PaymentMethod)),
		payment.InstructionVars{
			"amount":  utils.FormatVND(o.TotalAmount),
			"txn_ref": txnRef,
		},
	)
}

func (s *service) GetOrderDetail(ctx context.Context, userID, orderID uint, isAdmin bool) (*Order, error) {
	o, err := s.repo.GetOrderDetail(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && o.UserID != userID {
		return nil, ErrUnauthorized
	}
	if isAdmin {
		if o.Payments, err = s.paymentRepo.ListAttempts(ctx, orderID); err != nil {
			return nil, err
		}
	}
	return o, nil
}

func (s *service) GetOrders(ctx context.Context, filter ListFilter) (*ListResult, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	} else if filter.Limit > 100 {
		filter.Limit = 100
	}

	items, total, err := s.repo.FetchOrders(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &ListResult{Items: items, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

func (s *service) UpdateOrderStatus(ctx context.Context, orderID uint, to Status) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "UpdateOrderStatus"),
		zap.Uint("order_id", orderID),
		zap.String("to", string(to)),
	)

	if !to.Valid() {
		return nil, ErrInvalidStatus
	}

	if to == StatusCancelled {
		o, err := s.repo.CancelOrder(ctx, orderID)
		if err != nil {
			log.Warn("admin cancel rejected", zap.Error(err))
			return nil, err
		}
		s.publish(ctx, events.OrderCancelled, o, "admin")
		return o, nil
	}

	o, err := s.repo.GetOrderDetail(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !o.Status.CanAdvance(to) {
		return nil, ErrInvalidStatus
	}
	if o.PaymentMethod != MethodCOD && o.PaymentStatus != PaymentPaid {
		return nil, fmt.Errorf("%w: online order %d is not paid", ErrInvalidStatus, o.ID)
	}

	if err := s.repo.UpdateOrderStatus(ctx, orderID, o.Status, to); err != nil {
		log.Warn("status update failed", zap.Error(err))
		return nil, err
	}

	o.Status = to
	log.Info("order status updated")
	return o, nil
}

func (s *service) ApplyPaymentResult(ctx context.Context, res *payment.CallbackResult) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "ApplyPaymentResult"),
		zap.String("provider", string(res.Provider)),
		zap.String("txn_ref", res.TxnRef),
	)

	attempt, err := s.paymentRepo.GetAttemptByTxnRef(ctx, res.TxnRef)
	if errors.Is(err, payment.ErrAttemptNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	if attempt.Provider != res.Provider {
		log.Warn("callback provider does not match attempt", zap.String("attempt_provider", string(attempt.Provider)))
		return nil, ErrOrderNotFound
	}
	if attempt.Amount != res.Amount {
		log.Warn("callback amount mismatch",
			zap.Int64("expected", attempt.Amount),
			zap.Int64("received", res.Amount),
		)
		return nil, fmt.Errorf("%w: expected %d got %d", payment.ErrAmountMismatch, attempt.Amount, res.Amount)
	}

	to := PaymentFailed
	if res.Paid {
		to = PaymentPaid
	}

	o, err := s.repo.ApplyPaymentResult(ctx, attempt.OrderID, res.TxnRef, to, res.ProviderTxnID)
	if err != nil {
		if errors.Is(err, ErrStaleTransition) {
			log.Warn("late payment callback ignored", zap.Uint("order_id", attempt.OrderID), zap.Error(err))
		}
		return nil, err
	}

	log.Info("payment result applied",
		zap.Uint("order_id", o.ID),
		zap.String("payment_status", string(o.PaymentStatus)),
	)

	if to == PaymentPaid {
		s.publish(ctx, events.OrderPaid, o, "")
	} else {
		s.publish(ctx, events.OrderPaymentFailed, o, res.ResponseCode)
	}
	return o, nil
}

func (s *service) ListStaleOrderIDs(
	ctx context.Context,
	cutoff time.Time,
	afterID uint,
	limit int,
	skipMethods []PaymentMethod,
) ([]uint, error) {
	return s.repo.ListStaleOrderIDs(ctx, cutoff, afterID, limit, skipMethods)
}

func (s *service) CancelStale(ctx context.Context, orderID uint, cutoff time.Time) error {
	o, err := s.repo.CancelStale(ctx, orderID, cutoff)
	if err != nil {
		return err
	}
	s.publish(ctx, events.OrderCancelled, o, "payment_timeout")
	return nil
}

// publish runs after commit. A broker failure never undoes the state change.
func (s *service) publish(ctx context.Context, t events.Type, o *Order, reason string) {
	e := events.NewOrderEvent(t, o.ID, o.UserID, string(o.Status), string(o.PaymentStatus), o.TotalAmount)
	e.Reason = reason

	if err := s.publisher.Publish(ctx, e); err != nil {
		logger.FromCtx(ctx).Error("failed to publish order event",
			zap.String("event_type", string(t)),
			zap.Uint("order_id", o.ID),
			zap.Error(err),
		)
	}
}
