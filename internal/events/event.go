package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	OrderCancelled     Type = "order.cancelled"
	OrderPaid          Type = "order.paid"
	OrderPaymentFailed Type = "order.payment_failed"
)

type OrderEvent struct {
	ID            string    `json:"id"`
	Type          Type      `json:"type"`
	OrderID       uint      `json:"order_id"`
	UserID        uint      `json:"user_id"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"payment_status"`
	Amount        int64     `json:"amount"`
	Reason        string    `json:"reason,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

func NewOrderEvent(t Type, orderID, userID uint, status, paymentStatus string, amount int64) OrderEvent {
	return OrderEvent{
		ID:            uuid.NewString(),
		Type:          t,
		OrderID:       orderID,
		UserID:        userID,
		Status:        status,
		PaymentStatus: paymentStatus,
		Amount:        amount,
		OccurredAt:    time.Now().UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, e OrderEvent) error
	Close() error
}

// NoopPublisher is used when no brokers are configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, OrderEvent) error { return nil }
func (NoopPublisher) Close() error                             { return nil }
