package order

import (
	"time"

	"storefront-be/internal/payment"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusShipping  Status = "SHIPPING"
	StatusDelivered Status = "DELIVERED"
	StatusCancelled Status = "CANCELLED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusShipping, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

var fulfilmentFlow = map[Status]Status{
	StatusPending:   StatusConfirmed,
	StatusConfirmed: StatusShipping,
	StatusShipping:  StatusDelivered,
}

// CanAdvance reports whether an admin may move an order from s to next.
// Cancellation goes through CancelOrder and is not an advance.
func (s Status) CanAdvance(next Status) bool {
	return fulfilmentFlow[s] == next
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentPaid      PaymentStatus = "PAID"
	PaymentFailed    PaymentStatus = "FAILED"
	PaymentCancelled PaymentStatus = "CANCELLED"
)

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentPending: {PaymentPaid, PaymentFailed, PaymentCancelled},
	PaymentFailed:  {PaymentPaid, PaymentFailed, PaymentCancelled},
}

func (p PaymentStatus) CanTransition(to PaymentStatus) bool {
	for _, allowed := range paymentTransitions[p] {
		if allowed == to {
			return true
		}
	}
	return false
}

func (p PaymentStatus) Terminal() bool {
	return len(paymentTransitions[p]) == 0
}

type PaymentMethod string

const (
	MethodCOD   PaymentMethod = "COD"
	MethodVNPay PaymentMethod = "VNPAY"
	MethodMoMo  PaymentMethod = "MOMO"
)

func (m PaymentMethod) Valid() bool {
	return m == MethodCOD || m == MethodVNPay || m == MethodMoMo
}

// Provider maps an online method to its gateway. COD has none.
func (m PaymentMethod) Provider() (payment.ProviderName, bool) {
	switch m {
	case MethodVNPay:
		return payment.ProviderVNPay, true
	case MethodMoMo:
		return payment.ProviderMoMo, true
	}
	return "", false
}

type Order struct {
	ID            uint          `json:"id"`
	UserID        uint          `json:"user_id"`
	TotalAmount   int64         `json:"total_amount"`
	Status        Status        `json:"status"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
	Items         []Item        `json:"items,omitempty"`

	// Payments is the attempt history, filled for admin views only.
	Payments []payment.Attempt `json:"payments,omitempty"`
}

// StaleAt reports whether the settlement pass may cancel o at cutoff.
func (o *Order) StaleAt(cutoff time.Time) bool {
	return o.Status == StatusPending &&
		(o.PaymentStatus == PaymentPending || o.PaymentStatus == PaymentFailed) &&
		!o.CreatedAt.After(cutoff)
}

type Item struct {
	ID          uint   `json:"id"`
	OrderID     uint   `json:"order_id"`
	VariantID   uint   `json:"variant_id"`
	ProductID   uint   `json:"product_id"`
	VariantName string `json:"variant_name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   int64  `json:"unit_price"`
}

func (i Item) Subtotal() int64 {
	return i.UnitPrice * int64(i.Quantity)
}

// Checkout bounds. Binding tags repeat them for request validation.
const (
	MaxLineQuantity  = 1000
	MaxCheckoutLines = 50
)

type CheckoutLine struct {
	VariantID uint `json:"variant_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required,min=1,max=1000"`
}

type CheckoutInput struct {
	UserID        uint
	Items         []CheckoutLine
	PaymentMethod PaymentMethod
	ClientIP      string
}

type CheckoutResult struct {
	Order        *Order                  `json:"order"`
	Payment      *payment.IntentResponse `json:"payment,omitempty"`
	Instructions []string                `json:"instructions,omitempty"`
}

type ListFilter struct {
	UserID        *uint
	Status        *Status
	PaymentStatus *PaymentStatus
	Limit         int
	Page          int
}

type ListResult struct {
	Items []*Order `json:"items"`
	Total int64    `json:"total"`
	Page  int      `json:"page"`
	Limit int      `json:"limit"`
}
