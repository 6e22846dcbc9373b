package payment

import (
	"time"
)

type ProviderName string

const (
	ProviderVNPay ProviderName = "VNPAY"
	ProviderMoMo  ProviderName = "MOMO"
)

type AttemptStatus string

const (
	AttemptPending AttemptStatus = "PENDING"
	AttemptPaid    AttemptStatus = "PAID"
	AttemptFailed  AttemptStatus = "FAILED"
)

// Attempt is one try at paying an order. Every attempt carries its own
// transaction reference.
type Attempt struct {
	ID            int64         `json:"id"`
	OrderID       uint          `json:"order_id"`
	Attempt       int           `json:"attempt"`
	Provider      ProviderName  `json:"provider"`
	TxnRef        string        `json:"txn_ref"`
	Amount        int64         `json:"amount"`
	Status        AttemptStatus `json:"status"`
	ProviderTxnID *string       `json:"provider_txn_id,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

type IntentRequest struct {
	OrderID   uint
	TxnRef    string
	Amount    int64
	OrderInfo string
	ClientIP  string
	ReturnURL string
	CreatedAt time.Time
}

type IntentResponse struct {
	Provider    ProviderName `json:"provider"`
	TxnRef      string       `json:"txn_ref"`
	RedirectURL string       `json:"redirect_url"`
	ExpiresAt   time.Time    `json:"expires_at"`
}

// CallbackResult is a verified provider notification, amounts already in
// major currency units.
type CallbackResult struct {
	Provider      ProviderName
	TxnRef        string
	Amount        int64
	Paid          bool
	ResponseCode  string
	ProviderTxnID string
	BankCode      string
}

type CallbackOutcome string

const (
	OutcomeApplied           CallbackOutcome = "APPLIED"
	OutcomeStale             CallbackOutcome = "STALE"
	OutcomeSignatureInvalid  CallbackOutcome = "SIGNATURE_INVALID"
	OutcomeAmountMismatch    CallbackOutcome = "AMOUNT_MISMATCH"
	OutcomeOrderNotFound     CallbackOutcome = "ORDER_NOT_FOUND"
	OutcomeProcessingFailure CallbackOutcome = "ERROR"
)
