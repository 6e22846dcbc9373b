package payment

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

const maxAttemptInsertRetries = 3

type Repository interface {
	NextAttempt(ctx context.Context, orderID uint, provider ProviderName, amount int64) (*Attempt, error)
	GetAttemptByTxnRef(ctx context.Context, txnRef string) (*Attempt, error)
	ListAttempts(ctx context.Context, orderID uint) ([]Attempt, error)

	SaveCallback(
		ctx context.Context,
		provider ProviderName,
		txnRef string,
		payload json.RawMessage,
		signatureValid bool,
	) (callbackID int64, err error)
	MarkCallbackOutcome(ctx context.Context, callbackID int64, outcome CallbackOutcome, reason string) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

// NextAttempt allocates the next attempt number for an order. A concurrent
// allocation trips the (order_id, attempt) unique index and is retried.
func (r *repository) NextAttempt(
	ctx context.Context,
	orderID uint,
	provider ProviderName,
	amount int64,
) (*Attempt, error) {
	for try := 0; try < maxAttemptInsertRetries; try++ {
		var last int
		err := r.db.QueryRowContext(ctx, `
			SELECT COALESCE(MAX(attempt), 0) FROM payment_attempts WHERE order_id = $1
		`, orderID).Scan(&last)
		if err != nil {
			return nil, err
		}

		a := &Attempt{
			OrderID:  orderID,
			Attempt:  last + 1,
			Provider: provider,
			TxnRef:   TxnRef(orderID, last+1),
			Amount:   amount,
			Status:   AttemptPending,
		}

		err = r.db.QueryRowContext(ctx, `
			INSERT INTO payment_attempts (order_id, attempt, provider, txn_ref, amount, status)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, created_at, updated_at
		`, a.OrderID, a.Attempt, a.Provider, a.TxnRef, a.Amount, a.Status).
			Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
		if err == nil {
			return a, nil
		}
		if !isUniqueViolation(err) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("allocate payment attempt for order %d: too many concurrent attempts", orderID)
}

func (r *repository) GetAttemptByTxnRef(ctx context.Context, txnRef string) (*Attempt, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, order_id, attempt, provider, txn_ref, amount, status, provider_txn_id, created_at, updated_at
		FROM payment_attempts WHERE txn_ref = $1
	`, txnRef)

	a, err := scanAttempt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAttemptNotFound
	}
	return a, err
}

func (r *repository) ListAttempts(ctx context.Context, orderID uint) ([]Attempt, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, attempt, provider, txn_ref, amount, status, provider_txn_id, created_at, updated_at
		FROM payment_attempts WHERE order_id = $1
		ORDER BY attempt
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAttempt(s scanner) (*Attempt, error) {
	var (
		a          Attempt
		providerID sql.NullString
	)
	err := s.Scan(
		&a.ID, &a.OrderID, &a.Attempt, &a.Provider, &a.TxnRef,
		&a.Amount, &a.Status, &providerID, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if providerID.Valid {
		a.ProviderTxnID = &providerID.String
	}
	return &a, nil
}

func (r *repository) SaveCallback(
	ctx context.Context,
	provider ProviderName,
	txnRef string,
	payload json.RawMessage,
	signatureValid bool,
) (int64, error) {

	const q = `
	INSERT INTO payment_callbacks (
		provider,
		txn_ref,
		signature_valid,
		payload
	)
	VALUES ($1, $2, $3, $4)
	RETURNING id;
	`

	var id int64
	err := r.db.QueryRowContext(ctx, q, provider, txnRef, signatureValid, payload).Scan(&id)
	return id, err
}

func (r *repository) MarkCallbackOutcome(
	ctx context.Context,
	callbackID int64,
	outcome CallbackOutcome,
	reason string,
) error {

	const q = `
	UPDATE payment_callbacks
	SET outcome = $2, process_error = NULLIF($3, ''), processed_at = now()
	WHERE id = $1;
	`

	_, err := r.db.ExecContext(ctx, q, callbackID, outcome, reason)
	return err
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
