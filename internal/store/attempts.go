package store

import (
	"context"
	"database/sql"
	"fmt"

	"naturalpuff/internal/models"
)

// CreatePaymentAttempt inserts a row into the server-owned attempt ledger
func (s *Store) CreatePaymentAttempt(ctx context.Context, attempt *models.PaymentAttempt) error {
	query := `
		INSERT INTO payment_attempts (id, order_id, txn_ref, method, payment_app, amount, status, customer_info)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`

	return s.db.QueryRowxContext(ctx, query,
		attempt.ID, attempt.OrderID, attempt.TxnRef, attempt.Method,
		attempt.PaymentApp, attempt.Amount, attempt.Status, attempt.CustomerInfo).
		Scan(&attempt.CreatedAt, &attempt.UpdatedAt)
}

// GetPaymentAttemptByTxnRef retrieves an attempt by transaction reference
func (s *Store) GetPaymentAttemptByTxnRef(ctx context.Context, txnRef string) (*models.PaymentAttempt, error) {
	var attempt models.PaymentAttempt
	err := s.db.GetContext(ctx, &attempt,
		"SELECT * FROM payment_attempts WHERE txn_ref = $1", txnRef)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("payment attempt %s: %w", txnRef, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

// GetLatestAttemptByOrderID retrieves the most recent attempt for an order
func (s *Store) GetLatestAttemptByOrderID(ctx context.Context, orderID string) (*models.PaymentAttempt, error) {
	var attempt models.PaymentAttempt
	err := s.db.GetContext(ctx, &attempt,
		"SELECT * FROM payment_attempts WHERE order_id = $1 ORDER BY created_at DESC LIMIT 1", orderID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("payment attempt for order %s: %w", orderID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

// UpdateAttemptStatus updates the status of a payment attempt
func (s *Store) UpdateAttemptStatus(ctx context.Context, attemptID, status string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE payment_attempts SET status = $1, updated_at = NOW() WHERE id = $2",
		status, attemptID)
	return err
}

// ListStaleAttempts returns initiated attempts older than the given number
// of minutes, the sweep input for the reconciliation job.
func (s *Store) ListStaleAttempts(ctx context.Context, olderThanMinutes int, limit int) ([]models.PaymentAttempt, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var attempts []models.PaymentAttempt
	err := s.db.SelectContext(ctx, &attempts, `
		SELECT * FROM payment_attempts
		WHERE status = $1 AND created_at < NOW() - ($2 || ' minutes')::interval
		ORDER BY created_at ASC
		LIMIT $3`,
		models.AttemptStatusInitiated, olderThanMinutes, limit)
	return attempts, err
}
