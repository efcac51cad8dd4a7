package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	billing "prepaid-meter-cloud/internal/billing/domain"
)

const defaultPaymentTable = "payments"

// PaymentRepository is a Postgres implementation of the payment store.
type PaymentRepository struct {
	db    *sql.DB
	table string
}

// PaymentRepositoryOption configures the repository.
type PaymentRepositoryOption func(*PaymentRepository)

// WithPaymentTable overrides the default table name.
func WithPaymentTable(table string) PaymentRepositoryOption {
	return func(repo *PaymentRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// NewPaymentRepository creates a repository using the default table name.
func NewPaymentRepository(db *sql.DB, opts ...PaymentRepositoryOption) *PaymentRepository {
	repo := &PaymentRepository{db: db, table: defaultPaymentTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// Create stores a new payment.
func (r *PaymentRepository) Create(ctx context.Context, payment *billing.Payment) error {
	if payment == nil {
		return billing.ErrNilPayment
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	id, user_id, reference, amount, method, status,
	transaction_id, description, created_at, completed_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`, r.table)

	_, err := r.db.ExecContext(
		ctx,
		query,
		payment.ID,
		payment.UserID,
		payment.Reference,
		payment.Amount,
		nullString(payment.Method),
		string(payment.Status),
		nullString(payment.TransactionID),
		nullString(payment.Description),
		payment.CreatedAt,
		nullTime(payment.CompletedAt),
	)
	return err
}

// GetByID returns the payment or ErrPaymentNotFound.
func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*billing.Payment, error) {
	return r.getBy(ctx, "id", id)
}

// GetByReference returns the payment with the reference.
func (r *PaymentRepository) GetByReference(ctx context.Context, reference string) (*billing.Payment, error) {
	return r.getBy(ctx, "reference", reference)
}

func (r *PaymentRepository) getBy(ctx context.Context, column, value string) (*billing.Payment, error) {
	query := fmt.Sprintf(`
SELECT id, user_id, reference, amount, method, status,
	transaction_id, description, created_at, completed_at
FROM %s
WHERE %s = $1`, r.table, column)

	payment, err := scanPayment(r.db.QueryRowContext(ctx, query, value))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, billing.ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// Complete moves a non-terminal payment to the given terminal status. The
// status guard in the WHERE clause makes the claim atomic: exactly one
// caller wins, the rest observe claimed=false.
func (r *PaymentRepository) Complete(ctx context.Context, id string, status billing.PaymentStatus, transactionID string, at time.Time) (bool, error) {
	if !status.Terminal() {
		return false, billing.ErrInvalidStatus
	}
	query := fmt.Sprintf(`
UPDATE %s
SET status = $2,
	transaction_id = COALESCE(NULLIF($3, ''), transaction_id),
	completed_at = $4
WHERE id = $1
	AND status IN ('pending', 'processing')`, r.table)

	result, err := r.db.ExecContext(ctx, query, id, string(status), transactionID, at.UTC())
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected > 0 {
		return true, nil
	}

	// Distinguish "already terminal" from "missing".
	var exists int
	check := fmt.Sprintf("SELECT 1 FROM %s WHERE id = $1", r.table)
	if err := r.db.QueryRowContext(ctx, check, id).Scan(&exists); errors.Is(err, sql.ErrNoRows) {
		return false, billing.ErrPaymentNotFound
	} else if err != nil {
		return false, err
	}
	return false, nil
}

// ListByUser returns the user's payments, newest first.
func (r *PaymentRepository) ListByUser(ctx context.Context, userID string) ([]*billing.Payment, error) {
	query := fmt.Sprintf(`
SELECT id, user_id, reference, amount, method, status,
	transaction_id, description, created_at, completed_at
FROM %s
WHERE user_id = $1
ORDER BY created_at DESC`, r.table)

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*billing.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, payment)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func scanPayment(scanner interface{ Scan(dest ...any) error }) (*billing.Payment, error) {
	var (
		payment       billing.Payment
		status        string
		method        sql.NullString
		transactionID sql.NullString
		description   sql.NullString
		completedAt   sql.NullTime
	)
	if err := scanner.Scan(
		&payment.ID,
		&payment.UserID,
		&payment.Reference,
		&payment.Amount,
		&method,
		&status,
		&transactionID,
		&description,
		&payment.CreatedAt,
		&completedAt,
	); err != nil {
		return nil, err
	}
	payment.Status = billing.PaymentStatus(status)
	payment.Method = method.String
	payment.TransactionID = transactionID.String
	payment.Description = description.String
	if completedAt.Valid {
		value := completedAt.Time
		payment.CompletedAt = &value
	}
	return &payment, nil
}

func nullString(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}

func nullTime(value *time.Time) sql.NullTime {
	if value == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: value.UTC(), Valid: true}
}
