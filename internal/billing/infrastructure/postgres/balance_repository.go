package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	billing "prepaid-meter-cloud/internal/billing/domain"
)

const defaultBalanceTable = "user_accounts"

// Retry budget for serialization/deadlock conflicts on Increment.
const maxIncrementAttempts = 3

// BalanceRepository is a Postgres implementation of the balance store.
type BalanceRepository struct {
	db    *sql.DB
	table string
}

// BalanceRepositoryOption configures the repository.
type BalanceRepositoryOption func(*BalanceRepository)

// WithBalanceTable overrides the default table name.
func WithBalanceTable(table string) BalanceRepositoryOption {
	return func(repo *BalanceRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// NewBalanceRepository creates a repository using the default table name.
func NewBalanceRepository(db *sql.DB, opts ...BalanceRepositoryOption) *BalanceRepository {
	repo := &BalanceRepository{db: db, table: defaultBalanceTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// Get returns the user's balance; unknown users hold zero.
func (r *BalanceRepository) Get(ctx context.Context, userID string) (decimal.Decimal, error) {
	if userID == "" {
		return decimal.Zero, billing.ErrEmptyUserID
	}
	query := fmt.Sprintf("SELECT balance FROM %s WHERE user_id = $1", r.table)

	var balance decimal.Decimal
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

// Increment atomically adds amount and returns the new balance. The single
// upsert statement serializes per row; transient serialization or deadlock
// failures are retried a bounded number of times before ErrConflict.
func (r *BalanceRepository) Increment(ctx context.Context, userID string, amount decimal.Decimal) (decimal.Decimal, error) {
	if userID == "" {
		return decimal.Zero, billing.ErrEmptyUserID
	}
	query := fmt.Sprintf(`
INSERT INTO %s AS a (user_id, balance)
VALUES ($1, $2)
ON CONFLICT (user_id) DO UPDATE SET balance = a.balance + EXCLUDED.balance
RETURNING a.balance`, r.table)

	var lastErr error
	for attempt := 0; attempt < maxIncrementAttempts; attempt++ {
		var balance decimal.Decimal
		err := r.db.QueryRowContext(ctx, query, userID, amount).Scan(&balance)
		if err == nil {
			return balance, nil
		}
		if !isRetryable(err) {
			return decimal.Zero, err
		}
		lastErr = err
	}
	return decimal.Zero, fmt.Errorf("%w: %v", billing.ErrConflict, lastErr)
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	// serialization_failure, deadlock_detected
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}
