package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	analytics "prepaid-meter-cloud/internal/analytics/domain"
)

const defaultSummaryTable = "usage_summaries"

// SummaryRepository is a Postgres implementation of the summary store.
// The table carries a unique constraint on (user_id, period_type,
// start_date).
type SummaryRepository struct {
	db    *sql.DB
	table string
}

// SummaryRepositoryOption configures the repository.
type SummaryRepositoryOption func(*SummaryRepository)

// WithSummaryTable overrides the default table name.
func WithSummaryTable(table string) SummaryRepositoryOption {
	return func(repo *SummaryRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// NewSummaryRepository creates a repository using the default table name.
func NewSummaryRepository(db *sql.DB, opts ...SummaryRepositoryOption) *SummaryRepository {
	repo := &SummaryRepository{db: db, table: defaultSummaryTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// Upsert replaces the row for (user_id, period_type, start_date) and
// reports whether it was newly created. The existence check and the write
// run in one transaction with the key row locked, so concurrent recomputes
// of the same key serialize.
func (r *SummaryRepository) Upsert(ctx context.Context, summary *analytics.PeriodSummary) (bool, error) {
	if summary == nil {
		return false, analytics.ErrNilSummary
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	checkQuery := fmt.Sprintf(`
SELECT 1
FROM %s
WHERE user_id = $1 AND period_type = $2 AND start_date = $3
FOR UPDATE`, r.table)

	var one int
	err = tx.QueryRowContext(ctx, checkQuery, summary.UserID, string(summary.PeriodType), summary.StartDate).Scan(&one)
	exists := err == nil
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, err
	}

	upsertQuery := fmt.Sprintf(`
INSERT INTO %s (
	user_id,
	period_type,
	start_date,
	end_date,
	total_energy_kwh,
	average_power_kw,
	peak_power_kw,
	total_cost,
	reading_count,
	created_at,
	updated_at
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
)
ON CONFLICT (user_id, period_type, start_date) DO UPDATE SET
	end_date = EXCLUDED.end_date,
	total_energy_kwh = EXCLUDED.total_energy_kwh,
	average_power_kw = EXCLUDED.average_power_kw,
	peak_power_kw = EXCLUDED.peak_power_kw,
	total_cost = EXCLUDED.total_cost,
	reading_count = EXCLUDED.reading_count,
	updated_at = EXCLUDED.updated_at`, r.table)

	if _, err := tx.ExecContext(
		ctx,
		upsertQuery,
		summary.UserID,
		string(summary.PeriodType),
		summary.StartDate,
		summary.EndDate,
		summary.TotalEnergyKWh,
		summary.AveragePowerKW,
		summary.PeakPowerKW,
		summary.TotalCost,
		summary.ReadingCount,
		summary.CreatedAt,
		summary.UpdatedAt,
	); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return !exists, nil
}

// Get returns the summary for the key or ErrSummaryNotFound.
func (r *SummaryRepository) Get(ctx context.Context, userID string, periodType analytics.PeriodType, startDate time.Time) (*analytics.PeriodSummary, error) {
	query := fmt.Sprintf(`
SELECT user_id, period_type, start_date, end_date,
	total_energy_kwh, average_power_kw, peak_power_kw, total_cost,
	reading_count, created_at, updated_at
FROM %s
WHERE user_id = $1 AND period_type = $2 AND start_date = $3`, r.table)

	row := r.db.QueryRowContext(ctx, query, userID, string(periodType), startDate)
	summary, err := scanSummary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, analytics.ErrSummaryNotFound
	}
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// ListByUser returns the user's summaries of the given type, newest first.
func (r *SummaryRepository) ListByUser(ctx context.Context, userID string, periodType analytics.PeriodType) ([]*analytics.PeriodSummary, error) {
	query := fmt.Sprintf(`
SELECT user_id, period_type, start_date, end_date,
	total_energy_kwh, average_power_kw, peak_power_kw, total_cost,
	reading_count, created_at, updated_at
FROM %s
WHERE user_id = $1 AND period_type = $2
ORDER BY start_date DESC`, r.table)

	rows, err := r.db.QueryContext(ctx, query, userID, string(periodType))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*analytics.PeriodSummary
	for rows.Next() {
		summary, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func scanSummary(scanner interface{ Scan(dest ...any) error }) (*analytics.PeriodSummary, error) {
	var (
		summary    analytics.PeriodSummary
		periodType string
	)
	if err := scanner.Scan(
		&summary.UserID,
		&periodType,
		&summary.StartDate,
		&summary.EndDate,
		&summary.TotalEnergyKWh,
		&summary.AveragePowerKW,
		&summary.PeakPowerKW,
		&summary.TotalCost,
		&summary.ReadingCount,
		&summary.CreatedAt,
		&summary.UpdatedAt,
	); err != nil {
		return nil, err
	}
	summary.PeriodType = analytics.PeriodType(periodType)
	return &summary, nil
}
