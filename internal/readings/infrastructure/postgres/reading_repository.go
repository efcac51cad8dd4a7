package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	readings "prepaid-meter-cloud/internal/readings/domain"
)

const defaultReadingTable = "energy_readings"

// ReadingRepository is a Postgres implementation of the reading store.
type ReadingRepository struct {
	db    *sql.DB
	table string
}

// ReadingRepositoryOption configures the repository.
type ReadingRepositoryOption func(*ReadingRepository)

// WithReadingTable overrides the default table name.
func WithReadingTable(table string) ReadingRepositoryOption {
	return func(repo *ReadingRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// NewReadingRepository creates a repository using the default table name.
func NewReadingRepository(db *sql.DB, opts ...ReadingRepositoryOption) *ReadingRepository {
	repo := &ReadingRepository{db: db, table: defaultReadingTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// Insert appends a single reading.
func (r *ReadingRepository) Insert(ctx context.Context, reading readings.Reading) error {
	query := fmt.Sprintf(`
INSERT INTO %s (
	id,
	user_id,
	ts,
	energy_kwh,
	power_kw,
	cost,
	voltage,
	current,
	battery_percent,
	battery_status,
	created_at
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
)`, r.table)

	_, err := r.db.ExecContext(
		ctx,
		query,
		reading.ID,
		reading.UserID,
		reading.Timestamp,
		reading.EnergyKWh,
		reading.PowerKW,
		reading.Cost,
		nullDecimal(reading.Voltage),
		nullDecimal(reading.Current),
		nullInt(reading.BatteryPercent),
		nullString(reading.BatteryStatus),
		reading.CreatedAt,
	)
	return err
}

// InsertBatch appends readings inside a single transaction.
func (r *ReadingRepository) InsertBatch(ctx context.Context, batch []readings.Reading) error {
	if len(batch) == 0 {
		return errors.New("reading repo: empty batch")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	query := fmt.Sprintf(`
INSERT INTO %s (
	id, user_id, ts, energy_kwh, power_kw, cost,
	voltage, current, battery_percent, battery_status, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`, r.table)

	for _, reading := range batch {
		if _, err := tx.ExecContext(
			ctx,
			query,
			reading.ID,
			reading.UserID,
			reading.Timestamp,
			reading.EnergyKWh,
			reading.PowerKW,
			reading.Cost,
			nullDecimal(reading.Voltage),
			nullDecimal(reading.Current),
			nullInt(reading.BatteryPercent),
			nullString(reading.BatteryStatus),
			reading.CreatedAt,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListByUserAndDateRange returns readings with timestamp date (UTC) in the
// closed interval [startDate, endDate].
func (r *ReadingRepository) ListByUserAndDateRange(ctx context.Context, userID string, startDate, endDate time.Time) ([]readings.Reading, error) {
	start := truncateToDay(startDate)
	endExclusive := truncateToDay(endDate).AddDate(0, 0, 1)

	query := fmt.Sprintf(`
SELECT id, user_id, ts, energy_kwh, power_kw, cost,
	voltage, current, battery_percent, battery_status, created_at
FROM %s
WHERE user_id = $1
	AND ts >= $2
	AND ts < $3
ORDER BY ts ASC`, r.table)

	rows, err := r.db.QueryContext(ctx, query, userID, start, endExclusive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectReadings(rows)
}

// ListByUserSince returns readings at or after the given instant.
func (r *ReadingRepository) ListByUserSince(ctx context.Context, userID string, since time.Time) ([]readings.Reading, error) {
	query := fmt.Sprintf(`
SELECT id, user_id, ts, energy_kwh, power_kw, cost,
	voltage, current, battery_percent, battery_status, created_at
FROM %s
WHERE user_id = $1
	AND ts >= $2
ORDER BY ts ASC`, r.table)

	rows, err := r.db.QueryContext(ctx, query, userID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectReadings(rows)
}

// Latest returns the newest reading for a user.
func (r *ReadingRepository) Latest(ctx context.Context, userID string) (*readings.Reading, error) {
	query := fmt.Sprintf(`
SELECT id, user_id, ts, energy_kwh, power_kw, cost,
	voltage, current, battery_percent, battery_status, created_at
FROM %s
WHERE user_id = $1
ORDER BY ts DESC
LIMIT 1`, r.table)

	row := r.db.QueryRowContext(ctx, query, userID)
	reading, err := scanReading(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, readings.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return reading, nil
}

func collectReadings(rows *sql.Rows) ([]readings.Reading, error) {
	var result []readings.Reading
	for rows.Next() {
		reading, err := scanReading(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *reading)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func scanReading(scanner interface{ Scan(dest ...any) error }) (*readings.Reading, error) {
	var (
		reading        readings.Reading
		voltage        decimal.NullDecimal
		current        decimal.NullDecimal
		batteryPercent sql.NullInt64
		batteryStatus  sql.NullString
	)

	if err := scanner.Scan(
		&reading.ID,
		&reading.UserID,
		&reading.Timestamp,
		&reading.EnergyKWh,
		&reading.PowerKW,
		&reading.Cost,
		&voltage,
		&current,
		&batteryPercent,
		&batteryStatus,
		&reading.CreatedAt,
	); err != nil {
		return nil, err
	}

	if voltage.Valid {
		v := voltage.Decimal
		reading.Voltage = &v
	}
	if current.Valid {
		c := current.Decimal
		reading.Current = &c
	}
	if batteryPercent.Valid {
		p := int(batteryPercent.Int64)
		reading.BatteryPercent = &p
	}
	if batteryStatus.Valid {
		reading.BatteryStatus = batteryStatus.String
	}
	return &reading, nil
}

func nullDecimal(value *decimal.Decimal) decimal.NullDecimal {
	if value == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *value, Valid: true}
}

func nullInt(value *int) sql.NullInt64 {
	if value == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*value), Valid: true}
}

func nullString(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}

func truncateToDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
