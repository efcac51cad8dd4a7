package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	alerts "prepaid-meter-cloud/internal/alerts/domain"
)

const defaultAlertTable = "alerts"

// AlertRepository is a Postgres implementation of the alert store.
type AlertRepository struct {
	db    *sql.DB
	table string
}

// AlertRepositoryOption configures the repository.
type AlertRepositoryOption func(*AlertRepository)

// WithAlertTable overrides the default table name.
func WithAlertTable(table string) AlertRepositoryOption {
	return func(repo *AlertRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// NewAlertRepository creates a repository using the default table name.
func NewAlertRepository(db *sql.DB, opts ...AlertRepositoryOption) *AlertRepository {
	repo := &AlertRepository{db: db, table: defaultAlertTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// Create stores a new alert.
func (r *AlertRepository) Create(ctx context.Context, alert *alerts.Alert) error {
	if alert == nil {
		return alerts.ErrNilAlert
	}
	data, err := json.Marshal(alert.Data)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	id, user_id, kind, title, message, data,
	is_read, read_at, email_sent, sms_sent, push_sent, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`, r.table)

	_, err = r.db.ExecContext(
		ctx,
		query,
		alert.ID,
		alert.UserID,
		string(alert.Kind),
		alert.Title,
		alert.Message,
		data,
		alert.IsRead,
		nullTime(alert.ReadAt),
		alert.EmailSent,
		alert.SMSSent,
		alert.PushSent,
		alert.CreatedAt,
	)
	return err
}

// GetByID returns the alert or ErrNotFound.
func (r *AlertRepository) GetByID(ctx context.Context, id string) (*alerts.Alert, error) {
	query := fmt.Sprintf(`
SELECT id, user_id, kind, title, message, data,
	is_read, read_at, email_sent, sms_sent, push_sent, created_at
FROM %s
WHERE id = $1`, r.table)

	alert, err := scanAlert(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, alerts.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return alert, nil
}

// MarkRead sets is_read/read_at once; repeat calls are no-ops.
func (r *AlertRepository) MarkRead(ctx context.Context, id string, at time.Time) error {
	query := fmt.Sprintf(`
UPDATE %s
SET is_read = TRUE, read_at = $2
WHERE id = $1 AND is_read = FALSE`, r.table)

	result, err := r.db.ExecContext(ctx, query, id, at.UTC())
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// Either already read (no-op) or missing.
		var exists int
		check := fmt.Sprintf("SELECT 1 FROM %s WHERE id = $1", r.table)
		if err := r.db.QueryRowContext(ctx, check, id).Scan(&exists); errors.Is(err, sql.ErrNoRows) {
			return alerts.ErrNotFound
		} else if err != nil {
			return err
		}
	}
	return nil
}

// MarkChannelSent atomically sets the channel flag to true.
func (r *AlertRepository) MarkChannelSent(ctx context.Context, id string, channel alerts.Channel) error {
	var column string
	switch channel {
	case alerts.ChannelEmail:
		column = "email_sent"
	case alerts.ChannelSMS:
		column = "sms_sent"
	case alerts.ChannelPush:
		column = "push_sent"
	default:
		return alerts.ErrInvalidChannel
	}

	query := fmt.Sprintf("UPDATE %s SET %s = TRUE WHERE id = $1", r.table, column)
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return alerts.ErrNotFound
	}
	return nil
}

// DeleteRead removes the user's read alerts and returns how many.
func (r *AlertRepository) DeleteRead(ctx context.Context, userID string) (int64, error) {
	query := fmt.Sprintf("DELETE FROM %s WHERE user_id = $1 AND is_read = TRUE", r.table)
	result, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ListByUser returns the user's alerts, newest first.
func (r *AlertRepository) ListByUser(ctx context.Context, userID string, unreadOnly bool) ([]*alerts.Alert, error) {
	query := fmt.Sprintf(`
SELECT id, user_id, kind, title, message, data,
	is_read, read_at, email_sent, sms_sent, push_sent, created_at
FROM %s
WHERE user_id = $1`, r.table)
	if unreadOnly {
		query += " AND is_read = FALSE"
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*alerts.Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func scanAlert(scanner interface{ Scan(dest ...any) error }) (*alerts.Alert, error) {
	var (
		alert  alerts.Alert
		kind   string
		data   []byte
		readAt sql.NullTime
	)
	if err := scanner.Scan(
		&alert.ID,
		&alert.UserID,
		&kind,
		&alert.Title,
		&alert.Message,
		&data,
		&alert.IsRead,
		&readAt,
		&alert.EmailSent,
		&alert.SMSSent,
		&alert.PushSent,
		&alert.CreatedAt,
	); err != nil {
		return nil, err
	}
	alert.Kind = alerts.Kind(kind)
	if readAt.Valid {
		value := readAt.Time
		alert.ReadAt = &value
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &alert.Data); err != nil {
			return nil, err
		}
	}
	return &alert, nil
}

func nullTime(value *time.Time) sql.NullTime {
	if value == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: value.UTC(), Valid: true}
}
