package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	accounts "prepaid-meter-cloud/internal/accounts/domain"
)

const defaultSettingsTable = "user_settings"

// SettingsRepository is a Postgres implementation of the settings store.
// Channel preferences are stored as a jsonb column keyed by category.
type SettingsRepository struct {
	db    *sql.DB
	table string
}

// SettingsRepositoryOption configures the repository.
type SettingsRepositoryOption func(*SettingsRepository)

// WithSettingsTable overrides the default table name.
func WithSettingsTable(table string) SettingsRepositoryOption {
	return func(repo *SettingsRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// NewSettingsRepository creates a repository using the default table name.
func NewSettingsRepository(db *sql.DB, opts ...SettingsRepositoryOption) *SettingsRepository {
	repo := &SettingsRepository{db: db, table: defaultSettingsTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

type channelPreferenceRow struct {
	Email bool `json:"email"`
	SMS   bool `json:"sms"`
	Push  bool `json:"push"`
}

// Get returns the stored settings or ErrNotFound.
func (r *SettingsRepository) Get(ctx context.Context, userID string) (*accounts.Settings, error) {
	if userID == "" {
		return nil, accounts.ErrEmptyUserID
	}
	query := fmt.Sprintf(`
SELECT user_id, email, phone,
	usage_alert_enabled, low_balance_alert_enabled,
	usage_threshold_kwh, low_balance_threshold, channels
FROM %s
WHERE user_id = $1`, r.table)

	var (
		settings accounts.Settings
		email    sql.NullString
		phone    sql.NullString
		channels []byte
	)
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&settings.UserID,
		&email,
		&phone,
		&settings.UsageAlertEnabled,
		&settings.LowBalanceAlertEnabled,
		&settings.UsageThresholdKWh,
		&settings.LowBalanceThreshold,
		&channels,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, accounts.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	settings.Email = email.String
	settings.Phone = phone.String

	raw := map[string]channelPreferenceRow{}
	if len(channels) > 0 {
		if err := json.Unmarshal(channels, &raw); err != nil {
			return nil, err
		}
	}
	settings.Channels = make(accounts.ChannelPreferences, len(raw))
	for category, pref := range raw {
		settings.Channels[category] = accounts.ChannelPreference{
			Email: pref.Email,
			SMS:   pref.SMS,
			Push:  pref.Push,
		}
	}
	return &settings, nil
}

// Put creates or replaces the user's settings.
func (r *SettingsRepository) Put(ctx context.Context, settings *accounts.Settings) error {
	if settings == nil {
		return accounts.ErrNilSettings
	}
	if settings.UserID == "" {
		return accounts.ErrEmptyUserID
	}

	raw := make(map[string]channelPreferenceRow, len(settings.Channels))
	for category, pref := range settings.Channels {
		raw[category] = channelPreferenceRow{Email: pref.Email, SMS: pref.SMS, Push: pref.Push}
	}
	channels, err := json.Marshal(raw)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	user_id, email, phone,
	usage_alert_enabled, low_balance_alert_enabled,
	usage_threshold_kwh, low_balance_threshold, channels
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (user_id) DO UPDATE SET
	email = EXCLUDED.email,
	phone = EXCLUDED.phone,
	usage_alert_enabled = EXCLUDED.usage_alert_enabled,
	low_balance_alert_enabled = EXCLUDED.low_balance_alert_enabled,
	usage_threshold_kwh = EXCLUDED.usage_threshold_kwh,
	low_balance_threshold = EXCLUDED.low_balance_threshold,
	channels = EXCLUDED.channels`, r.table)

	_, err = r.db.ExecContext(
		ctx,
		query,
		settings.UserID,
		nullString(settings.Email),
		nullString(settings.Phone),
		settings.UsageAlertEnabled,
		settings.LowBalanceAlertEnabled,
		settings.UsageThresholdKWh,
		settings.LowBalanceThreshold,
		channels,
	)
	return err
}

func nullString(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}
