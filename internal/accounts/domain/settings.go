package accounts

import (
	"context"

	"github.com/shopspring/decimal"
)

// Alert categories a channel preference can gate.
const (
	CategoryUsage   = "usage"
	CategoryBalance = "balance"
	CategoryPayment = "payment"
	CategorySystem  = "system"
)

// Notification channels.
const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
	ChannelPush  = "push"
)

// ChannelPreference holds the per-channel switches for one alert category.
type ChannelPreference struct {
	Email bool
	SMS   bool
	Push  bool
}

// DefaultChannelPreference is email and push on, sms off.
func DefaultChannelPreference() ChannelPreference {
	return ChannelPreference{Email: true, SMS: false, Push: true}
}

// ChannelPreferences maps alert category to its channel switches.
type ChannelPreferences map[string]ChannelPreference

// Allows reports whether the channel is enabled for the category. Unknown
// categories fall back to the defaults.
func (p ChannelPreferences) Allows(channel, category string) bool {
	pref, ok := p[category]
	if !ok {
		pref = DefaultChannelPreference()
	}
	switch channel {
	case ChannelEmail:
		return pref.Email
	case ChannelSMS:
		return pref.SMS
	case ChannelPush:
		return pref.Push
	default:
		return false
	}
}

// Settings holds a user's alerting configuration. Balance itself lives in
// billing; this is configuration only.
type Settings struct {
	UserID string
	Email  string
	Phone  string

	UsageAlertEnabled      bool
	LowBalanceAlertEnabled bool
	UsageThresholdKWh      decimal.Decimal
	LowBalanceThreshold    decimal.Decimal

	Channels ChannelPreferences
}

// DefaultSettings returns settings with both alerts enabled, the stock
// thresholds (5.0 kWh usage, 10.00 low balance), and default channel
// preferences for every category.
func DefaultSettings(userID string) *Settings {
	channels := ChannelPreferences{}
	for _, category := range []string{CategoryUsage, CategoryBalance, CategoryPayment, CategorySystem} {
		channels[category] = DefaultChannelPreference()
	}
	return &Settings{
		UserID:                 userID,
		UsageAlertEnabled:      true,
		LowBalanceAlertEnabled: true,
		UsageThresholdKWh:      decimal.RequireFromString("5.0"),
		LowBalanceThreshold:    decimal.RequireFromString("10.00"),
		Channels:               channels,
	}
}

// SettingsRepository persists per-user alert configuration.
type SettingsRepository interface {
	// Get returns the stored settings or ErrNotFound.
	Get(ctx context.Context, userID string) (*Settings, error)
	// Put creates or replaces the user's settings.
	Put(ctx context.Context, settings *Settings) error
}
