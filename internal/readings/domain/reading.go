package readings

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Battery status values reported by meters with battery backup.
const (
	BatteryCharging    = "charging"
	BatteryDischarging = "discharging"
	BatteryIdle        = "idle"
	BatteryFull        = "full"
)

// Reading is one timestamped meter measurement for a user. Readings are
// immutable once stored; the cost is derived from the tariff at creation
// time and never recomputed.
type Reading struct {
	ID        string
	UserID    string
	Timestamp time.Time
	EnergyKWh decimal.Decimal
	PowerKW   decimal.Decimal
	Cost      decimal.Decimal

	Voltage        *decimal.Decimal
	Current        *decimal.Decimal
	BatteryPercent *int
	BatteryStatus  string

	CreatedAt time.Time
}

// Validate checks reading invariants before storage.
func (r Reading) Validate() error {
	if r.UserID == "" {
		return ErrEmptyUserID
	}
	if r.Timestamp.IsZero() {
		return ErrZeroTimestamp
	}
	if r.EnergyKWh.IsNegative() {
		return ErrNegativeEnergy
	}
	if r.PowerKW.IsNegative() {
		return ErrNegativePower
	}
	if r.BatteryStatus != "" && !ValidBatteryStatus(r.BatteryStatus) {
		return ErrInvalidBatteryStatus
	}
	return nil
}

// ValidBatteryStatus reports whether the status is a supported value.
func ValidBatteryStatus(status string) bool {
	switch status {
	case BatteryCharging, BatteryDischarging, BatteryIdle, BatteryFull:
		return true
	default:
		return false
	}
}

// ReadingRepository persists meter readings. Writes are append-only; the
// core never updates or deletes a stored reading.
type ReadingRepository interface {
	Insert(ctx context.Context, reading Reading) error
	InsertBatch(ctx context.Context, batch []Reading) error
	// ListByUserAndDateRange returns readings whose timestamp date (UTC)
	// falls inside the closed interval [startDate, endDate].
	ListByUserAndDateRange(ctx context.Context, userID string, startDate, endDate time.Time) ([]Reading, error)
	// ListByUserSince returns readings at or after the given instant.
	ListByUserSince(ctx context.Context, userID string, since time.Time) ([]Reading, error)
	Latest(ctx context.Context, userID string) (*Reading, error)
}
