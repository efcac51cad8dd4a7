package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReadingRecorded is published after a reading has been validated, priced,
// and stored. Threshold evaluation consumes it synchronously.
type ReadingRecorded struct {
	ReadingID  string
	UserID     string
	Timestamp  time.Time
	EnergyKWh  decimal.Decimal
	PowerKW    decimal.Decimal
	Cost       decimal.Decimal
	OccurredAt time.Time
}
