package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// BalanceChanged is published after a credit lands on a user's balance.
type BalanceChanged struct {
	UserID     string
	Balance    decimal.Decimal
	OccurredAt time.Time
}
