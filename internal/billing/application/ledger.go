package application

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"prepaid-meter-cloud/internal/billing/application/events"
	billing "prepaid-meter-cloud/internal/billing/domain"
	"prepaid-meter-cloud/internal/observability/metrics"
)

// EventPublisher publishes domain events.
type EventPublisher interface {
	Publish(ctx context.Context, event any) error
}

// Clock provides time.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

// Now returns current time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// Ledger is the credit-only balance ledger. Every credit publishes a
// BalanceChanged event carrying the new balance, which feeds the threshold
// evaluator synchronously.
type Ledger struct {
	balances billing.BalanceRepository
	bus      EventPublisher
	clock    Clock
	logger   *log.Logger
}

// NewLedger constructs a ledger.
func NewLedger(balances billing.BalanceRepository, bus EventPublisher, clock Clock, logger *log.Logger) (*Ledger, error) {
	if balances == nil {
		return nil, errors.New("ledger: nil balance repository")
	}
	if bus == nil {
		return nil, errors.New("ledger: nil event publisher")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Ledger{balances: balances, bus: bus, clock: clock, logger: logger}, nil
}

// Credit adds a positive amount to the user's balance and returns the new
// balance. The balance never decreases; there is no debit operation.
func (l *Ledger) Credit(ctx context.Context, userID string, amount decimal.Decimal) (decimal.Decimal, error) {
	start := l.clock.Now()
	if userID == "" {
		return decimal.Zero, billing.ErrEmptyUserID
	}
	if !amount.IsPositive() {
		return decimal.Zero, billing.ErrInvalidAmount
	}

	balance, err := l.balances.Increment(ctx, userID, amount)
	if err != nil {
		metrics.ObserveCredit(metrics.ResultError, l.clock.Now().Sub(start))
		return decimal.Zero, err
	}
	metrics.ObserveCredit(metrics.ResultSuccess, l.clock.Now().Sub(start))

	event := events.BalanceChanged{
		UserID:     userID,
		Balance:    balance,
		OccurredAt: l.clock.Now().UTC(),
	}
	if err := l.bus.Publish(ctx, event); err != nil {
		// The credit has landed; a downstream handler error must not
		// roll it back.
		l.logger.Printf("ledger: balance changed handler: %v", err)
	}
	return balance, nil
}

// Balance returns the user's current balance.
func (l *Ledger) Balance(ctx context.Context, userID string) (decimal.Decimal, error) {
	if userID == "" {
		return decimal.Zero, billing.ErrEmptyUserID
	}
	return l.balances.Get(ctx, userID)
}
