package memory

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	billing "prepaid-meter-cloud/internal/billing/domain"
)

// BalanceRepository keeps balances in memory. The mutex serializes
// concurrent increments for all users.
type BalanceRepository struct {
	mu     sync.Mutex
	byUser map[string]decimal.Decimal
}

// NewBalanceRepository constructs an empty repository.
func NewBalanceRepository() *BalanceRepository {
	return &BalanceRepository{byUser: make(map[string]decimal.Decimal)}
}

// Get returns the user's balance; unknown users hold zero.
func (r *BalanceRepository) Get(_ context.Context, userID string) (decimal.Decimal, error) {
	if userID == "" {
		return decimal.Zero, billing.ErrEmptyUserID
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	balance, ok := r.byUser[userID]
	if !ok {
		return decimal.Zero, nil
	}
	return balance, nil
}

// Increment atomically adds amount and returns the new balance.
func (r *BalanceRepository) Increment(_ context.Context, userID string, amount decimal.Decimal) (decimal.Decimal, error) {
	if userID == "" {
		return decimal.Zero, billing.ErrEmptyUserID
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	balance := r.byUser[userID].Add(amount)
	r.byUser[userID] = balance
	return balance, nil
}
