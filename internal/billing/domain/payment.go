package billing

import (
	"context"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus is the lifecycle state of a payment.
type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentProcessing PaymentStatus = "processing"
	PaymentSuccess    PaymentStatus = "success"
	PaymentFailed     PaymentStatus = "failed"
	PaymentCancelled  PaymentStatus = "cancelled"
	PaymentRefunded   PaymentStatus = "refunded"
)

// Terminal reports whether the status admits no further transitions.
func (s PaymentStatus) Terminal() bool {
	switch s {
	case PaymentSuccess, PaymentFailed, PaymentCancelled, PaymentRefunded:
		return true
	default:
		return false
	}
}

// Payment is a top-up attempt. A successful payment credits the user's
// balance exactly once.
type Payment struct {
	ID            string
	UserID        string
	Reference     string
	Amount        decimal.Decimal
	Method        string
	Status        PaymentStatus
	TransactionID string
	Description   string
	CreatedAt     time.Time
	CompletedAt   *time.Time
}

// NewReference generates a payment reference of the form PAY-XXXXXXXXXX.
func NewReference() string {
	id := uuid.New()
	return "PAY-" + strings.ToUpper(hex.EncodeToString(id[:])[:10])
}

// BalanceRepository is the credit-only balance store. Balances start at
// zero and only ever increase.
type BalanceRepository interface {
	// Get returns the user's balance; unknown users hold zero.
	Get(ctx context.Context, userID string) (decimal.Decimal, error)
	// Increment atomically adds amount and returns the new balance.
	// Concurrent increments for the same user serialize; a persistent
	// serialization conflict surfaces as ErrConflict.
	Increment(ctx context.Context, userID string, amount decimal.Decimal) (decimal.Decimal, error)
}

// PaymentRepository persists payments.
type PaymentRepository interface {
	Create(ctx context.Context, payment *Payment) error
	GetByID(ctx context.Context, id string) (*Payment, error)
	GetByReference(ctx context.Context, reference string) (*Payment, error)
	// Complete moves a non-terminal payment to the given terminal status
	// and reports whether this call performed the transition. Payments
	// already in a terminal state are left untouched (claimed=false).
	Complete(ctx context.Context, id string, status PaymentStatus, transactionID string, at time.Time) (claimed bool, err error)
	ListByUser(ctx context.Context, userID string) ([]*Payment, error)
}
