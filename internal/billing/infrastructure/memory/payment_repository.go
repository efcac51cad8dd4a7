package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	billing "prepaid-meter-cloud/internal/billing/domain"
)

// PaymentRepository keeps payments in memory.
type PaymentRepository struct {
	mu   sync.Mutex
	byID map[string]*billing.Payment
}

// NewPaymentRepository constructs an empty repository.
func NewPaymentRepository() *PaymentRepository {
	return &PaymentRepository{byID: make(map[string]*billing.Payment)}
}

// Create stores a new payment.
func (r *PaymentRepository) Create(_ context.Context, payment *billing.Payment) error {
	if payment == nil {
		return billing.ErrNilPayment
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *payment
	r.byID[payment.ID] = &copied
	return nil
}

// GetByID returns the payment or ErrPaymentNotFound.
func (r *PaymentRepository) GetByID(_ context.Context, id string) (*billing.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.byID[id]
	if !ok {
		return nil, billing.ErrPaymentNotFound
	}
	copied := *stored
	return &copied, nil
}

// GetByReference returns the payment with the reference.
func (r *PaymentRepository) GetByReference(_ context.Context, reference string) (*billing.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, stored := range r.byID {
		if stored.Reference == reference {
			copied := *stored
			return &copied, nil
		}
	}
	return nil, billing.ErrPaymentNotFound
}

// Complete moves a non-terminal payment to the terminal status.
func (r *PaymentRepository) Complete(_ context.Context, id string, status billing.PaymentStatus, transactionID string, at time.Time) (bool, error) {
	if !status.Terminal() {
		return false, billing.ErrInvalidStatus
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.byID[id]
	if !ok {
		return false, billing.ErrPaymentNotFound
	}
	if stored.Status.Terminal() {
		return false, nil
	}
	stored.Status = status
	if transactionID != "" {
		stored.TransactionID = transactionID
	}
	completedAt := at.UTC()
	stored.CompletedAt = &completedAt
	return true, nil
}

// ListByUser returns the user's payments, newest first.
func (r *PaymentRepository) ListByUser(_ context.Context, userID string) ([]*billing.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*billing.Payment
	for _, stored := range r.byID {
		if stored.UserID != userID {
			continue
		}
		copied := *stored
		result = append(result, &copied)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}
