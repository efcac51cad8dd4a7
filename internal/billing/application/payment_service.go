package application

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	billing "prepaid-meter-cloud/internal/billing/domain"
)

// AlertSink receives payment lifecycle alerts. Wired to the alert
// dispatcher in main; kind is the alert kind string.
type AlertSink interface {
	Raise(ctx context.Context, userID, kind, title, message string, data map[string]any) error
}

// PaymentService drives the payment lifecycle. A confirmed payment credits
// the ledger exactly once, however many times confirmation is reported.
type PaymentService struct {
	payments billing.PaymentRepository
	ledger   *Ledger
	alerts   AlertSink
	clock    Clock
	logger   *log.Logger
}

// NewPaymentService constructs a payment service. alerts may be nil.
func NewPaymentService(payments billing.PaymentRepository, ledger *Ledger, alerts AlertSink, clock Clock, logger *log.Logger) (*PaymentService, error) {
	if payments == nil {
		return nil, errors.New("payment service: nil payment repository")
	}
	if ledger == nil {
		return nil, errors.New("payment service: nil ledger")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &PaymentService{
		payments: payments,
		ledger:   ledger,
		alerts:   alerts,
		clock:    clock,
		logger:   logger,
	}, nil
}

// CreatePayment opens a pending payment with a fresh PAY- reference.
func (s *PaymentService) CreatePayment(ctx context.Context, userID string, amount decimal.Decimal, method, description string) (*billing.Payment, error) {
	if userID == "" {
		return nil, billing.ErrEmptyUserID
	}
	if !amount.IsPositive() {
		return nil, billing.ErrInvalidAmount
	}

	payment := &billing.Payment{
		ID:          uuid.NewString(),
		UserID:      userID,
		Reference:   billing.NewReference(),
		Amount:      amount,
		Method:      method,
		Status:      billing.PaymentPending,
		Description: description,
		CreatedAt:   s.clock.Now().UTC(),
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, err
	}
	return payment, nil
}

// ConfirmPayment marks the payment successful and credits the ledger.
// Confirming an already-successful payment returns it unchanged without a
// second credit. Confirming a payment in another terminal state is an
// ErrInvalidStatus.
func (s *PaymentService) ConfirmPayment(ctx context.Context, paymentID, transactionID string) (*billing.Payment, error) {
	claimed, err := s.payments.Complete(ctx, paymentID, billing.PaymentSuccess, transactionID, s.clock.Now().UTC())
	if err != nil {
		return nil, err
	}
	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		if payment.Status == billing.PaymentSuccess {
			return payment, nil
		}
		return nil, fmt.Errorf("%w: payment is %s", billing.ErrInvalidStatus, payment.Status)
	}

	if _, err := s.ledger.Credit(ctx, payment.UserID, payment.Amount); err != nil {
		return nil, err
	}
	s.raise(ctx, payment.UserID, "payment_success", "Payment Successful",
		fmt.Sprintf("Your payment of $%s was successful.", payment.Amount.StringFixed(2)),
		map[string]any{
			"payment_id": payment.ID,
			"reference":  payment.Reference,
			"amount":     payment.Amount.String(),
		})
	return payment, nil
}

// FailPayment marks the payment failed without touching the balance.
func (s *PaymentService) FailPayment(ctx context.Context, paymentID, reason string) (*billing.Payment, error) {
	claimed, err := s.payments.Complete(ctx, paymentID, billing.PaymentFailed, "", s.clock.Now().UTC())
	if err != nil {
		return nil, err
	}
	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		if payment.Status == billing.PaymentFailed {
			return payment, nil
		}
		return nil, fmt.Errorf("%w: payment is %s", billing.ErrInvalidStatus, payment.Status)
	}

	message := fmt.Sprintf("Your payment of $%s failed.", payment.Amount.StringFixed(2))
	if reason != "" {
		message += " " + reason
	}
	s.raise(ctx, payment.UserID, "payment_failed", "Payment Failed", message, map[string]any{
		"payment_id": payment.ID,
		"reference":  payment.Reference,
	})
	return payment, nil
}

// Payment returns the payment by id.
func (s *PaymentService) Payment(ctx context.Context, paymentID string) (*billing.Payment, error) {
	return s.payments.GetByID(ctx, paymentID)
}

// Payments lists the user's payments.
func (s *PaymentService) Payments(ctx context.Context, userID string) ([]*billing.Payment, error) {
	if userID == "" {
		return nil, billing.ErrEmptyUserID
	}
	return s.payments.ListByUser(ctx, userID)
}

func (s *PaymentService) raise(ctx context.Context, userID, kind, title, message string, data map[string]any) {
	if s.alerts == nil {
		return
	}
	if err := s.alerts.Raise(ctx, userID, kind, title, message, data); err != nil {
		s.logger.Printf("payment service: raise %s alert: %v", kind, err)
	}
}
