package billing

import "errors"

var (
	// ErrInvalidAmount is returned for a non-positive credit or payment amount.
	ErrInvalidAmount = errors.New("billing: amount must be positive")
	// ErrConflict is returned when a balance update keeps losing the
	// serialization race after bounded retries.
	ErrConflict = errors.New("billing: balance update conflict")
	// ErrPaymentNotFound is returned when a payment lookup finds nothing.
	ErrPaymentNotFound = errors.New("billing: payment not found")
	// ErrNilPayment is returned when persisting a nil payment.
	ErrNilPayment = errors.New("billing: nil payment")
	// ErrEmptyUserID is returned when the user id is missing.
	ErrEmptyUserID = errors.New("billing: empty user id")
	// ErrInvalidStatus is returned for an unusable payment status transition.
	ErrInvalidStatus = errors.New("billing: invalid payment status")
)
