package alerts

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an alert lookup finds nothing.
	ErrNotFound = errors.New("alerts: alert not found")
	// ErrNilAlert is returned when persisting a nil alert.
	ErrNilAlert = errors.New("alerts: nil alert")
	// ErrInvalidKind is returned for an unknown alert kind.
	ErrInvalidKind = errors.New("alerts: invalid kind")
	// ErrInvalidChannel is returned for an unknown delivery channel.
	ErrInvalidChannel = errors.New("alerts: invalid channel")
	// ErrEmptyUserID is returned when the user id is missing.
	ErrEmptyUserID = errors.New("alerts: empty user id")
	// ErrChannelDisabled is returned when the user's preferences block the
	// channel for the alert's category.
	ErrChannelDisabled = errors.New("alerts: channel disabled by preference")
)

// DeliveryError wraps a transport failure for one channel. The channel flag
// stays false so the delivery can be retried.
type DeliveryError struct {
	Channel Channel
	Err     error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("alerts: delivery via %s failed: %v", e.Channel, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
