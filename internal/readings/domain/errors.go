package readings

import "errors"

var (
	// ErrEmptyUserID is returned when a reading has no user.
	ErrEmptyUserID = errors.New("readings: empty user id")
	// ErrZeroTimestamp is returned when a reading has no timestamp.
	ErrZeroTimestamp = errors.New("readings: zero timestamp")
	// ErrNegativeEnergy is returned when energy is below zero.
	ErrNegativeEnergy = errors.New("readings: negative energy")
	// ErrNegativePower is returned when power is below zero.
	ErrNegativePower = errors.New("readings: negative power")
	// ErrInvalidBatteryStatus is returned for an unsupported battery status.
	ErrInvalidBatteryStatus = errors.New("readings: invalid battery status")
	// ErrNotFound is returned when no reading matches a lookup.
	ErrNotFound = errors.New("readings: not found")
)
