package accounts

import "errors"

var (
	// ErrNotFound is returned when a user has no stored settings.
	ErrNotFound = errors.New("accounts: settings not found")
	// ErrNilSettings is returned when persisting nil settings.
	ErrNilSettings = errors.New("accounts: nil settings")
	// ErrEmptyUserID is returned when the user id is missing.
	ErrEmptyUserID = errors.New("accounts: empty user id")
)
