package analytics

import "errors"

var (
	// ErrInvalidPeriodType is returned for an unsupported period type.
	ErrInvalidPeriodType = errors.New("analytics: invalid period type")
	// ErrInvalidDateRange is returned when start date is after end date.
	ErrInvalidDateRange = errors.New("analytics: start date after end date")
	// ErrNoData is returned when no readings match the requested interval.
	// Nothing is written in that case.
	ErrNoData = errors.New("analytics: no readings in period")
	// ErrInvalidWindow is returned for an unsupported chart window token.
	ErrInvalidWindow = errors.New("analytics: invalid chart window")
	// ErrSummaryNotFound is returned when a summary lookup finds nothing.
	ErrSummaryNotFound = errors.New("analytics: summary not found")
	// ErrNilSummary is returned when persisting a nil summary.
	ErrNilSummary = errors.New("analytics: nil summary")
	// ErrEmptyUserID is returned when the user id is missing.
	ErrEmptyUserID = errors.New("analytics: empty user id")
)
