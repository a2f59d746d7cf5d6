// Package loans holds the renewal rule for borrowed copies and the service
// that applies it.
package loans

import (
	"errors"
	"time"
)

const (
	// RenewalWindow is how far ahead of today a new due date may be set.
	RenewalWindow = 28 * 24 * time.Hour
	// DefaultRenewalOffset is the due date suggested when the form is shown.
	DefaultRenewalOffset = 21 * 24 * time.Hour
)

var (
	ErrPastDate    = errors.New("Invalid date - renewal is in past")
	ErrTooFarAhead = errors.New("Invalid date - renewal more than 4 weeks ahead")
)

// Clock returns the current time.
type Clock func() time.Time

// Today truncates now to its calendar date, expressed as UTC midnight.
func Today(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// ValidateRenewal accepts candidate when today <= candidate <= today+4 weeks.
// The returned date is the candidate normalised to a calendar date.
func ValidateRenewal(candidate, today time.Time) (time.Time, error) {
	date := Today(candidate)
	today = Today(today)

	if date.Before(today) {
		return time.Time{}, ErrPastDate
	}
	if date.After(today.Add(RenewalWindow)) {
		return time.Time{}, ErrTooFarAhead
	}
	return date, nil
}

// ProposedRenewalDate is the initial value offered on the renewal form.
// It is not validated until submitted.
func ProposedRenewalDate(today time.Time) time.Time {
	return Today(today).Add(DefaultRenewalOffset)
}
