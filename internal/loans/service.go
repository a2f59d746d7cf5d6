package loans

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/joelsmith11/locallibrary/internal/database/loans"
	"github.com/joelsmith11/locallibrary/internal/entities"
)

// ErrInstanceNotFound is returned when the copy does not exist.
var ErrInstanceNotFound = loans.ErrInstanceNotFound

// Error codes exposed to API clients.
const (
	CodePastDate    = "PAST_DATE"
	CodeTooFarAhead = "TOO_FAR_AHEAD"
)

// ValidationError is a rejected renewal date. Nothing was written.
type ValidationError struct {
	Reason    error
	Candidate time.Time
}

func (e *ValidationError) Error() string {
	return e.Reason.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Reason
}

// Code returns the machine-readable rejection reason.
func (e *ValidationError) Code() string {
	if errors.Is(e.Reason, ErrTooFarAhead) {
		return CodeTooFarAhead
	}
	return CodePastDate
}

// Store is the persistence the renewal workflow needs.
type Store interface {
	GetInstance(id uuid.UUID) (*entities.BookInstance, error)
	UpdateDueBack(id uuid.UUID, dueBack time.Time) error
}

// Renewal is the outcome of a successful renewal.
type Renewal struct {
	Instance        *entities.BookInstance
	PreviousDueBack *time.Time
}

type Service struct {
	store Store
	clock Clock
}

// NewService creates a renewal service. A nil clock uses time.Now.
func NewService(store Store, clock Clock) *Service {
	if clock == nil {
		clock = time.Now
	}
	return &Service{store: store, clock: clock}
}

// Today returns the service's current calendar date.
func (s *Service) Today() time.Time {
	return Today(s.clock())
}

// ProposedDate returns the suggested due date for a fresh renewal form.
func (s *Service) ProposedDate() time.Time {
	return ProposedRenewalDate(s.clock())
}

// Instance loads a copy for display on the renewal form.
func (s *Service) Instance(ctx context.Context, id uuid.UUID) (*entities.BookInstance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.GetInstance(id)
}

// Renew validates candidate against today and, if accepted, stores it as
// the copy's new due date. Status and borrower are left untouched.
func (s *Service) Renew(ctx context.Context, id uuid.UUID, candidate time.Time) (*Renewal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	instance, err := s.store.GetInstance(id)
	if err != nil {
		return nil, err
	}

	dueBack, err := ValidateRenewal(candidate, s.clock())
	if err != nil {
		return nil, &ValidationError{Reason: err, Candidate: candidate}
	}

	if err := s.store.UpdateDueBack(id, dueBack); err != nil {
		return nil, fmt.Errorf("failed to update due date: %w", err)
	}

	previous := instance.DueBack
	instance.DueBack = &dueBack
	return &Renewal{Instance: instance, PreviousDueBack: previous}, nil
}
