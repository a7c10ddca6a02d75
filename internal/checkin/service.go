package checkin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tickify/ticketing/internal/models"
	"github.com/tickify/ticketing/internal/verify"
)

// Outcome is the bounded result shown to gate staff for every scan.
type Outcome string

const (
	OutcomeFirstEntry        Outcome = "first_entry"
	OutcomeAlreadyScanned    Outcome = "already_scanned"
	OutcomeNotFound          Outcome = "not_found"
	OutcomePaymentIncomplete Outcome = "payment_incomplete"
)

// Result reports one scan. Valid means the payload resolved to a real
// booking; Admitted is true only for the first scan of a confirmed booking.
// A re-scan is valid but not admitted, so staff see "already used" with the
// same booking details rather than an error.
type Result struct {
	Outcome  Outcome         `json:"outcome"`
	Valid    bool            `json:"valid"`
	Admitted bool            `json:"admitted"`
	Booking  *models.Booking `json:"booking,omitempty"`
}

type BookingStore interface {
	GetBookingByID(ctx context.Context, id string) (*models.Booking, error)
	GetBookingByReference(ctx context.Context, reference string) (*models.Booking, error)
	MarkScanned(ctx context.Context, id string, at time.Time) (bool, error)
}

type Service struct {
	Store BookingStore
	now   func() time.Time
}

func NewService(store BookingStore) *Service {
	return &Service{Store: store, now: time.Now}
}

// Resolve maps a scanned or typed payload to exactly one booking and
// performs the idempotent admit transition. Malformed payloads and unknown
// ids come back as a NotFound result, not an error; an error return means
// the store itself was unreachable and the scan should be retried.
func (s *Service) Resolve(ctx context.Context, payload string) (*Result, error) {
	candidate, decodeErr := verify.Decode(payload)
	if decodeErr != nil && !errors.Is(decodeErr, verify.ErrUnrecognizedPayload) {
		return &Result{Outcome: OutcomeNotFound}, nil
	}
	if candidate == "" {
		return &Result{Outcome: OutcomeNotFound}, nil
	}

	booking, err := s.lookup(ctx, candidate)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return &Result{Outcome: OutcomeNotFound}, nil
		}
		return nil, fmt.Errorf("check-in lookup: %w", err)
	}

	switch booking.Status {
	case models.StatusPending:
		return &Result{Outcome: OutcomePaymentIncomplete, Booking: booking}, nil

	case models.StatusScanned:
		return &Result{Outcome: OutcomeAlreadyScanned, Valid: true, Booking: booking}, nil

	default:
		return s.admit(ctx, booking)
	}
}

// admit performs the compare-and-set transition to scanned. If a concurrent
// scanner won the race, the booking is re-read and reported as already
// scanned; scanned_at is stamped exactly once either way.
func (s *Service) admit(ctx context.Context, booking *models.Booking) (*Result, error) {
	at := s.now()
	won, err := s.Store.MarkScanned(ctx, booking.ID, at)
	if err != nil {
		return nil, fmt.Errorf("check-in transition: %w", err)
	}
	if won {
		booking.Status = models.StatusScanned
		booking.ScannedAt = &at
		return &Result{Outcome: OutcomeFirstEntry, Valid: true, Admitted: true, Booking: booking}, nil
	}

	current, err := s.Store.GetBookingByID(ctx, booking.ID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return &Result{Outcome: OutcomeNotFound}, nil
		}
		return nil, fmt.Errorf("check-in re-read: %w", err)
	}
	if current.Status == models.StatusPending {
		return &Result{Outcome: OutcomePaymentIncomplete, Booking: current}, nil
	}
	return &Result{Outcome: OutcomeAlreadyScanned, Valid: true, Booking: current}, nil
}

// lookup tries the decoded candidate as a booking id first, then falls back
// to the case-normalized reference for payloads typed by gate staff.
func (s *Service) lookup(ctx context.Context, candidate string) (*models.Booking, error) {
	booking, err := s.Store.GetBookingByID(ctx, candidate)
	if err == nil {
		return booking, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}
	return s.Store.GetBookingByReference(ctx, candidate)
}
