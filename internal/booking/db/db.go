package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/tickify/ticketing/internal/models"
)

type DB struct {
	Bun *bun.DB
}

func New(bunDB *bun.DB) *DB {
	return &DB{Bun: bunDB}
}

// ---------------- EVENTS ----------------

func (d *DB) GetEventByID(ctx context.Context, id string) (*models.Event, error) {
	var event models.Event
	err := d.Bun.NewSelect().
		Model(&event).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("event %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}
	if err := event.HydrateFromDoc(); err != nil {
		return nil, fmt.Errorf("event %s: %w", id, err)
	}
	return &event, nil
}

func (d *DB) CreateEvent(ctx context.Context, event *models.Event) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	_, err := d.Bun.NewInsert().Model(event).Exec(ctx)
	if err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

// SeedSeats materializes the per-seat sales rows for an event from its
// resolved layout. Existing rows keep their sold flag; re-seeding after a
// layout edit never un-sells a seat.
func (d *DB) SeedSeats(ctx context.Context, eventID string, layout models.SeatingLayout) error {
	seats := layout.Seats()
	if len(seats) == 0 {
		return nil
	}
	rows := make([]models.EventSeat, 0, len(seats))
	for _, seat := range seats {
		rows = append(rows, models.EventSeat{
			EventID:    eventID,
			Label:      seat.Label,
			TicketType: seat.TicketType,
			Sold:       seat.Sold,
		})
	}
	_, err := d.Bun.NewInsert().
		Model(&rows).
		On("CONFLICT DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("seed seats for event %s: %w", eventID, err)
	}
	return nil
}

// SoldSeatLabels returns the labels already sold for an event, for annotating
// a resolved layout before it is shown to buyers.
func (d *DB) SoldSeatLabels(ctx context.Context, eventID string) (map[string]bool, error) {
	var labels []string
	err := d.Bun.NewSelect().
		Model((*models.EventSeat)(nil)).
		Column("label").
		Where("event_id = ?", eventID).
		Where("sold = ?", true).
		Scan(ctx, &labels)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}
	sold := make(map[string]bool, len(labels))
	for _, l := range labels {
		sold[l] = true
	}
	return sold, nil
}

// ---------------- BOOKINGS ----------------

// CreateBookingWithSeats persists a booking and claims its seats in one
// transaction. Each claim is a conditional write on the sold flag; if any
// seat was taken by a concurrent buyer the whole transaction rolls back and
// the caller gets ErrSeatNoLongerAvailable. Events whose seat rows were never
// seeded (imported documents, layouts edited after creation) get the claimed
// rows materialized first; an existing row keeps its sold flag, so the
// conditional update stays the only way a seat is ever won. This is the
// single write path for booking creation.
func (d *DB) CreateBookingWithSeats(ctx context.Context, booking *models.Booking, claims []models.EventSeat) error {
	err := d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if len(claims) > 0 {
			rows := make([]models.EventSeat, len(claims))
			copy(rows, claims)
			for i := range rows {
				rows[i].EventID = booking.EventID
				rows[i].Sold = false
			}
			if _, err := tx.NewInsert().
				Model(&rows).
				On("CONFLICT DO NOTHING").
				Exec(ctx); err != nil {
				return fmt.Errorf("materialize seats for event %s: %w", booking.EventID, err)
			}
		}
		for _, claim := range claims {
			res, err := tx.NewUpdate().
				Model((*models.EventSeat)(nil)).
				Set("sold = ?", true).
				Where("event_id = ?", booking.EventID).
				Where("label = ?", claim.Label).
				Where("sold = ?", false).
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("claim seat %s: %w", claim.Label, err)
			}
			affected, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("claim seat %s: %w", claim.Label, err)
			}
			if affected == 0 {
				return fmt.Errorf("seat %s: %w", claim.Label, models.ErrSeatNoLongerAvailable)
			}
		}
		if _, err := tx.NewInsert().Model(booking).Exec(ctx); err != nil {
			return err
		}
		return nil
	})
	return err
}

func (d *DB) GetBookingByID(ctx context.Context, id string) (*models.Booking, error) {
	var booking models.Booking
	err := d.Bun.NewSelect().
		Model(&booking).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("booking %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}
	booking.Status = models.NormalizeStatus(booking.Status)
	return &booking, nil
}

func (d *DB) GetBookingByReference(ctx context.Context, reference string) (*models.Booking, error) {
	var booking models.Booking
	err := d.Bun.NewSelect().
		Model(&booking).
		Where("reference = ?", models.NormalizeReference(reference)).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("reference %s: %w", reference, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}
	booking.Status = models.NormalizeStatus(booking.Status)
	return &booking, nil
}

// ConfirmBooking moves a pending booking to confirmed. Conditional on the
// current status so a double payment callback is harmless.
func (d *DB) ConfirmBooking(ctx context.Context, id string) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Booking)(nil)).
		Set("status = ?", models.StatusConfirmed).
		Where("id = ?", id).
		Where("status = ?", models.StatusPending).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// MarkScanned performs the compare-and-set admit transition: confirmed to
// scanned, stamping scanned_at, only if the booking has not already been
// scanned. Legacy admissible statuses ("paid", "available") are accepted in
// the guard so old bookings still admit exactly once. Returns true only for
// the scanner that won the transition.
func (d *DB) MarkScanned(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Booking)(nil)).
		Set("status = ?", models.StatusScanned).
		Set("scanned_at = ?", at).
		Where("id = ?", id).
		Where("status IN (?)", bun.In([]string{models.StatusConfirmed, "paid", "available"})).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}
