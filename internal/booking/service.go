package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tickify/ticketing/internal/inventory"
	"github.com/tickify/ticketing/internal/models"
	"github.com/tickify/ticketing/internal/utils"
)

// maxReferenceAttempts bounds regeneration when a generated reference
// collides with an existing booking.
const maxReferenceAttempts = 5

type DBLayer interface {
	GetEventByID(ctx context.Context, id string) (*models.Event, error)
	CreateEvent(ctx context.Context, event *models.Event) error
	SeedSeats(ctx context.Context, eventID string, layout models.SeatingLayout) error
	CreateBookingWithSeats(ctx context.Context, booking *models.Booking, claims []models.EventSeat) error
	GetBookingByID(ctx context.Context, id string) (*models.Booking, error)
	GetBookingByReference(ctx context.Context, reference string) (*models.Booking, error)
	ConfirmBooking(ctx context.Context, id string) (bool, error)
	SoldSeatLabels(ctx context.Context, eventID string) (map[string]bool, error)
}

type SeatHolds interface {
	ReleaseSeats(ctx context.Context, eventID string, labels []string, sessionID string) error
}

type Notifier interface {
	PublishBookingCreated(booking models.Booking) error
	PublishBookingConfirmed(booking models.Booking) error
}

type PaymentConfirmer interface {
	Confirm(ctx context.Context, paymentRef string) (bool, error)
}

type Service struct {
	DB       DBLayer
	Holds    SeatHolds
	Notifier Notifier
	Payments PaymentConfirmer
}

func NewService(db DBLayer, holds SeatHolds, notifier Notifier, payments PaymentConfirmer) *Service {
	return &Service{DB: db, Holds: holds, Notifier: notifier, Payments: payments}
}

type Buyer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ItemRequest is one line of a checkout: a specific seat label, or a
// general-admission ticket type with a quantity.
type ItemRequest struct {
	TicketType int    `json:"ticket_type"`
	SeatLabel  string `json:"seat_label,omitempty"`
	Quantity   int    `json:"quantity"`
}

type CreateBookingRequest struct {
	EventID    string        `json:"event_id"`
	Items      []ItemRequest `json:"items"`
	Buyer      Buyer         `json:"buyer"`
	SessionID  string        `json:"session_id,omitempty"`
	PaymentRef string        `json:"payment_ref,omitempty"`
}

// CreateBooking validates a checkout, prices it from the catalog, claims any
// seats and persists the booking, all server-side. The client-supplied
// request never carries a price or total; both are recomputed here from the
// event's ticket catalog so a stale or tampered client cannot underpay.
func (s *Service) CreateBooking(ctx context.Context, req CreateBookingRequest) (*models.Booking, error) {
	if len(req.Items) == 0 {
		return nil, errors.New("booking must contain at least one item")
	}
	for _, item := range req.Items {
		if item.SeatLabel == "" && item.Quantity < 1 {
			return nil, fmt.Errorf("ticket type %d: quantity must be at least 1", item.TicketType)
		}
	}

	event, err := s.DB.GetEventByID(ctx, req.EventID)
	if err != nil {
		return nil, err
	}

	layout, err := inventory.ResolveLayout(event)
	if err != nil {
		return nil, err
	}

	seatsByLabel := make(map[string]models.SeatDescriptor)
	for _, seat := range layout.Seats() {
		seatsByLabel[seat.Label] = seat
	}

	var (
		items      models.BookingItems
		seatLabels []string
		seatClaims []models.EventSeat
		selection  []inventory.Selection
	)
	for _, item := range req.Items {
		if item.SeatLabel != "" {
			seat, ok := seatsByLabel[item.SeatLabel]
			if !ok {
				return nil, fmt.Errorf("%w: unknown seat %q", models.ErrMalformedLayout, item.SeatLabel)
			}
			if !inventory.IsSelectable(seat) {
				return nil, fmt.Errorf("seat %s: %w", seat.Label, models.ErrSeatNoLongerAvailable)
			}
			items = append(items, models.BookingItem{
				TicketType: seat.TicketType,
				TierName:   seat.TierName,
				SeatLabel:  seat.Label,
				Price:      seat.Price,
				Quantity:   1,
			})
			seatLabels = append(seatLabels, seat.Label)
			seatClaims = append(seatClaims, models.EventSeat{
				EventID:    event.ID,
				Label:      seat.Label,
				TicketType: seat.TicketType,
			})
			selection = append(selection, inventory.Selection{SeatLabel: seat.Label})
			continue
		}
		if item.TicketType < 0 || item.TicketType >= len(event.TicketTypes) {
			return nil, fmt.Errorf("ticket type %d does not exist for event %s", item.TicketType, event.ID)
		}
		tt := event.TicketTypes[item.TicketType]
		items = append(items, models.BookingItem{
			TicketType: item.TicketType,
			TierName:   tt.Name,
			Price:      tt.Price,
			Quantity:   item.Quantity,
		})
		selection = append(selection, inventory.Selection{TicketType: item.TicketType, Quantity: item.Quantity})
	}

	total, err := inventory.PriceOf(layout, event.TicketTypes, selection)
	if err != nil {
		return nil, err
	}

	booking := &models.Booking{
		ID:          uuid.NewString(),
		EventID:     event.ID,
		Items:       items,
		TotalAmount: total,
		UserName:    req.Buyer.Name,
		UserEmail:   req.Buyer.Email,
		Status:      models.StatusPending,
		CreatedAt:   time.Now(),
	}

	if err := s.persistWithFreshReference(ctx, booking, seatClaims); err != nil {
		return nil, err
	}

	if s.Holds != nil && len(seatLabels) > 0 && req.SessionID != "" {
		_ = s.Holds.ReleaseSeats(ctx, event.ID, seatLabels, req.SessionID)
	}

	if s.Notifier != nil {
		if err := s.Notifier.PublishBookingCreated(*booking); err != nil {
			fmt.Printf("Kafka publish error (booking created): %v\n", err)
		}
	}

	if req.PaymentRef != "" && s.Payments != nil {
		paid, err := s.Payments.Confirm(ctx, req.PaymentRef)
		if err != nil {
			// The booking stays pending; confirmation can be retried.
			return booking, nil
		}
		if paid {
			if confirmed, err := s.ConfirmBooking(ctx, booking.ID); err == nil && confirmed {
				booking.Status = models.StatusConfirmed
			}
		}
	}

	return booking, nil
}

// persistWithFreshReference writes the booking, regenerating the reference if
// it collides with an existing one. Seat claims ride the same transaction, so
// a collision retry never double-claims.
func (s *Service) persistWithFreshReference(ctx context.Context, booking *models.Booking, claims []models.EventSeat) error {
	for attempt := 0; attempt < maxReferenceAttempts; attempt++ {
		booking.Reference = models.NormalizeReference(utils.GenerateReference())
		err := s.DB.CreateBookingWithSeats(ctx, booking, claims)
		if err == nil {
			return nil
		}
		if errors.Is(err, models.ErrSeatNoLongerAvailable) {
			return err
		}
		if isReferenceCollision(err) {
			continue
		}
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return fmt.Errorf("failed to generate a unique booking reference after %d attempts", maxReferenceAttempts)
}

// CreateEvent persists a new event and seeds its per-seat sales rows from the
// resolved layout, so seated checkouts have rows to claim from the start.
func (s *Service) CreateEvent(ctx context.Context, event *models.Event) (*models.Event, error) {
	if event == nil || event.Title == "" {
		return nil, errors.New("event title is required")
	}
	if len(event.TicketTypes) == 0 {
		return nil, errors.New("event needs at least one ticket type")
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	layout, err := inventory.ResolveLayout(event)
	if err != nil {
		return nil, err
	}
	if err := s.DB.CreateEvent(ctx, event); err != nil {
		return nil, err
	}
	if err := s.DB.SeedSeats(ctx, event.ID, layout); err != nil {
		return nil, err
	}
	return event, nil
}

// ConfirmBooking marks a pending booking confirmed after the payment
// collaborator reports success.
func (s *Service) ConfirmBooking(ctx context.Context, id string) (bool, error) {
	confirmed, err := s.DB.ConfirmBooking(ctx, id)
	if err != nil {
		return false, err
	}
	if confirmed && s.Notifier != nil {
		if booking, err := s.DB.GetBookingByID(ctx, id); err == nil {
			if err := s.Notifier.PublishBookingConfirmed(*booking); err != nil {
				fmt.Printf("Kafka publish error (booking confirmed): %v\n", err)
			}
		}
	}
	return confirmed, nil
}

// GetSeatMap resolves the event's layout and overlays the authoritative sold
// flags from the store. The view is advisory; the binding availability check
// happens inside CreateBooking's conditional seat claim.
func (s *Service) GetSeatMap(ctx context.Context, eventID string) (models.SeatingLayout, error) {
	event, err := s.DB.GetEventByID(ctx, eventID)
	if err != nil {
		return models.SeatingLayout{}, err
	}
	layout, err := inventory.ResolveLayout(event)
	if err != nil {
		return models.SeatingLayout{}, err
	}
	sold, err := s.DB.SoldSeatLabels(ctx, eventID)
	if err != nil {
		return models.SeatingLayout{}, err
	}
	for i, row := range layout.Rows {
		for j, cell := range row {
			if cell.Kind == models.SeatKindSeat && sold[cell.Label] {
				layout.Rows[i][j].Sold = true
			}
		}
	}
	return layout, nil
}

func (s *Service) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	return s.DB.GetBookingByID(ctx, id)
}

// FindByReference resolves a booking by its human-readable reference,
// case-insensitively.
func (s *Service) FindByReference(ctx context.Context, reference string) (*models.Booking, error) {
	return s.DB.GetBookingByReference(ctx, reference)
}

// isReferenceCollision matches the unique-constraint failures the drivers
// report when a generated reference already exists.
func isReferenceCollision(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
