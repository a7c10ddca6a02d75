package booking_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tickify/ticketing/internal/booking"
	"github.com/tickify/ticketing/internal/models"
)

// Mock implementations
type MockDBLayer struct {
	mock.Mock
}

func (m *MockDBLayer) GetEventByID(ctx context.Context, id string) (*models.Event, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Event), args.Error(1)
}

func (m *MockDBLayer) CreateEvent(ctx context.Context, event *models.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

func (m *MockDBLayer) SeedSeats(ctx context.Context, eventID string, layout models.SeatingLayout) error {
	args := m.Called(eventID, layout)
	return args.Error(0)
}

func (m *MockDBLayer) CreateBookingWithSeats(ctx context.Context, b *models.Booking, claims []models.EventSeat) error {
	args := m.Called(b, claims)
	return args.Error(0)
}

func (m *MockDBLayer) GetBookingByID(ctx context.Context, id string) (*models.Booking, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *MockDBLayer) GetBookingByReference(ctx context.Context, ref string) (*models.Booking, error) {
	args := m.Called(ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *MockDBLayer) ConfirmBooking(ctx context.Context, id string) (bool, error) {
	args := m.Called(id)
	return args.Bool(0), args.Error(1)
}

func (m *MockDBLayer) SoldSeatLabels(ctx context.Context, eventID string) (map[string]bool, error) {
	args := m.Called(eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]bool), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) PublishBookingCreated(b models.Booking) error {
	args := m.Called(b)
	return args.Error(0)
}

func (m *MockNotifier) PublishBookingConfirmed(b models.Booking) error {
	args := m.Called(b)
	return args.Error(0)
}

type MockConfirmer struct {
	mock.Mock
}

func (m *MockConfirmer) Confirm(ctx context.Context, ref string) (bool, error) {
	args := m.Called(ref)
	return args.Bool(0), args.Error(1)
}

func testEvent() *models.Event {
	return &models.Event{
		ID:    "ev1",
		Title: "Test Concert",
		TicketTypes: models.TicketTypes{
			{Name: "General", Price: 25.0, Quantity: 10},
			{Name: "VIP", Price: 100.0, Quantity: 10},
		},
		CreatedAt: time.Now(),
	}
}

func TestCreateBooking_RequiresItems(t *testing.T) {
	service := booking.NewService(new(MockDBLayer), nil, nil, nil)

	_, err := service.CreateBooking(context.Background(), booking.CreateBookingRequest{EventID: "ev1"})
	assert.Error(t, err)
}

func TestCreateBooking_RejectsZeroQuantity(t *testing.T) {
	service := booking.NewService(new(MockDBLayer), nil, nil, nil)

	_, err := service.CreateBooking(context.Background(), booking.CreateBookingRequest{
		EventID: "ev1",
		Items:   []booking.ItemRequest{{TicketType: 0, Quantity: 0}},
	})
	assert.Error(t, err)
}

func TestCreateBooking_RejectsUnknownTicketType(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockDB.On("GetEventByID", "ev1").Return(testEvent(), nil)
	service := booking.NewService(mockDB, nil, nil, nil)

	_, err := service.CreateBooking(context.Background(), booking.CreateBookingRequest{
		EventID: "ev1",
		Items:   []booking.ItemRequest{{TicketType: 5, Quantity: 1}},
	})
	assert.Error(t, err)
}

func TestCreateBooking_ComputesTotalServerSide(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockDB.On("GetEventByID", "ev1").Return(testEvent(), nil)
	mockDB.On("CreateBookingWithSeats", mock.AnythingOfType("*models.Booking"), mock.Anything).Return(nil)

	service := booking.NewService(mockDB, nil, nil, nil)

	created, err := service.CreateBooking(context.Background(), booking.CreateBookingRequest{
		EventID: "ev1",
		Items: []booking.ItemRequest{
			{SeatLabel: "C1"},            // VIP seat from the synthesized layout
			{TicketType: 0, Quantity: 2}, // 2x General
		},
		Buyer: booking.Buyer{Name: "Alice", Email: "alice@example.com"},
	})
	require.NoError(t, err)

	assert.Equal(t, 100.0+2*25.0, created.TotalAmount)
	assert.Equal(t, models.StatusPending, created.Status)
	assert.NotEmpty(t, created.ID)
	assert.Len(t, created.Reference, 6)
	assert.Equal(t, models.NormalizeReference(created.Reference), created.Reference)
	require.Len(t, created.Items, 2)
	assert.Equal(t, "C1", created.Items[0].SeatLabel)
	assert.Equal(t, 1, created.Items[0].Quantity)
	mockDB.AssertCalled(t, "CreateBookingWithSeats", mock.Anything,
		[]models.EventSeat{{EventID: "ev1", Label: "C1", TicketType: 1}})
}

func TestCreateBooking_SeatRaceLost(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockDB.On("GetEventByID", "ev1").Return(testEvent(), nil)
	mockDB.On("CreateBookingWithSeats", mock.Anything, mock.Anything).
		Return(models.ErrSeatNoLongerAvailable)

	service := booking.NewService(mockDB, nil, nil, nil)

	_, err := service.CreateBooking(context.Background(), booking.CreateBookingRequest{
		EventID: "ev1",
		Items:   []booking.ItemRequest{{SeatLabel: "A1"}},
	})
	assert.ErrorIs(t, err, models.ErrSeatNoLongerAvailable)
}

func TestCreateBooking_ReferenceCollisionRegenerates(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockDB.On("GetEventByID", "ev1").Return(testEvent(), nil)
	mockDB.On("CreateBookingWithSeats", mock.Anything, mock.Anything).
		Return(errors.New("UNIQUE constraint failed: bookings.reference")).Once()
	mockDB.On("CreateBookingWithSeats", mock.Anything, mock.Anything).
		Return(nil).Once()

	service := booking.NewService(mockDB, nil, nil, nil)

	created, err := service.CreateBooking(context.Background(), booking.CreateBookingRequest{
		EventID: "ev1",
		Items:   []booking.ItemRequest{{TicketType: 0, Quantity: 1}},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.Reference)
	mockDB.AssertNumberOfCalls(t, "CreateBookingWithSeats", 2)
}

func TestCreateBooking_PaymentConfirmationFlow(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockDB.On("GetEventByID", "ev1").Return(testEvent(), nil)
	mockDB.On("CreateBookingWithSeats", mock.Anything, mock.Anything).Return(nil)
	mockDB.On("ConfirmBooking", mock.Anything).Return(true, nil)
	mockDB.On("GetBookingByID", mock.Anything).Return(&models.Booking{Status: models.StatusConfirmed}, nil)

	notifier := new(MockNotifier)
	notifier.On("PublishBookingCreated", mock.Anything).Return(nil)
	notifier.On("PublishBookingConfirmed", mock.Anything).Return(nil)

	confirmer := new(MockConfirmer)
	confirmer.On("Confirm", "pi_123").Return(true, nil)

	service := booking.NewService(mockDB, nil, notifier, confirmer)

	created, err := service.CreateBooking(context.Background(), booking.CreateBookingRequest{
		EventID:    "ev1",
		Items:      []booking.ItemRequest{{TicketType: 0, Quantity: 1}},
		PaymentRef: "pi_123",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, created.Status)
	notifier.AssertCalled(t, "PublishBookingCreated", mock.Anything)
	notifier.AssertCalled(t, "PublishBookingConfirmed", mock.Anything)
}

func TestCreateEvent_SeedsSeatInventory(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockDB.On("CreateEvent", mock.AnythingOfType("*models.Event")).Return(nil)
	mockDB.On("SeedSeats", mock.Anything, mock.Anything).Return(nil)

	service := booking.NewService(mockDB, nil, nil, nil)

	created, err := service.CreateEvent(context.Background(), &models.Event{
		Title: "Test Concert",
		TicketTypes: models.TicketTypes{
			{Name: "General", Price: 25.0, Quantity: 10},
		},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	// The seeded layout carries every synthesized seat.
	mockDB.AssertCalled(t, "SeedSeats", created.ID, mock.MatchedBy(func(layout models.SeatingLayout) bool {
		return len(layout.Seats()) == 16
	}))
}

func TestCreateEvent_RequiresTitleAndCatalog(t *testing.T) {
	service := booking.NewService(new(MockDBLayer), nil, nil, nil)

	_, err := service.CreateEvent(context.Background(), &models.Event{Title: "No Tickets"})
	assert.Error(t, err)

	_, err = service.CreateEvent(context.Background(), &models.Event{
		TicketTypes: models.TicketTypes{{Name: "General", Price: 25.0}},
	})
	assert.Error(t, err)
}

func TestGetSeatMap_OverlaysSoldSeats(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockDB.On("GetEventByID", "ev1").Return(testEvent(), nil)
	mockDB.On("SoldSeatLabels", "ev1").Return(map[string]bool{"A1": true}, nil)

	service := booking.NewService(mockDB, nil, nil, nil)

	layout, err := service.GetSeatMap(context.Background(), "ev1")
	require.NoError(t, err)
	assert.True(t, layout.Rows[0][0].Sold)
	assert.False(t, layout.Rows[0][1].Sold)
}

// raceStore is a minimal in-memory ledger with real conditional-write
// semantics, for exercising two checkouts racing for the last seat.
type raceStore struct {
	mu       sync.Mutex
	event    *models.Event
	sold     map[string]bool
	bookings map[string]*models.Booking
}

func newRaceStore(event *models.Event) *raceStore {
	return &raceStore{event: event, sold: map[string]bool{}, bookings: map[string]*models.Booking{}}
}

func (r *raceStore) GetEventByID(ctx context.Context, id string) (*models.Event, error) {
	return r.event, nil
}

func (r *raceStore) CreateEvent(ctx context.Context, event *models.Event) error {
	return nil
}

func (r *raceStore) SeedSeats(ctx context.Context, eventID string, layout models.SeatingLayout) error {
	return nil
}

func (r *raceStore) CreateBookingWithSeats(ctx context.Context, b *models.Booking, claims []models.EventSeat) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, claim := range claims {
		if r.sold[claim.Label] {
			return models.ErrSeatNoLongerAvailable
		}
	}
	for _, claim := range claims {
		r.sold[claim.Label] = true
	}
	copied := *b
	r.bookings[b.ID] = &copied
	return nil
}

func (r *raceStore) GetBookingByID(ctx context.Context, id string) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.bookings[id]; ok {
		return b, nil
	}
	return nil, models.ErrNotFound
}

func (r *raceStore) GetBookingByReference(ctx context.Context, ref string) (*models.Booking, error) {
	return nil, models.ErrNotFound
}

func (r *raceStore) ConfirmBooking(ctx context.Context, id string) (bool, error) {
	return false, nil
}

func (r *raceStore) SoldSeatLabels(ctx context.Context, eventID string) (map[string]bool, error) {
	return r.sold, nil
}

func TestCreateBooking_ConcurrentLastSeat(t *testing.T) {
	store := newRaceStore(testEvent())
	service := booking.NewService(store, nil, nil, nil)

	req := booking.CreateBookingRequest{
		EventID: "ev1",
		Items:   []booking.ItemRequest{{SeatLabel: "A1"}},
		Buyer:   booking.Buyer{Name: "Racer", Email: "racer@example.com"},
	}

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.CreateBooking(context.Background(), req)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var wins, losses int
	for err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, models.ErrSeatNoLongerAvailable):
			losses++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, losses)
}
