package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickify/ticketing/internal/booking"
	"github.com/tickify/ticketing/internal/booking/api"
	"github.com/tickify/ticketing/internal/logger"
	"github.com/tickify/ticketing/internal/models"
	"github.com/tickify/ticketing/internal/utils"
	"github.com/tickify/ticketing/internal/verify"
)

// stubDB drives the service under the handler with canned store behavior.
type stubDB struct {
	event     *models.Event
	eventErr  error
	createErr error
}

func (s *stubDB) GetEventByID(ctx context.Context, id string) (*models.Event, error) {
	if s.eventErr != nil {
		return nil, s.eventErr
	}
	if s.event == nil || s.event.ID != id {
		return nil, models.ErrNotFound
	}
	return s.event, nil
}

func (s *stubDB) CreateEvent(ctx context.Context, event *models.Event) error {
	return s.createErr
}

func (s *stubDB) SeedSeats(ctx context.Context, eventID string, layout models.SeatingLayout) error {
	return nil
}

func (s *stubDB) CreateBookingWithSeats(ctx context.Context, b *models.Booking, claims []models.EventSeat) error {
	return s.createErr
}

func (s *stubDB) GetBookingByID(ctx context.Context, id string) (*models.Booking, error) {
	return nil, models.ErrNotFound
}

func (s *stubDB) GetBookingByReference(ctx context.Context, ref string) (*models.Booking, error) {
	return nil, models.ErrNotFound
}

func (s *stubDB) ConfirmBooking(ctx context.Context, id string) (bool, error) {
	return false, nil
}

func (s *stubDB) SoldSeatLabels(ctx context.Context, eventID string) (map[string]bool, error) {
	return map[string]bool{}, nil
}

func setupRouter(db *stubDB) http.Handler {
	service := booking.NewService(db, nil, nil, nil)
	handler := api.NewHandler(service, nil, verify.NewCodec("https://tickify.app"), logger.New("booking-test"))
	r := chi.NewRouter()
	r.Post("/bookings", handler.CreateBooking)
	r.Get("/events/{eventID}/seatmap", handler.SeatMap)
	return r
}

func stubEvent() *models.Event {
	return &models.Event{
		ID:    "ev1",
		Title: "Test Concert",
		TicketTypes: models.TicketTypes{
			{Name: "General", Price: 25.0, Quantity: 10},
		},
		CreatedAt: time.Now(),
	}
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, utils.APIResponse) {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var resp utils.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func TestSeatMap_MalformedLayoutDegrades(t *testing.T) {
	event := stubEvent()
	event.LayoutJSON = `{"rows": not-json`
	router := setupRouter(&stubDB{event: event})

	rec, resp := doJSON(t, router, http.MethodGet, "/events/ev1/seatmap", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, "No seat map available", resp.Message)
	assert.Nil(t, resp.Data)
}

func TestSeatMap_UnknownEvent(t *testing.T) {
	router := setupRouter(&stubDB{})

	rec, resp := doJSON(t, router, http.MethodGet, "/events/missing/seatmap", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, resp.Success)
}

func TestSeatMap_ReturnsLayout(t *testing.T) {
	router := setupRouter(&stubDB{event: stubEvent()})

	rec, resp := doJSON(t, router, http.MethodGet, "/events/ev1/seatmap", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Seat map", resp.Message)
	assert.NotNil(t, resp.Data)
}

func TestCreateBooking_SeatConflictMapsTo409(t *testing.T) {
	router := setupRouter(&stubDB{
		event:     stubEvent(),
		createErr: models.ErrSeatNoLongerAvailable,
	})

	rec, resp := doJSON(t, router, http.MethodPost, "/bookings", booking.CreateBookingRequest{
		EventID: "ev1",
		Items:   []booking.ItemRequest{{SeatLabel: "A1"}},
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.False(t, resp.Success)
}

func TestCreateBooking_UnknownEventMapsTo404(t *testing.T) {
	router := setupRouter(&stubDB{})

	rec, _ := doJSON(t, router, http.MethodPost, "/bookings", booking.CreateBookingRequest{
		EventID: "missing",
		Items:   []booking.ItemRequest{{TicketType: 0, Quantity: 1}},
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateBooking_StoreFailureMapsTo503(t *testing.T) {
	router := setupRouter(&stubDB{eventErr: models.ErrStoreUnavailable})

	rec, resp := doJSON(t, router, http.MethodPost, "/bookings", booking.CreateBookingRequest{
		EventID: "ev1",
		Items:   []booking.ItemRequest{{TicketType: 0, Quantity: 1}},
	})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.False(t, resp.Success)
}

func TestCreateBooking_InvalidBody(t *testing.T) {
	router := setupRouter(&stubDB{})

	req := httptest.NewRequest(http.MethodPost, "/bookings", bytes.NewReader([]byte(`{not json`)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateEvent_SeedsAndReturns201(t *testing.T) {
	router := chi.NewRouter()
	service := booking.NewService(&stubDB{}, nil, nil, nil)
	handler := api.NewHandler(service, nil, verify.NewCodec("https://tickify.app"), logger.New("booking-test"))
	router.Post("/events", handler.CreateEvent)

	rec, resp := doJSON(t, router, http.MethodPost, "/events", models.Event{
		Title: "New Show",
		TicketTypes: models.TicketTypes{
			{Name: "General", Price: 25.0, Quantity: 10},
		},
	})
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, resp.Success)
}
