package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tickify/ticketing/internal/booking"
	bookingredis "github.com/tickify/ticketing/internal/booking/redis"
	"github.com/tickify/ticketing/internal/logger"
	"github.com/tickify/ticketing/internal/models"
	"github.com/tickify/ticketing/internal/utils"
	"github.com/tickify/ticketing/internal/verify"
)

type Handler struct {
	Booking *booking.Service
	Holds   *bookingredis.Holds
	Codec   *verify.Codec
	Logger  *logger.Logger
}

func NewHandler(service *booking.Service, holds *bookingredis.Holds, codec *verify.Codec, log *logger.Logger) *Handler {
	return &Handler{Booking: service, Holds: holds, Codec: codec, Logger: log}
}

// CreateEvent registers a new event and seeds its seat inventory.
func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var event models.Event
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}

	created, err := h.Booking.CreateEvent(r.Context(), &event)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrMalformedLayout):
			utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Malformed seating layout", err.Error()))
		case errors.Is(err, models.ErrStoreUnavailable):
			utils.WriteJSON(w, http.StatusServiceUnavailable, utils.ErrorResponse("Store unavailable, please retry", err.Error()))
		default:
			utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Could not create event", err.Error()))
		}
		return
	}

	h.Logger.Info("EVENTS", "event created: "+created.ID)
	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("Event created", created))
}

// CreateBooking handles checkout. Prices and the total are recomputed
// server-side; the request body never carries money fields.
func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req booking.CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}

	created, err := h.Booking.CreateBooking(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrSeatNoLongerAvailable):
			utils.WriteJSON(w, http.StatusConflict, utils.ErrorResponse("Seat no longer available", err.Error()))
		case errors.Is(err, models.ErrNotFound):
			utils.WriteJSON(w, http.StatusNotFound, utils.ErrorResponse("Event not found", err.Error()))
		case errors.Is(err, models.ErrStoreUnavailable):
			utils.WriteJSON(w, http.StatusServiceUnavailable, utils.ErrorResponse("Store unavailable, please retry", err.Error()))
		default:
			utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Could not create booking", err.Error()))
		}
		return
	}

	h.Logger.LogBooking("CREATE", created.ID, "booking created with reference "+created.Reference)
	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("Booking created", created))
}

func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "bookingID")
	found, err := h.Booking.GetBooking(r.Context(), id)
	if err != nil {
		writeLookupError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Booking", found))
}

func (h *Handler) GetBookingByReference(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "reference")
	found, err := h.Booking.FindByReference(r.Context(), ref)
	if err != nil {
		writeLookupError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Booking", found))
}

// TicketQR serves the booking's verification QR as a PNG.
func (h *Handler) TicketQR(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "bookingID")
	found, err := h.Booking.GetBooking(r.Context(), id)
	if err != nil {
		writeLookupError(w, err)
		return
	}

	png, err := h.Codec.RenderQR(found.ID)
	if err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Could not render QR", err.Error()))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// SeatMap serves the resolved layout with sold seats marked. A malformed
// layout degrades to "no seat map available" instead of an error page.
func (h *Handler) SeatMap(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")
	layout, err := h.Booking.GetSeatMap(r.Context(), eventID)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrMalformedLayout):
			h.Logger.Warn("INVENTORY", "malformed layout for event "+eventID+": "+err.Error())
			utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("No seat map available", nil))
		case errors.Is(err, models.ErrNotFound):
			utils.WriteJSON(w, http.StatusNotFound, utils.ErrorResponse("Event not found", err.Error()))
		default:
			utils.WriteJSON(w, http.StatusServiceUnavailable, utils.ErrorResponse("Store unavailable, please retry", err.Error()))
		}
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Seat map", layout))
}

type holdRequest struct {
	SeatLabels []string `json:"seat_labels"`
	SessionID  string   `json:"session_id"`
}

// HoldSeats places advisory holds while the buyer completes checkout.
func (h *Handler) HoldSeats(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")
	var req holdRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}
	if len(req.SeatLabels) == 0 || req.SessionID == "" {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("seat_labels and session_id are required", ""))
		return
	}

	ok, err := h.Holds.HoldSeats(r.Context(), eventID, req.SeatLabels, req.SessionID)
	if err != nil {
		utils.WriteJSON(w, http.StatusServiceUnavailable, utils.ErrorResponse("Hold store unavailable", err.Error()))
		return
	}
	if !ok {
		utils.WriteJSON(w, http.StatusConflict, utils.ErrorResponse("One or more seats already held", ""))
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Seats held", nil))
}

// ReleaseSeats drops the session's holds, e.g. on an abandoned checkout.
func (h *Handler) ReleaseSeats(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")
	var req holdRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}
	if err := h.Holds.ReleaseSeats(r.Context(), eventID, req.SeatLabels, req.SessionID); err != nil {
		utils.WriteJSON(w, http.StatusServiceUnavailable, utils.ErrorResponse("Hold store unavailable", err.Error()))
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Seats released", nil))
}

func writeLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, models.ErrNotFound) {
		utils.WriteJSON(w, http.StatusNotFound, utils.ErrorResponse("Booking not found", err.Error()))
		return
	}
	utils.WriteJSON(w, http.StatusServiceUnavailable, utils.ErrorResponse("Store unavailable, please retry", err.Error()))
}
