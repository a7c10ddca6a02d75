package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tickify/ticketing/internal/checkin"
	"github.com/tickify/ticketing/internal/logger"
	"github.com/tickify/ticketing/internal/utils"
)

type Handler struct {
	Checkin *checkin.Service
	Logger  *logger.Logger
}

func NewHandler(service *checkin.Service, log *logger.Logger) *Handler {
	return &Handler{Checkin: service, Logger: log}
}

// ScanTicket handles a scanner submission.
// Expected POST request body: {"payload": "<scanned or typed string>"}
func (h *Handler) ScanTicket(w http.ResponseWriter, r *http.Request) {
	var requestBody struct {
		Payload string `json:"payload"`
	}

	if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}
	if requestBody.Payload == "" {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("payload is required", ""))
		return
	}

	result, err := h.Checkin.Resolve(r.Context(), requestBody.Payload)
	if err != nil {
		// Store unreachable. The scanner shows a retry prompt and stays
		// ready for the next scan.
		h.Logger.Error("CHECKIN", "scan failed: "+err.Error())
		utils.WriteJSON(w, http.StatusServiceUnavailable, utils.ErrorResponse("Store unavailable, please retry", err.Error()))
		return
	}

	bookingID := ""
	if result.Booking != nil {
		bookingID = result.Booking.ID
	}
	h.Logger.LogCheckin(string(result.Outcome), bookingID, "scan processed")

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse(scanMessage(result), result))
}

// VerifyByID serves the canonical /verify/{bookingID} URL embedded in QR
// codes, so scanning with a plain phone camera lands on the same resolver.
func (h *Handler) VerifyByID(w http.ResponseWriter, r *http.Request) {
	bookingID := chi.URLParam(r, "bookingID")
	if bookingID == "" {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("bookingID is required", ""))
		return
	}

	result, err := h.Checkin.Resolve(r.Context(), bookingID)
	if err != nil {
		h.Logger.Error("CHECKIN", "verify failed: "+err.Error())
		utils.WriteJSON(w, http.StatusServiceUnavailable, utils.ErrorResponse("Store unavailable, please retry", err.Error()))
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse(scanMessage(result), result))
}

func scanMessage(result *checkin.Result) string {
	switch result.Outcome {
	case checkin.OutcomeFirstEntry:
		return "Ticket valid, admitted"
	case checkin.OutcomeAlreadyScanned:
		return "Ticket already scanned"
	case checkin.OutcomePaymentIncomplete:
		return "Invalid ticket: payment incomplete"
	default:
		return "Invalid ticket"
	}
}
