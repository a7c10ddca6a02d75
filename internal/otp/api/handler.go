package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tickify/ticketing/internal/logger"
	"github.com/tickify/ticketing/internal/notify"
	"github.com/tickify/ticketing/internal/otp"
	"github.com/tickify/ticketing/internal/utils"
)

type Notifier interface {
	Notify(email, templateKind string, data map[string]interface{}) error
}

type Handler struct {
	Store    *otp.Store
	Notifier Notifier
	Logger   *logger.Logger
}

func NewHandler(store *otp.Store, notifier Notifier, log *logger.Logger) *Handler {
	return &Handler{Store: store, Notifier: notifier, Logger: log}
}

type requestBody struct {
	Email string `json:"email"`
	Code  string `json:"code,omitempty"`
}

// RequestCode issues a one-time code and hands it to the notification
// collaborator for delivery. The code never appears in the response.
func (h *Handler) RequestCode(w http.ResponseWriter, r *http.Request) {
	var req requestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("email is required", ""))
		return
	}

	code, err := h.Store.Issue(r.Context(), req.Email)
	if err != nil {
		utils.WriteJSON(w, http.StatusServiceUnavailable, utils.ErrorResponse("Could not issue code, please retry", err.Error()))
		return
	}

	if h.Notifier != nil {
		if err := h.Notifier.Notify(req.Email, notify.TemplateOTP, map[string]interface{}{"code": code}); err != nil {
			h.Logger.Error("OTP", "failed to publish code notification: "+err.Error())
		}
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Verification code sent", nil))
}

// VerifyCode checks a submitted code against the store.
func (h *Handler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req requestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Code == "" {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("email and code are required", ""))
		return
	}

	err := h.Store.Verify(r.Context(), req.Email, req.Code)
	switch {
	case err == nil:
		utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Verified", nil))
	case errors.Is(err, otp.ErrCodeExpired):
		utils.WriteJSON(w, http.StatusGone, utils.ErrorResponse("Code expired, request a new one", err.Error()))
	case errors.Is(err, otp.ErrCodeMismatch):
		utils.WriteJSON(w, http.StatusUnauthorized, utils.ErrorResponse("Code does not match", err.Error()))
	case errors.Is(err, otp.ErrTooManyAttempts):
		utils.WriteJSON(w, http.StatusTooManyRequests, utils.ErrorResponse("Too many attempts, request a new code", err.Error()))
	default:
		utils.WriteJSON(w, http.StatusServiceUnavailable, utils.ErrorResponse("Verification store unavailable, please retry", err.Error()))
	}
}
