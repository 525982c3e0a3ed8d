package handlers

import (
	"errors"
	"net/http"

	"invest/internal/db"
	"invest/internal/services"
	"invest/internal/store"
	"invest/internal/validator"

	"github.com/rs/zerolog"
)

type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrInvalidPlan):
		return http.StatusBadRequest, "invalid plan type"
	case errors.Is(err, services.ErrInvalidAmount):
		return http.StatusBadRequest, "invalid amount"
	case errors.Is(err, services.ErrInvestmentNotFound):
		return http.StatusNotFound, "investment not found"
	case errors.Is(err, services.ErrAccountNotFound):
		return http.StatusNotFound, "account not found"
	case errors.Is(err, services.ErrInvestmentNotPending):
		return http.StatusConflict, "investment is not pending"
	case errors.Is(err, services.ErrRunInProgress):
		return http.StatusConflict, "earnings processing already in progress"
	case errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict, "username or email already in use"
	case errors.Is(err, validator.ErrInvalidEmail), errors.Is(err, validator.ErrInvalidUsername),
		errors.Is(err, validator.ErrInvalidFullName):
		return http.StatusBadRequest, err.Error()
	case db.IsUnavailable(err):
		return http.StatusServiceUnavailable, "service temporarily unavailable"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// respondFailure maps err to a status and writes the error body. The
// underlying error text is only exposed in development.
func (h *Handler) respondFailure(w http.ResponseWriter, r *http.Request, err error) {
	status, message := statusFor(err)
	logger := zerolog.Ctx(r.Context())
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Int("status", status).Msg("request failed")
	} else {
		logger.Debug().Err(err).Int("status", status).Msg("request rejected")
	}
	body := errorBody{Error: message}
	if h.cfg.IsDevelopment() {
		body.Detail = err.Error()
	}
	respondJSON(w, status, body)
}
