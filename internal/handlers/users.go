package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"invest/internal/middleware"
	"invest/internal/models"
	"invest/internal/money"
	"invest/internal/store"
	"invest/internal/validator"
)

func (h *Handler) currentAccount(w http.ResponseWriter, r *http.Request) (models.Account, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return models.Account{}, false
	}
	account, err := h.accounts.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "user not found")
			return models.Account{}, false
		}
		h.respondFailure(w, r, err)
		return models.Account{}, false
	}
	return account, true
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	account, ok := h.currentAccount(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, account)
}

func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	account, ok := h.currentAccount(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"balance":       money.Format(account.Balance),
		"totalInvested": money.Format(account.TotalInvested),
		"totalEarnings": money.Format(account.TotalEarnings),
	})
}

func (h *Handler) MyTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	limit, offset, page := pagination(r, 20)
	rows, err := h.accounts.ListTransactions(r.Context(), userID, limit, offset)
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	if rows == nil {
		rows = []models.AccountTransaction{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"transactions": rows,
		"page":         page,
		"limit":        limit,
	})
}

type updateProfileRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	FullName *string `json:"fullName"`
}

// UpdateProfile applies a partial update: omitted fields keep their stored value.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	account, ok := h.currentAccount(w, r)
	if !ok {
		return
	}
	update := store.ProfileUpdate{
		ID:       account.ID,
		Username: account.Username,
		Email:    account.Email,
		FullName: account.FullName,
	}
	if req.Username != nil {
		update.Username = strings.TrimSpace(*req.Username)
	}
	if req.Email != nil {
		update.Email = validator.NormalizeEmail(*req.Email)
	}
	if req.FullName != nil {
		update.FullName = strings.TrimSpace(*req.FullName)
	}
	if err := validator.Account(update.Email, update.Username, update.FullName, ""); err != nil {
		h.respondFailure(w, r, err)
		return
	}
	updated, err := h.accounts.UpdateProfile(r.Context(), update)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "user not found")
			return
		}
		h.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}
