package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"invest/internal/auth"
	"invest/internal/models"
	"invest/internal/store"
	"invest/internal/websocket"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) AdminListUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset, page := pagination(r, 50)
	users, err := h.accounts.ListAll(r.Context(), limit, offset)
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	total, err := h.accounts.Count(r.Context())
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	if users == nil {
		users = []models.Account{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"users": users,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

func (h *Handler) AdminGetUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	account, err := h.accounts.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "user not found")
			return
		}
		h.respondFailure(w, r, err)
		return
	}
	investments, err := h.investments.ListForUser(r.Context(), userID)
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"user":        account,
		"investments": investments,
	})
}

func (h *Handler) AdminListAccrualRuns(w http.ResponseWriter, r *http.Request) {
	limit, _, _ := pagination(r, 20)
	runs, err := h.runs.ListRecent(r.Context(), limit)
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	if runs == nil {
		runs = []models.AccrualRun{}
	}
	respondJSON(w, http.StatusOK, runs)
}

func (h *Handler) AdminListAuditLogs(w http.ResponseWriter, r *http.Request) {
	limit, offset, _ := pagination(r, 50)
	rows, err := h.audit.List(r.Context(), limit, offset)
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	if rows == nil {
		rows = []store.AuditEntry{}
	}
	respondJSON(w, http.StatusOK, rows)
}

func (h *Handler) WSBalances(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		authHeader := r.Header.Get("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			token = strings.TrimPrefix(authHeader, "Bearer ")
		}
	}
	if token == "" {
		respondError(w, http.StatusUnauthorized, "missing token")
		return
	}
	claims, err := auth.ParseToken(h.cfg.JWTSecret, token)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	websocket.ServeWS(w, r, h.upgrader, h.hub, claims.UserID)
}
