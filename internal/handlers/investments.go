package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"invest/internal/middleware"
	"invest/internal/services"

	"github.com/shopspring/decimal"
)

type createInvestmentRequest struct {
	PlanType      string          `json:"planType"`
	Amount        decimal.Decimal `json:"amount"`
	ChatSessionID *string         `json:"chatSessionId"`
}

func (h *Handler) CreateInvestment(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req createInvestmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	investment, err := h.investments.Create(r.Context(), services.CreateInvestmentRequest{
		UserID:        userID,
		PlanType:      req.PlanType,
		Amount:        req.Amount,
		ChatSessionID: req.ChatSessionID,
	})
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"message":    "Investment created successfully",
		"investment": investment,
	})
}

func (h *Handler) MyInvestments(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	investments, err := h.investments.ListForUser(r.Context(), userID)
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, investments)
}

type verifyInvestmentRequest struct {
	InvestmentID  string  `json:"investmentId"`
	VerifiedBy    string  `json:"verifiedBy"`
	ChatSessionID *string `json:"chatSessionId"`
}

func (h *Handler) VerifyInvestment(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req verifyInvestmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.InvestmentID) == "" {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	investment, err := h.investments.Verify(r.Context(), services.VerifyRequest{
		ActorID:       actorID,
		InvestmentID:  strings.TrimSpace(req.InvestmentID),
		VerifiedBy:    strings.TrimSpace(req.VerifiedBy),
		ChatSessionID: req.ChatSessionID,
	})
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"message":    "Investment verified successfully",
		"investment": investment,
	})
}

func (h *Handler) ProcessEarnings(w http.ResponseWriter, r *http.Request) {
	summary, err := h.accrual.Run(r.Context(), services.TriggerManual)
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"message": summaryMessage(summary),
		"summary": summary,
	})
}

func summaryMessage(summary services.RunSummary) string {
	switch {
	case summary.Failed > 0:
		return "Daily earnings processed with failures"
	case summary.Processed == 0:
		return "No earnings due"
	default:
		return "Daily earnings processed successfully"
	}
}

func (h *Handler) InvestmentStats(w http.ResponseWriter, r *http.Request) {
	report, err := h.investments.Stats(r.Context())
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}
