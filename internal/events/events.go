package events

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	InvestmentActivatedKey = "investment.activated"
	EarningsCreditedKey    = "earnings.credited"
	AccrualCompletedKey    = "accrual.completed"
)

type InvestmentActivated struct {
	EventID      string          `json:"eventId"`
	InvestmentID string          `json:"investmentId"`
	UserID       string          `json:"userId"`
	Amount       decimal.Decimal `json:"amount"`
	VerifiedBy   string          `json:"verifiedBy"`
	ActivatedAt  time.Time       `json:"activatedAt"`
}

type EarningsCredited struct {
	EventID      string          `json:"eventId"`
	InvestmentID string          `json:"investmentId"`
	UserID       string          `json:"userId"`
	Days         int             `json:"days"`
	Earnings     decimal.Decimal `json:"earnings"`
	Completed    bool            `json:"completed"`
	CreditedAt   time.Time       `json:"creditedAt"`
}

type AccrualCompleted struct {
	EventID       string          `json:"eventId"`
	RunID         string          `json:"runId"`
	Trigger       string          `json:"trigger"`
	Processed     int             `json:"processed"`
	Skipped       int             `json:"skipped"`
	Failed        int             `json:"failed"`
	Completed     int             `json:"completed"`
	Interrupted   int             `json:"interrupted"`
	TotalCredited decimal.Decimal `json:"totalCredited"`
	FinishedAt    time.Time       `json:"finishedAt"`
}
