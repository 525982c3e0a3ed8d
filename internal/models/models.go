package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Account struct {
	ID            string          `db:"id" json:"id"`
	Username      string          `db:"username" json:"username"`
	Email         string          `db:"email" json:"email"`
	FullName      string          `db:"full_name" json:"fullName"`
	PasswordHash  *string         `db:"password_hash" json:"-"`
	Role          string          `db:"role" json:"role"`
	Balance       decimal.Decimal `db:"balance" json:"balance"`
	TotalInvested decimal.Decimal `db:"total_invested" json:"totalInvested"`
	TotalEarnings decimal.Decimal `db:"total_earnings" json:"totalEarnings"`
	CreatedAt     time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updatedAt"`
}

type TransactionKind string

const (
	Credit TransactionKind = "credit"
	Debit  TransactionKind = "debit"
)

// AccountTransaction is one entry of an account's ordered transaction log.
// Amount is never negative; Kind carries the sign.
type AccountTransaction struct {
	ID        string          `db:"id" json:"id"`
	UserID    string          `db:"user_id" json:"userId"`
	Kind      TransactionKind `db:"kind" json:"type"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`
	Reason    string          `db:"reason" json:"reason"`
	CreatedAt time.Time       `db:"created_at" json:"date"`
}

type Investment struct {
	ID               string          `db:"id" json:"id"`
	UserID           string          `db:"user_id" json:"userId"`
	PlanType         PlanType        `db:"plan_type" json:"planType"`
	Amount           decimal.Decimal `db:"amount" json:"amount"`
	DailyReturn      decimal.Decimal `db:"daily_return" json:"dailyReturn"`
	TotalReturn      decimal.Decimal `db:"total_return" json:"totalReturn"`
	DaysAccrued      int             `db:"days_accrued" json:"daysAccrued"`
	Status           Status          `db:"status" json:"status"`
	StartDate        *time.Time      `db:"start_date" json:"startDate,omitempty"`
	LastEarningDate  *time.Time      `db:"last_earning_date" json:"lastEarningDate,omitempty"`
	ChatSessionID    *string         `db:"chat_session_id" json:"chatSessionId,omitempty"`
	VerifiedBy       *string         `db:"verified_by" json:"verifiedBy,omitempty"`
	VerificationDate *time.Time      `db:"verification_date" json:"verificationDate,omitempty"`
	CreatedAt        time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updatedAt"`
}

// RemainingDays is how many more whole days the plan term allows crediting.
func (i Investment) RemainingDays() int {
	remaining := i.PlanType.TermDays() - i.DaysAccrued
	if remaining < 0 {
		return 0
	}
	return remaining
}

type AccrualRun struct {
	ID            string          `db:"id" json:"id"`
	Trigger       string          `db:"trigger" json:"trigger"`
	StartedAt     time.Time       `db:"started_at" json:"startedAt"`
	FinishedAt    time.Time       `db:"finished_at" json:"finishedAt"`
	Processed     int             `db:"processed" json:"processed"`
	Skipped       int             `db:"skipped" json:"skipped"`
	Failed        int             `db:"failed" json:"failed"`
	Completed     int             `db:"completed" json:"completed"`
	Interrupted   int             `db:"interrupted" json:"interrupted"`
	TotalCredited decimal.Decimal `db:"total_credited" json:"totalCredited"`
}
