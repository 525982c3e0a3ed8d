package models

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

type PlanType string

const (
	PlanBasic   PlanType = "basic"
	PlanPremium PlanType = "premium"
	PlanVIP     PlanType = "vip"
)

var ErrUnknownPlan = errors.New("invalid plan type")

type plan struct {
	rate     decimal.Decimal
	termDays int
}

var plans = map[PlanType]plan{
	PlanBasic:   {rate: decimal.RequireFromString("0.01"), termDays: 30},
	PlanPremium: {rate: decimal.RequireFromString("0.02"), termDays: 60},
	PlanVIP:     {rate: decimal.RequireFromString("0.03"), termDays: 90},
}

func ParsePlanType(raw string) (PlanType, error) {
	planType := PlanType(raw)
	if !planType.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownPlan, raw)
	}
	return planType, nil
}

func (p PlanType) Valid() bool {
	_, ok := plans[p]
	return ok
}

// Rate is the fraction of principal paid per whole day.
func (p PlanType) Rate() decimal.Decimal {
	return plans[p].rate
}

func (p PlanType) TermDays() int {
	return plans[p].termDays
}

// DailyReturnFor is fixed at creation and never recomputed.
func DailyReturnFor(p PlanType, amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(p.Rate())
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

var transitions = map[Status][]Status{
	StatusPending: {StatusActive, StatusCancelled},
	StatusActive:  {StatusCompleted, StatusCancelled},
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
