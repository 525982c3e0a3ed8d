package auth

import (
	"errors"
	"fmt"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
	RoleAdmin Role = "admin"
)

var ErrUnknownRole = errors.New("unknown role")

func ParseRole(raw string) (Role, error) {
	switch role := Role(raw); role {
	case RoleUser, RoleAgent, RoleAdmin:
		return role, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, raw)
	}
}

type Capability string

const (
	CreateInvestment Capability = "investment:create"
	ViewOwnAccount   Capability = "account:view-own"
	VerifyInvestment Capability = "investment:verify"
	ProcessEarnings  Capability = "earnings:process"
	ViewStats        Capability = "investment:stats"
	ViewAccounts     Capability = "account:view-all"
	ViewAudit        Capability = "audit:view"
)

var grants = map[Capability][]Role{
	CreateInvestment: {RoleUser, RoleAgent, RoleAdmin},
	ViewOwnAccount:   {RoleUser, RoleAgent, RoleAdmin},
	VerifyInvestment: {RoleAgent, RoleAdmin},
	ProcessEarnings:  {RoleAdmin},
	ViewStats:        {RoleAdmin},
	ViewAccounts:     {RoleAdmin},
	ViewAudit:        {RoleAdmin},
}

// Allows reports whether role holds capability. Unknown roles hold nothing.
func (r Role) Allows(capability Capability) bool {
	for _, granted := range grants[capability] {
		if granted == r {
			return true
		}
	}
	return false
}
