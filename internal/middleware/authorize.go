package middleware

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"invest/internal/auth"
	"invest/internal/cache"

	"github.com/rs/zerolog"
)

type RoleStore interface {
	GetRole(ctx context.Context, userID string) (string, error)
}

// Principals resolves a user's role from the store, serving repeat lookups
// from a TTL cache.
type Principals struct {
	store RoleStore
	cache *cache.TTL[auth.Role]
}

func NewPrincipals(store RoleStore, roles *cache.TTL[auth.Role]) *Principals {
	return &Principals{store: store, cache: roles}
}

func (p *Principals) Role(ctx context.Context, userID string) (auth.Role, error) {
	if role, ok := p.cache.Get(userID); ok {
		return role, nil
	}
	raw, err := p.store.GetRole(ctx, userID)
	if err != nil {
		return "", err
	}
	role, err := auth.ParseRole(raw)
	if err != nil {
		return "", err
	}
	p.cache.Set(userID, role)
	return role, nil
}

// Require rejects requests whose authenticated user lacks capability.
func Require(principals *Principals, capability auth.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := UserIDFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			role, err := principals.Role(r.Context(), userID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					writeError(w, http.StatusUnauthorized, "unknown account")
					return
				}
				zerolog.Ctx(r.Context()).Error().Err(err).Str("user_id", userID).Msg("role lookup failed")
				writeError(w, http.StatusInternalServerError, "unable to verify role")
				return
			}
			if !role.Allows(capability) {
				writeError(w, http.StatusForbidden, "insufficient privileges")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
