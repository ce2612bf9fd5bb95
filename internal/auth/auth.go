// Package auth resolves the bearer token of an admin request into an
// orders.AuthContext.
package auth

import (
	"context"
	"strings"
	"time"

	"github.com/ariefcatur/go-storefront-orders/internal/orders"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

var ErrUnauthenticated = errors.New("unauthenticated")

// RoleLookup returns the roles granted to a user id.
type RoleLookup interface {
	RolesFor(ctx context.Context, userID string) ([]orders.Role, error)
}

type Resolver struct {
	Secret []byte
	Roles  RoleLookup
}

// Resolve verifies an HS256 token and loads the subject's roles. A caller
// without roles still resolves; authorization happens in the operation.
func (r *Resolver) Resolve(ctx context.Context, bearer string) (orders.AuthContext, error) {
	raw := strings.TrimSpace(strings.TrimPrefix(bearer, "Bearer "))
	if raw == "" || len(r.Secret) == 0 {
		return orders.AuthContext{}, ErrUnauthenticated
	}
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return r.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return orders.AuthContext{}, errors.Wrap(ErrUnauthenticated, err.Error())
	}
	if claims.Subject == "" {
		return orders.AuthContext{}, errors.Wrap(ErrUnauthenticated, "token has no subject")
	}

	roles, err := r.Roles.RolesFor(ctx, claims.Subject)
	if err != nil {
		return orders.AuthContext{}, errors.Wrap(err, "load roles")
	}
	return orders.AuthContext{UserID: claims.Subject, Roles: roles}, nil
}

// Issue signs a token for userID; used by the CLI to mint admin tokens.
func Issue(secret []byte, userID string, ttl time.Duration, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
