// Package auth resolves bearer tokens to an authenticated Principal and
// gates routes by role. Token issuance (OAuth2/SAML flows) lives outside the
// exchange; this package only validates the signed tokens those flows mint.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// User roles. A user is exactly one of these; superusers bypass row-level
// restrictions entirely.
const (
	RoleSuperuser    = "superuser"
	RolePractitioner = "practitioner"
	RolePatient      = "patient"
)

// Principal is the authenticated caller.
type Principal struct {
	UserID int64
	Role   string
	Email  string
}

// Resolver looks a token subject up as a known user. An id that does not
// resolve is an authentication failure, never an empty-result query.
type Resolver interface {
	ResolveCaller(ctx context.Context, userID int64) (*Principal, error)
}

type contextKey string

const principalKey contextKey = "principal"

// ErrUnresolvable marks a syntactically valid token whose subject is not a
// known user.
var ErrUnresolvable = errors.New("auth: token subject does not resolve to a known user")

// WithPrincipal returns a context carrying the principal.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// FromContext returns the request principal, or nil when unauthenticated.
func FromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey).(*Principal)
	return p
}

// Middleware validates the Authorization bearer token (HS256, shared secret)
// and resolves its subject via the Resolver, storing the Principal on the
// request context.
func Middleware(secret, issuer string, resolver Resolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}
			raw := strings.TrimPrefix(header, "Bearer ")

			claims := jwt.RegisteredClaims{}
			token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
				}
				return []byte(secret), nil
			}, jwt.WithIssuer(issuer))
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			userID, err := strconv.ParseInt(claims.Subject, 10, 64)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token subject")
			}

			principal, err := resolver.ResolveCaller(c.Request().Context(), userID)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "unknown user")
			}

			ctx := WithPrincipal(c.Request().Context(), principal)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// RequireRole gates a route group to the given roles. Superusers always pass.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p := FromContext(c.Request().Context())
			if p == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			if p.Role == RoleSuperuser {
				return next(c)
			}
			for _, r := range roles {
				if p.Role == r {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required role: %s", strings.Join(roles, " or ")))
		}
	}
}
