package auth

import (
	"context"

	xhttp "Copilot/pkg/http"

	"github.com/labstack/echo/v4"
)

type ctxKey struct{}

// Identity is what authentication attaches to a request.
type Identity struct {
	Claims *Claims
	// Rejected is set when a bearer token was sent but failed verification.
	Rejected bool
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the verified access claims, if any.
func FromContext(ctx context.Context) (*Claims, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	if !ok || id.Claims == nil {
		return nil, false
	}
	return id.Claims, true
}

func identity(ctx context.Context) Identity {
	id, _ := ctx.Value(ctxKey{}).(Identity)
	return id
}

// AccountStatus reports whether userID may still authenticate. A missing
// account is (false, nil).
type AccountStatus func(ctx context.Context, userID int64) (bool, error)

// Authenticate verifies a bearer access token and attaches the result to
// the request context. A token whose account is gone or inactive is treated
// as rejected. It never rejects a request.
func Authenticate(issuer *Issuer, status AccountStatus) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := xhttp.BearerToken(c)
			if !ok {
				return next(c)
			}
			req := c.Request()
			var id Identity
			if claims, err := issuer.Parse(token, AccessToken); err == nil {
				id.Claims = claims
			} else {
				id.Rejected = true
			}
			if id.Claims != nil && status != nil {
				active, err := status(req.Context(), id.Claims.UserID)
				if err != nil {
					return err
				}
				if !active {
					id = Identity{Rejected: true}
				}
			}
			c.SetRequest(req.WithContext(WithIdentity(req.Context(), id)))
			return next(c)
		}
	}
}

// RequireUser rejects requests that Authenticate did not verify.
func RequireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := identity(c.Request().Context())
		if id.Claims != nil {
			return next(c)
		}
		if id.Rejected {
			return xhttp.AppErrorResponse(c, xhttp.TokenNotValidError())
		}
		return xhttp.AppErrorResponse(c, xhttp.NotAuthenticatedError())
	}
}
