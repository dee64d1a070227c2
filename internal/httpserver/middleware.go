package httpserver

import (
	"errors"
	"slices"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/apperr"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/Skotchmaster/storefront/pkg/tokens"
)

var (
	errNotLoggedIn   = apperr.Unauthorized("You are not logged in! Please log in to get access.")
	errInvalidToken  = apperr.Unauthorized("Invalid token. Please log in again!")
	errUserGone      = apperr.Unauthorized("The user belonging to this token does no longer exist.")
	errPasswordReset = apperr.Unauthorized("User recently changed password! Please log in again.")
	errNoPermission  = apperr.Forbidden("You do not have permission to perform this action")
)

// hasToken reports whether the request carries a bearer header or a
// non-empty jwt cookie.
func hasToken(c echo.Context) bool {
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ") {
		return true
	}
	ck, err := c.Cookie(tokens.CookieName)
	return err == nil && ck.Value != ""
}

// Protect verifies the access token from the Authorization header or the jwt
// cookie and loads the active user it belongs to. Tokens issued before the
// last password change are rejected.
func Protect(secret []byte, r *repo.GormRepo) echo.MiddlewareFunc {
	verify := echojwt.WithConfig(echojwt.Config{
		SigningKey:  secret,
		ContextKey:  ctxToken,
		TokenLookup: "header:Authorization:Bearer ,cookie:" + tokens.CookieName,
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(tokens.AccessClaims)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			if !hasToken(c) {
				return errNotLoggedIn
			}
			logging.FromContext(c.Request().Context()).Warn("protect_error", "status", 401, "reason", "invalid token", "error", err)
			return errInvalidToken
		},
	})

	load := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := c.Get(ctxToken).(*jwt.Token)
			if !ok {
				return errInvalidToken
			}
			claims, ok := token.Claims.(*tokens.AccessClaims)
			if !ok || claims.IssuedAt == nil {
				return errInvalidToken
			}
			id, err := uuid.Parse(claims.Subject)
			if err != nil {
				return errInvalidToken
			}

			u, err := r.UserByID(c.Request().Context(), id)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errUserGone
			}
			if err != nil {
				return err
			}
			if u.ChangedPasswordAfter(claims.IssuedAt.Time) {
				return errPasswordReset
			}

			c.Set(ctxUser, u)
			l := logging.FromContext(c.Request().Context()).With("user_id", u.ID)
			c.SetRequest(c.Request().WithContext(logging.IntoContext(c.Request().Context(), l)))
			return next(c)
		}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return verify(load(next))
	}
}

// RestrictTo allows only the listed roles. It must run after Protect.
func RestrictTo(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u := CurrentUser(c)
			if u == nil {
				return errNotLoggedIn
			}
			if !slices.Contains(roles, u.Role) {
				return errNoPermission
			}
			return next(c)
		}
	}
}
