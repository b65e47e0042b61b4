package middleware

import (
	"net/http"
	"slices"

	"github.com/labstack/echo/v4"

	jwthelp "github.com/Skotchmaster/sweet_shop/pkg/jwt"
	"github.com/Skotchmaster/sweet_shop/pkg/session"
	"github.com/Skotchmaster/sweet_shop/pkg/tokens"
)

// Middleware lets a request through when it carries a valid access token,
// or an expired one together with a refresh token: the upstream service
// performs the refresh and sets the new cookies.
func Middleware(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			accessCookie, err := c.Cookie(jwthelp.AccessCookie)
			if err == nil && accessCookie.Value != "" {
				claims, err := tokens.AccessClaimsFromToken(accessCookie.Value, secret)
				if err == nil && claims != nil && claims.Subject != "" {
					session.Set(c, claims)
					return next(c)
				}
			}

			if refresh, err := c.Cookie(jwthelp.RefreshCookie); err == nil && refresh.Value != "" {
				return next(c)
			}
			return echo.NewHTTPError(http.StatusUnauthorized, "missing or invalid access token")
		}
	}
}

// RequireRole only checks requests whose role Middleware could read; the
// refresh path is left to the upstream service's own check.
func RequireRole(required []string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(session.CtxRole).(string)
			if !ok {
				return next(c)
			}
			if !slices.Contains(required, role) {
				return echo.NewHTTPError(http.StatusForbidden, "you don't have enough rights to see this page")
			}
			return next(c)
		}
	}
}
