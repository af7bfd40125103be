package middleware

import (
	"net/http"

	"github.com/damacus/cos-browser/internal/utils"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
)

// CSRF issues a token cookie on safe requests and requires it back in the
// X-CSRF-Token header on state-changing requests that carry a session cookie.
func CSRF() echo.MiddlewareFunc {
	return echoMiddleware.CSRFWithConfig(echoMiddleware.CSRFConfig{
		TokenLookup:    "header:X-CSRF-Token",
		CookieName:     "csrf",
		CookiePath:     "/",
		CookieSameSite: http.SameSiteStrictMode,
		Skipper: func(c echo.Context) bool {
			switch c.Request().Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
				return false
			}

			_, err := c.Cookie(utils.CookieName)
			return err != nil
		},
	})
}
