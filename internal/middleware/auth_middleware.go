package middleware

import (
	"net/http"

	"github.com/damacus/cos-browser/internal/services"
	"github.com/damacus/cos-browser/internal/utils"
	"github.com/labstack/echo/v4"
)

func isPublicPath(path string) bool {
	return path == "/login" || path == "/health" || path == "/logout"
}

func unauthorized(c echo.Context, cookie *http.Cookie) error {
	if cookie != nil {
		// Invalid cookie - Clear it so the client logs in again
		cookie.Value = ""
		cookie.MaxAge = -1
		cookie.Path = "/"
		c.SetCookie(cookie)
	}
	return c.JSON(http.StatusUnauthorized, map[string]string{"error": "authentication required"})
}

// AuthMiddleware opens the session cookie and stores the session and a storage client
// for it in the context. No request is sent to the storage service here.
func AuthMiddleware(authService *services.AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// Skip for public routes
			if isPublicPath(c.Request().URL.Path) {
				return next(c)
			}

			cookie, err := c.Cookie(utils.CookieName)
			if err != nil {
				return unauthorized(c, nil)
			}

			session, err := authService.OpenSession(cookie.Value)
			if err != nil {
				return unauthorized(c, cookie)
			}

			creds, err := session.Credentials()
			if err != nil {
				return unauthorized(c, cookie)
			}
			cfg, err := session.ConnectionConfig()
			if err != nil {
				return unauthorized(c, cookie)
			}

			client, err := authService.Authenticate(creds, cfg)
			if err != nil {
				return unauthorized(c, cookie)
			}

			c.Set(utils.ContextKeySession, session)
			c.Set(utils.ContextKeyClient, client)

			return next(c)
		}
	}
}
