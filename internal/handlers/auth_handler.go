package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/damacus/cos-browser/internal/models"
	"github.com/damacus/cos-browser/internal/services"
	"github.com/damacus/cos-browser/internal/utils"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// ConnectionDefaults fill in whatever a login request leaves out
type ConnectionDefaults struct {
	Endpoint  string
	Region    string
	TimeoutMs int
	PathStyle bool

	// AllowCustomEndpoint accepts an endpoint in the login body
	AllowCustomEndpoint bool
}

type AuthHandler struct {
	authService *services.AuthService
	defaults    ConnectionDefaults
	log         zerolog.Logger
}

func NewAuthHandler(authService *services.AuthService, defaults ConnectionDefaults, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		defaults:    defaults,
		log:         log,
	}
}

type loginRequest struct {
	AccessKey string `json:"accessKey"`
	SecretKey string `json:"secretKey"`
	Endpoint  string `json:"endpoint"`
	Region    string `json:"region"`
}

type loginResponse struct {
	Endpoint string `json:"endpoint"`
	Region   string `json:"region"`
}

// Login validates the key pair against the service and sets the session cookie
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, echo.NewHTTPError(http.StatusBadRequest, "invalid login request"))
	}

	creds, err := models.NewCredentials(req.AccessKey, req.SecretKey)
	if err != nil {
		return respondError(c, err)
	}

	session := services.Session{
		Endpoint:    h.defaults.Endpoint,
		Region:      h.defaults.Region,
		AccessKey:   creds.AccessKey(),
		SecretKey:   creds.SecretKey(),
		TimeoutMs:   h.defaults.TimeoutMs,
		VirtualHost: !h.defaults.PathStyle,
	}
	if endpoint := strings.TrimSpace(req.Endpoint); endpoint != "" && endpoint != h.defaults.Endpoint {
		if !h.defaults.AllowCustomEndpoint {
			return respondError(c, fmt.Errorf("%w: custom endpoints are disabled", models.ErrInvalidArgument))
		}
		session.Endpoint = endpoint
	}
	if req.Region != "" {
		session.Region = req.Region
	}

	cfg, err := session.ConnectionConfig()
	if err != nil {
		return respondError(c, err)
	}

	// One ListBuckets round trip; any failure is a failed login
	if _, err := h.authService.Connect(c.Request().Context(), creds, cfg); err != nil {
		h.log.Warn().Err(err).Str("endpoint", cfg.Endpoint()).Msg("login failed")
		var authErr *services.AuthenticationError
		if errors.As(err, &authErr) {
			return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Authentication Failed: Invalid Credentials or Endpoint Unreachable"})
		}
		return respondError(c, err)
	}

	encrypted, err := h.authService.SealSession(session)
	if err != nil {
		return respondError(c, echo.NewHTTPError(http.StatusInternalServerError, "Failed to create session"))
	}

	cookie := new(http.Cookie)
	cookie.Name = utils.CookieName
	cookie.Value = encrypted
	cookie.Expires = time.Now().Add(24 * time.Hour)
	cookie.Path = "/"
	cookie.HttpOnly = true
	cookie.SameSite = http.SameSiteStrictMode
	cookie.Secure = requestIsSecure(c)
	c.SetCookie(cookie)

	h.log.Info().Str("endpoint", cfg.Endpoint()).Str("region", cfg.Region()).Msg("login succeeded")
	return c.JSON(http.StatusOK, loginResponse{Endpoint: cfg.Endpoint(), Region: cfg.Region()})
}

// Logout clears the session
func (h *AuthHandler) Logout(c echo.Context) error {
	cookie := new(http.Cookie)
	cookie.Name = utils.CookieName
	cookie.Value = ""
	cookie.Expires = time.Now().Add(-1 * time.Hour)
	cookie.MaxAge = -1
	cookie.Path = "/"
	cookie.HttpOnly = true
	cookie.SameSite = http.SameSiteStrictMode
	cookie.Secure = requestIsSecure(c)
	c.SetCookie(cookie)
	return c.NoContent(http.StatusNoContent)
}

func requestIsSecure(c echo.Context) bool {
	req := c.Request()
	if req.TLS != nil {
		return true
	}

	return req.Header.Get("X-Forwarded-Proto") == "https"
}
