package handlers

import (
	"errors"
	"net/http"

	"github.com/damacus/cos-browser/internal/models"
	"github.com/damacus/cos-browser/internal/services"
	"github.com/damacus/cos-browser/internal/utils"
	"github.com/labstack/echo/v4"
)

// ErrorResponse is the body of every failed API call
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// GetSession retrieves the opened session from the context
func GetSession(c echo.Context) (*services.Session, error) {
	session, ok := c.Get(utils.ContextKeySession).(*services.Session)
	if !ok || session == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}
	return session, nil
}

// GetClient retrieves the storage client the auth middleware built for this request
func GetClient(c echo.Context) (services.StorageClient, error) {
	client, ok := c.Get(utils.ContextKeyClient).(services.StorageClient)
	if !ok || client == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}
	return client, nil
}

// StatusFor maps a core error to an HTTP status
func StatusFor(err error) int {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Code
	}
	if errors.Is(err, models.ErrInvalidArgument) {
		return http.StatusBadRequest
	}
	var authErr *services.AuthenticationError
	if errors.As(err, &authErr) {
		return http.StatusUnauthorized
	}
	var storageErr *services.StorageError
	if errors.As(err, &storageErr) {
		switch storageErr.Kind {
		case services.KindNotFound:
			return http.StatusNotFound
		case services.KindPermissionDenied:
			return http.StatusForbidden
		case services.KindTimeout:
			return http.StatusGatewayTimeout
		case services.KindInvalidInput:
			return http.StatusBadRequest
		}
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func respondError(c echo.Context, err error) error {
	resp := ErrorResponse{Error: err.Error()}
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		if msg, ok := httpErr.Message.(string); ok {
			resp.Error = msg
		}
	}
	var storageErr *services.StorageError
	if errors.As(err, &storageErr) {
		resp.Kind = storageErr.Kind.String()
	}
	return c.JSON(StatusFor(err), resp)
}
