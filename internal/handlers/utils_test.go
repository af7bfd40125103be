package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/damacus/cos-browser/internal/models"
	"github.com/damacus/cos-browser/internal/services"
	"github.com/damacus/cos-browser/internal/utils"
	"github.com/labstack/echo/v4"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
)

func TestGetSession_WithValidSession(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	expected := &services.Session{
		Endpoint:  "localhost:9000",
		AccessKey: "admin",
		SecretKey: "password",
	}
	c.Set(utils.ContextKeySession, expected)

	session, err := GetSession(c)

	assert.NoError(t, err)
	assert.Same(t, expected, session)
}

func TestGetSession_WithoutSession(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	session, err := GetSession(c)

	assert.Error(t, err)
	assert.Nil(t, session)

	httpErr, ok := err.(*echo.HTTPError)
	assert.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
}

func TestGetClient_WithWrongType(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	// Set wrong type in context
	c.Set(utils.ContextKeyClient, "not-a-client")

	client, err := GetClient(c)

	assert.Error(t, err)
	assert.Nil(t, client)
}

func TestGetClient_WithClient(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	expected := new(MockStorageClient)
	c.Set(utils.ContextKeyClient, expected)

	client, err := GetClient(c)

	assert.NoError(t, err)
	assert.Same(t, expected, client)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", fmt.Errorf("%w: bucket name cannot be empty", models.ErrInvalidArgument), http.StatusBadRequest},
		{"auth", &services.AuthenticationError{Message: "connection validation failed"}, http.StatusUnauthorized},
		{"not found", &services.StorageError{Kind: services.KindNotFound}, http.StatusNotFound},
		{"denied", &services.StorageError{Kind: services.KindPermissionDenied}, http.StatusForbidden},
		{"timeout", &services.StorageError{Kind: services.KindTimeout, Cause: context.DeadlineExceeded}, http.StatusGatewayTimeout},
		{"connection", &services.StorageError{Kind: services.KindConnectionFailed}, http.StatusBadGateway},
		{"echo", echo.NewHTTPError(http.StatusTeapot, "tea"), http.StatusTeapot},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}

func TestRespondError_IncludesKind(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	err := &services.StorageError{
		Message: "failed to list objects in bucket: photos",
		Kind:    services.KindNotFound,
		Cause:   minio.ErrorResponse{Code: "NoSuchBucket", Message: "The specified bucket does not exist"},
	}
	assert.NoError(t, respondError(c, err))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"failed to list objects in bucket: photos: The specified bucket does not exist","kind":"not_found"}`, rec.Body.String())
}
