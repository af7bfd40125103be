package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/smithy-go"
	"github.com/damacus/cos-browser/internal/models"
	"github.com/minio/minio-go/v7"
)

// AuthenticationError reports a failure to build or validate a storage client
type AuthenticationError struct {
	Message string
	Cause   error
}

func (e *AuthenticationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AuthenticationError) Unwrap() error {
	return e.Cause
}

// ErrMissingContinuationToken is returned when a truncated listing page carries no token to resume from
var ErrMissingContinuationToken = errors.New("truncated page without continuation token")

// ErrKind classifies a storage failure without exposing SDK-specific codes
type ErrKind int

const (
	KindUnknown ErrKind = iota
	KindNotFound
	KindPermissionDenied
	KindTimeout
	KindConnectionFailed
	KindInvalidInput
)

func (k ErrKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindPermissionDenied:
		return "permission_denied"
	case KindTimeout:
		return "timeout"
	case KindConnectionFailed:
		return "connection_failed"
	case KindInvalidInput:
		return "invalid_input"
	default:
		return "unknown"
	}
}

// StorageError wraps the failure of a single storage operation
type StorageError struct {
	Op      string
	Message string
	Kind    ErrKind
	Cause   error
}

func (e *StorageError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *StorageError) Unwrap() error {
	return e.Cause
}

// newStorageError classifies cause and wraps it
func newStorageError(op, msg string, cause error) *StorageError {
	return &StorageError{Op: op, Message: msg, Kind: classify(cause), Cause: cause}
}

// invalidInput wraps models.ErrInvalidArgument so errors.Is keeps working through the StorageError
func invalidInput(op, msg string) *StorageError {
	return &StorageError{
		Op:      op,
		Message: msg,
		Kind:    KindInvalidInput,
		Cause:   models.ErrInvalidArgument,
	}
}

func classify(err error) ErrKind {
	if err == nil {
		return KindUnknown
	}
	if errors.Is(err, models.ErrInvalidArgument) {
		return KindInvalidInput
	}
	if errors.Is(err, ErrMissingContinuationToken) {
		return KindUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTimeout
	}

	var resp minio.ErrorResponse
	if errors.As(err, &resp) {
		if kind := kindFromCode(resp.Code); kind != KindUnknown {
			return kind
		}
		return kindFromStatus(resp.StatusCode)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if kind := kindFromCode(apiErr.ErrorCode()); kind != KindUnknown {
			return kind
		}
	}

	var se *StorageError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindConnectionFailed
}

// errorCode extracts the S3 error code from either SDK, or "" when there is none
func errorCode(err error) string {
	var resp minio.ErrorResponse
	if errors.As(err, &resp) {
		return resp.Code
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

func kindFromCode(code string) ErrKind {
	switch code {
	case "NoSuchBucket", "NoSuchKey", "NotFound":
		return KindNotFound
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch", "Forbidden":
		return KindPermissionDenied
	case "InvalidBucketName", "InvalidObjectName", "KeyTooLongError":
		return KindInvalidInput
	case "RequestTimeout", "SlowDown":
		return KindTimeout
	}
	return KindUnknown
}

func kindFromStatus(status int) ErrKind {
	switch status {
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusForbidden, http.StatusUnauthorized:
		return KindPermissionDenied
	case http.StatusBadRequest:
		return KindInvalidInput
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return KindTimeout
	}
	return KindConnectionFailed
}

func kindOf(err error) ErrKind {
	var se *StorageError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}

// IsNotFound reports whether err is a missing bucket or object
func IsNotFound(err error) bool {
	return kindOf(err) == KindNotFound
}

// IsPermissionDenied reports whether err is an access control failure
func IsPermissionDenied(err error) bool {
	return kindOf(err) == KindPermissionDenied
}

// IsTimeout reports whether err came from a deadline, cancellation or throttling
func IsTimeout(err error) bool {
	return kindOf(err) == KindTimeout
}
