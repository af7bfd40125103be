package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidArgument marks input that was rejected before any network call.
var ErrInvalidArgument = errors.New("invalid argument")

// DefaultRequestTimeout applies when a ConnectionConfig is built without an explicit timeout
const DefaultRequestTimeout = 5000 * time.Millisecond

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, msg)
}

// Credentials holds the access key pair for the storage service
type Credentials struct {
	accessKey string
	secretKey string
}

// NewCredentials trims and validates both keys
func NewCredentials(accessKey, secretKey string) (Credentials, error) {
	accessKey = strings.TrimSpace(accessKey)
	secretKey = strings.TrimSpace(secretKey)
	if accessKey == "" {
		return Credentials{}, invalid("access key cannot be empty")
	}
	if secretKey == "" {
		return Credentials{}, invalid("secret key cannot be empty")
	}
	return Credentials{accessKey: accessKey, secretKey: secretKey}, nil
}

func (c Credentials) AccessKey() string { return c.accessKey }

func (c Credentials) SecretKey() string { return c.secretKey }

// ConnectionConfig describes where and how to reach the storage service
type ConnectionConfig struct {
	endpoint       string
	region         string
	requestTimeout time.Duration

	// PathStyle forces bucket-in-path addressing. Most S3-compatible services need it.
	PathStyle bool
	// UseSSL overrides the scheme guessed from the endpoint when non-nil.
	UseSSL *bool
}

// NewConnectionConfig builds a config with DefaultRequestTimeout
func NewConnectionConfig(endpoint, region string) (ConnectionConfig, error) {
	return NewConnectionConfigWithTimeout(endpoint, region, int(DefaultRequestTimeout/time.Millisecond))
}

// NewConnectionConfigWithTimeout builds a config with a request timeout in milliseconds
func NewConnectionConfigWithTimeout(endpoint, region string, timeoutMs int) (ConnectionConfig, error) {
	endpoint = strings.TrimSpace(endpoint)
	region = strings.TrimSpace(region)
	if endpoint == "" {
		return ConnectionConfig{}, invalid("endpoint cannot be empty")
	}
	if region == "" {
		return ConnectionConfig{}, invalid("region cannot be empty")
	}
	if timeoutMs <= 0 {
		return ConnectionConfig{}, invalid("request timeout must be positive")
	}
	return ConnectionConfig{
		endpoint:       endpoint,
		region:         region,
		requestTimeout: time.Duration(timeoutMs) * time.Millisecond,
		PathStyle:      true,
	}, nil
}

func (c ConnectionConfig) Endpoint() string { return c.endpoint }

func (c ConnectionConfig) Region() string { return c.region }

func (c ConnectionConfig) RequestTimeout() time.Duration { return c.requestTimeout }
