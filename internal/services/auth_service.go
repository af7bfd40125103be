package services

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"os"

	"github.com/damacus/cos-browser/internal/models"
)

// Session is the login state sealed into the session cookie
type Session struct {
	Endpoint  string `json:"endpoint"`
	Region    string `json:"region"`
	AccessKey string `json:"accessKey"`
	SecretKey string `json:"secretKey"`
	TimeoutMs int    `json:"timeoutMs,omitempty"`

	// VirtualHost selects bucket-in-hostname addressing instead of path style
	VirtualHost bool `json:"virtualHost,omitempty"`
}

// Credentials validates the stored key pair
func (s Session) Credentials() (models.Credentials, error) {
	return models.NewCredentials(s.AccessKey, s.SecretKey)
}

// ConnectionConfig validates the stored connection settings
func (s Session) ConnectionConfig() (models.ConnectionConfig, error) {
	var cfg models.ConnectionConfig
	var err error
	if s.TimeoutMs <= 0 {
		cfg, err = models.NewConnectionConfig(s.Endpoint, s.Region)
	} else {
		cfg, err = models.NewConnectionConfigWithTimeout(s.Endpoint, s.Region, s.TimeoutMs)
	}
	if err != nil {
		return models.ConnectionConfig{}, err
	}
	cfg.PathStyle = !s.VirtualHost
	return cfg, nil
}

// Authenticator turns credentials into a working storage client
type Authenticator interface {
	Authenticate(creds models.Credentials, cfg models.ConnectionConfig) (StorageClient, error)
	ValidateConnection(ctx context.Context, client StorageClient) (bool, error)
}

type AuthService struct {
	factory       ClientFactory
	encryptionKey []byte
}

// NewAuthService creates a new auth service with a key from env or generates one (ephemeral)
func NewAuthService(factory ClientFactory) *AuthService {
	if factory == nil {
		factory = &MinioFactory{}
	}
	key := os.Getenv("COS_SESSION_KEY")
	if len(key) != 32 {
		// Without a configured key, sessions do not survive a restart.
		newKey := make([]byte, 32)
		if _, err := io.ReadFull(rand.Reader, newKey); err != nil {
			panic("failed to generate random key")
		}
		return &AuthService{factory: factory, encryptionKey: newKey}
	}
	return &AuthService{factory: factory, encryptionKey: []byte(key)}
}

// Authenticate builds a client handle. It does not contact the service.
func (s *AuthService) Authenticate(creds models.Credentials, cfg models.ConnectionConfig) (StorageClient, error) {
	client, err := s.factory.NewClient(creds, cfg)
	if err != nil {
		return nil, &AuthenticationError{Message: "failed to create authenticated client", Cause: err}
	}
	if client == nil {
		return nil, &AuthenticationError{Message: "failed to create authenticated client"}
	}
	return client, nil
}

// ValidateConnection makes one ListBuckets round trip; it never retries
func (s *AuthService) ValidateConnection(ctx context.Context, client StorageClient) (bool, error) {
	if client == nil {
		return false, &AuthenticationError{Message: "connection validation failed", Cause: models.ErrInvalidArgument}
	}
	if _, err := client.ListBuckets(ctx); err != nil {
		return false, &AuthenticationError{Message: "connection validation failed", Cause: err}
	}
	return true, nil
}

// Connect authenticates and validates in one step
func (s *AuthService) Connect(ctx context.Context, creds models.Credentials, cfg models.ConnectionConfig) (StorageClient, error) {
	client, err := s.Authenticate(creds, cfg)
	if err != nil {
		return nil, err
	}
	if _, err := s.ValidateConnection(ctx, client); err != nil {
		return nil, err
	}
	return client, nil
}

// SealSession serializes and encrypts a session into a string (for the cookie)
func (s *AuthService) SealSession(session Session) (string, error) {
	data, err := json.Marshal(session)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(s.encryptionKey)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := gcm.Seal(nonce, nonce, data, nil)
	return base64.URLEncoding.EncodeToString(ciphertext), nil
}

// OpenSession decodes the cookie value back into a Session
func (s *AuthService) OpenSession(encrypted string) (*Session, error) {
	ciphertext, err := base64.URLEncoding.DecodeString(encrypted)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(s.encryptionKey)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("malformed ciphertext")
	}

	nonce, ciphertext := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, err
	}

	var session Session
	if err := json.Unmarshal(plaintext, &session); err != nil {
		return nil, err
	}

	return &session, nil
}
