package config

import (
	"fmt"
	"strings"

	"github.com/damacus/cos-browser/internal/models"
	"github.com/damacus/cos-browser/internal/services"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	BackendMinio = "minio"
	BackendS3    = "s3"
)

type Config struct {
	Storage StorageConfig
	Server  ServerConfig
	Log     LogConfig
}

type StorageConfig struct {
	Endpoint         string
	Region           string
	RequestTimeoutMs int
	Backend          string
	PathStyle        bool
	AccessKey        string
	SecretKey        string
}

type ServerConfig struct {
	Addr          string
	MaxTrackedOps int

	// WorkspaceDir bounds the host paths HTTP uploads read and downloads write. Empty disables both.
	WorkspaceDir string
	// AllowCustomEndpoint lets /login pick an endpoint other than COS_ENDPOINT
	AllowCustomEndpoint bool
}

type LogConfig struct {
	Level  string
	Format string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("COS_ENDPOINT", "play.min.io:9000")
	v.SetDefault("COS_REGION", "us-east-1")
	v.SetDefault("COS_REQUEST_TIMEOUT_MS", 5000)
	v.SetDefault("COS_BACKEND", BackendMinio)
	v.SetDefault("COS_PATH_STYLE", true)
	v.SetDefault("COS_ACCESS_KEY", "")
	v.SetDefault("COS_SECRET_KEY", "")
	v.SetDefault("COS_MAX_TRACKED_OPS", 100)
	v.SetDefault("SERVER_ADDR", "127.0.0.1:8080")
	v.SetDefault("COS_WORKSPACE_DIR", "")
	v.SetDefault("COS_ALLOW_CUSTOM_ENDPOINT", false)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
}

// Load reads .env (if present), then COS_CONFIG_FILE (if set), then the environment.
// Environment variables win over the file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path := v.GetString("COS_CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Storage: StorageConfig{
			Endpoint:         v.GetString("COS_ENDPOINT"),
			Region:           v.GetString("COS_REGION"),
			RequestTimeoutMs: v.GetInt("COS_REQUEST_TIMEOUT_MS"),
			Backend:          strings.ToLower(strings.TrimSpace(v.GetString("COS_BACKEND"))),
			PathStyle:        v.GetBool("COS_PATH_STYLE"),
			AccessKey:        v.GetString("COS_ACCESS_KEY"),
			SecretKey:        v.GetString("COS_SECRET_KEY"),
		},
		Server: ServerConfig{
			Addr:                v.GetString("SERVER_ADDR"),
			MaxTrackedOps:       v.GetInt("COS_MAX_TRACKED_OPS"),
			WorkspaceDir:        v.GetString("COS_WORKSPACE_DIR"),
			AllowCustomEndpoint: v.GetBool("COS_ALLOW_CUSTOM_ENDPOINT"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
	}

	switch cfg.Storage.Backend {
	case BackendMinio, BackendS3:
	default:
		return nil, fmt.Errorf("unknown COS_BACKEND %q (want %s or %s)", cfg.Storage.Backend, BackendMinio, BackendS3)
	}
	return cfg, nil
}

// ConnectionConfig builds the validated connection settings
func (c StorageConfig) ConnectionConfig() (models.ConnectionConfig, error) {
	conn, err := models.NewConnectionConfigWithTimeout(c.Endpoint, c.Region, c.RequestTimeoutMs)
	if err != nil {
		return models.ConnectionConfig{}, err
	}
	conn.PathStyle = c.PathStyle
	return conn, nil
}

// Credentials builds the key pair configured for the CLI
func (c StorageConfig) Credentials() (models.Credentials, error) {
	return models.NewCredentials(c.AccessKey, c.SecretKey)
}

// Factory returns the client factory for the configured backend
func (c StorageConfig) Factory() services.ClientFactory {
	if c.Backend == BackendS3 {
		return &services.S3Factory{}
	}
	return &services.MinioFactory{}
}
