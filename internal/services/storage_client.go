package services

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/damacus/cos-browser/internal/models"
)

// DefaultPageSize is the default number of keys to return per page
const DefaultPageSize = 1000

// BucketInfo is a bucket as reported by the storage service
type BucketInfo struct {
	Name         string
	CreationDate time.Time
}

// ObjectSummary is one object entry of a listing page
type ObjectSummary struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// ListObjectsOptions selects one page of a listing
type ListObjectsOptions struct {
	Prefix            string
	Delimiter         string
	MaxKeys           int
	ContinuationToken string
}

// ListObjectsResult contains one page of results
type ListObjectsResult struct {
	CommonPrefixes        []string
	Objects               []ObjectSummary
	IsTruncated           bool
	NextContinuationToken string
}

// StorageClient is the subset of S3 operations the browser relies on.
// Implementations must be safe for concurrent use.
type StorageClient interface {
	ListBuckets(ctx context.Context) ([]BucketInfo, error)
	ListObjectsPage(ctx context.Context, bucketName string, opts ListObjectsOptions) (ListObjectsResult, error)
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, contentType string) error
	GetObject(ctx context.Context, bucketName, objectName string) (io.ReadCloser, error)
	RemoveObject(ctx context.Context, bucketName, objectName string) error
}

// ClientFactory creates authenticated clients
type ClientFactory interface {
	NewClient(creds models.Credentials, cfg models.ConnectionConfig) (StorageClient, error)
}

// shouldUseSSL determines if SSL should be used based on the endpoint.
// Returns false for localhost, 127.0.0.1, and docker service names.
func shouldUseSSL(endpoint string) bool {
	// Local development endpoints
	if endpoint == "localhost:9000" || endpoint == "127.0.0.1:9000" {
		return false
	}
	// Docker service names (minio:9000, minio1:9000, minio2:9000, etc.)
	// Only match simple hostnames without dots (not domain names like minio.example.com)
	if strings.HasPrefix(endpoint, "minio") && !strings.Contains(strings.Split(endpoint, ":")[0], ".") && strings.Contains(endpoint, ":9000") {
		return false
	}
	return true
}

// resolveEndpoint splits an endpoint that may carry a scheme into host and TLS flag.
// An explicit scheme wins over the host heuristics; cfg.UseSSL wins over both.
func resolveEndpoint(cfg models.ConnectionConfig) (string, bool) {
	host := cfg.Endpoint()
	secure := true
	switch {
	case strings.HasPrefix(host, "https://"):
		host = strings.TrimPrefix(host, "https://")
	case strings.HasPrefix(host, "http://"):
		host = strings.TrimPrefix(host, "http://")
		secure = false
	default:
		secure = shouldUseSSL(host)
	}
	host = strings.TrimSuffix(host, "/")
	if cfg.UseSSL != nil {
		secure = *cfg.UseSSL
	}
	return host, secure
}

func endpointURL(cfg models.ConnectionConfig) string {
	host, secure := resolveEndpoint(cfg)
	if secure {
		return "https://" + host
	}
	return "http://" + host
}
