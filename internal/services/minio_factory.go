package services

import (
	"context"
	"io"
	"strings"

	"github.com/damacus/cos-browser/internal/models"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// WrappedMinioClient wraps minio.Client to implement StorageClient
type WrappedMinioClient struct {
	client *minio.Client
}

func (c *WrappedMinioClient) ListBuckets(ctx context.Context) ([]BucketInfo, error) {
	raw, err := c.client.ListBuckets(ctx)
	if err != nil {
		return nil, err
	}
	buckets := make([]BucketInfo, len(raw))
	for i, b := range raw {
		buckets[i] = BucketInfo{Name: b.Name, CreationDate: b.CreationDate}
	}
	return buckets, nil
}

// ListObjectsPage reads one page off the minio listing channel.
// MinIO paginates by marker, so the last key seen is handed back as the continuation token.
func (c *WrappedMinioClient) ListObjectsPage(ctx context.Context, bucketName string, opts ListObjectsOptions) (ListObjectsResult, error) {
	maxKeys := opts.MaxKeys
	if maxKeys <= 0 {
		maxKeys = DefaultPageSize
	}

	minioOpts := minio.ListObjectsOptions{
		Prefix:    opts.Prefix,
		Recursive: opts.Delimiter == "",
		MaxKeys:   maxKeys,
	}
	if opts.ContinuationToken != "" {
		minioOpts.StartAfter = opts.ContinuationToken
	}

	// Cancel the listing goroutine once the page is full
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var result ListObjectsResult
	var lastKey string
	count := 0

	for obj := range c.client.ListObjects(ctx, bucketName, minioOpts) {
		if obj.Err != nil {
			return ListObjectsResult{}, obj.Err
		}

		if count >= maxKeys {
			// One more entry exists past the page boundary
			result.IsTruncated = true
			break
		}

		// Common prefixes arrive as bare keys ending in "/" with no timestamp
		if opts.Delimiter != "" && strings.HasSuffix(obj.Key, opts.Delimiter) && obj.LastModified.IsZero() {
			result.CommonPrefixes = append(result.CommonPrefixes, obj.Key)
		} else {
			result.Objects = append(result.Objects, ObjectSummary{
				Key:          obj.Key,
				Size:         obj.Size,
				LastModified: obj.LastModified,
			})
		}
		lastKey = obj.Key
		count++
	}

	if result.IsTruncated {
		result.NextContinuationToken = lastKey
	}
	return result, nil
}

func (c *WrappedMinioClient) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, contentType string) error {
	_, err := c.client.PutObject(ctx, bucketName, objectName, reader, objectSize, minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

// GetObject stats the object before returning it so missing keys fail here rather than on first read
func (c *WrappedMinioClient) GetObject(ctx context.Context, bucketName, objectName string) (io.ReadCloser, error) {
	obj, err := c.client.GetObject(ctx, bucketName, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, err
	}
	return obj, nil
}

func (c *WrappedMinioClient) RemoveObject(ctx context.Context, bucketName, objectName string) error {
	return c.client.RemoveObject(ctx, bucketName, objectName, minio.RemoveObjectOptions{})
}

// MinioFactory is the default ClientFactory
type MinioFactory struct{}

func (f *MinioFactory) NewClient(creds models.Credentials, cfg models.ConnectionConfig) (StorageClient, error) {
	host, secure := resolveEndpoint(cfg)

	transport, err := minio.DefaultTransport(secure)
	if err != nil {
		return nil, err
	}
	transport.ResponseHeaderTimeout = cfg.RequestTimeout()

	lookup := minio.BucketLookupAuto
	if cfg.PathStyle {
		lookup = minio.BucketLookupPath
	}

	client, err := minio.New(host, &minio.Options{
		Creds:        credentials.NewStaticV4(creds.AccessKey(), creds.SecretKey(), ""),
		Secure:       secure,
		Region:       cfg.Region(),
		Transport:    transport,
		BucketLookup: lookup,
	})
	if err != nil {
		return nil, err
	}
	return &WrappedMinioClient{client: client}, nil
}
