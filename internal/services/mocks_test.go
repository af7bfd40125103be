package services

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/damacus/cos-browser/internal/models"
	"github.com/stretchr/testify/mock"
)

// MockStorageClient implements StorageClient for testing
type MockStorageClient struct {
	mock.Mock
}

func (m *MockStorageClient) ListBuckets(ctx context.Context) ([]BucketInfo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]BucketInfo), args.Error(1)
}

func (m *MockStorageClient) ListObjectsPage(ctx context.Context, bucketName string, opts ListObjectsOptions) (ListObjectsResult, error) {
	args := m.Called(ctx, bucketName, opts)
	return args.Get(0).(ListObjectsResult), args.Error(1)
}

func (m *MockStorageClient) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, contentType string) error {
	args := m.Called(ctx, bucketName, objectName, reader, objectSize, contentType)
	return args.Error(0)
}

func (m *MockStorageClient) GetObject(ctx context.Context, bucketName, objectName string) (io.ReadCloser, error) {
	args := m.Called(ctx, bucketName, objectName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

func (m *MockStorageClient) RemoveObject(ctx context.Context, bucketName, objectName string) error {
	args := m.Called(ctx, bucketName, objectName)
	return args.Error(0)
}

// MockClientFactory implements ClientFactory for testing
type MockClientFactory struct {
	mock.Mock
}

func (m *MockClientFactory) NewClient(creds models.Credentials, cfg models.ConnectionConfig) (StorageClient, error) {
	args := m.Called(creds, cfg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(StorageClient), args.Error(1)
}

// memoryClient is an in-memory StorageClient with S3-like delimiter and paging behaviour
type memoryClient struct {
	mu       sync.Mutex
	objects  map[string]map[string][]byte
	modTime  time.Time
	pageSize int
}

func newMemoryClient(buckets ...string) *memoryClient {
	c := &memoryClient{
		objects: make(map[string]map[string][]byte),
		modTime: time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC),
	}
	for _, b := range buckets {
		c.objects[b] = make(map[string][]byte)
	}
	return c
}

func (c *memoryClient) put(bucket, key, body string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.objects[bucket][key] = []byte(body)
}

func (c *memoryClient) ListBuckets(ctx context.Context) ([]BucketInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var buckets []BucketInfo
	for name := range c.objects {
		buckets = append(buckets, BucketInfo{Name: name})
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Name < buckets[j].Name })
	return buckets, nil
}

func (c *memoryClient) ListObjectsPage(ctx context.Context, bucketName string, opts ListObjectsOptions) (ListObjectsResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	bucket, ok := c.objects[bucketName]
	if !ok {
		return ListObjectsResult{}, &StorageError{Message: "NoSuchBucket", Kind: KindNotFound}
	}

	keys := make([]string, 0, len(bucket))
	for k := range bucket {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pageSize := opts.MaxKeys
	if pageSize <= 0 {
		pageSize = c.pageSize
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	var result ListObjectsResult
	seen := make(map[string]bool)
	count := 0
	for _, k := range keys {
		if !strings.HasPrefix(k, opts.Prefix) || (opts.ContinuationToken != "" && k <= opts.ContinuationToken) {
			continue
		}
		if count == pageSize {
			result.IsTruncated = true
			break
		}
		rest := strings.TrimPrefix(k, opts.Prefix)
		if opts.Delimiter != "" {
			if idx := strings.Index(rest, opts.Delimiter); idx >= 0 {
				cp := opts.Prefix + rest[:idx+1]
				if !seen[cp] {
					seen[cp] = true
					result.CommonPrefixes = append(result.CommonPrefixes, cp)
				}
				result.NextContinuationToken = k
				count++
				continue
			}
		}
		result.Objects = append(result.Objects, ObjectSummary{Key: k, Size: int64(len(bucket[k])), LastModified: c.modTime})
		result.NextContinuationToken = k
		count++
	}
	if !result.IsTruncated {
		result.NextContinuationToken = ""
	}
	return result, nil
}

func (c *memoryClient) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, contentType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.objects[bucketName]; !ok {
		return &StorageError{Message: "NoSuchBucket", Kind: KindNotFound}
	}
	c.objects[bucketName][objectName] = data
	return nil
}

func (c *memoryClient) GetObject(ctx context.Context, bucketName, objectName string) (io.ReadCloser, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.objects[bucketName][objectName]
	if !ok {
		return nil, &StorageError{Message: "NoSuchKey", Kind: KindNotFound}
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (c *memoryClient) RemoveObject(ctx context.Context, bucketName, objectName string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.objects[bucketName], objectName)
	return nil
}

// trackingReadCloser records whether Close was called
type trackingReadCloser struct {
	io.Reader
	closed bool
}

func (r *trackingReadCloser) Close() error {
	r.closed = true
	return nil
}
