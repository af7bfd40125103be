package main

import (
	"context"
	"io"

	"github.com/damacus/cos-browser/internal/models"
	"github.com/damacus/cos-browser/internal/services"
	"github.com/stretchr/testify/mock"
)

// MockStorageClient implements services.StorageClient for testing
type MockStorageClient struct {
	mock.Mock
}

func (m *MockStorageClient) ListBuckets(ctx context.Context) ([]services.BucketInfo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]services.BucketInfo), args.Error(1)
}

func (m *MockStorageClient) ListObjectsPage(ctx context.Context, bucketName string, opts services.ListObjectsOptions) (services.ListObjectsResult, error) {
	args := m.Called(ctx, bucketName, opts)
	return args.Get(0).(services.ListObjectsResult), args.Error(1)
}

func (m *MockStorageClient) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, contentType string) error {
	return m.Called(ctx, bucketName, objectName, reader, objectSize, contentType).Error(0)
}

func (m *MockStorageClient) GetObject(ctx context.Context, bucketName, objectName string) (io.ReadCloser, error) {
	args := m.Called(ctx, bucketName, objectName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

func (m *MockStorageClient) RemoveObject(ctx context.Context, bucketName, objectName string) error {
	return m.Called(ctx, bucketName, objectName).Error(0)
}

// MockClientFactory implements services.ClientFactory for testing
type MockClientFactory struct {
	mock.Mock
}

func (m *MockClientFactory) NewClient(creds models.Credentials, cfg models.ConnectionConfig) (services.StorageClient, error) {
	args := m.Called(creds, cfg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(services.StorageClient), args.Error(1)
}
