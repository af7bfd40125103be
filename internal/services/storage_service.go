package services

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/damacus/cos-browser/internal/models"
	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
)

// downloadBufferSize bounds each chunk copied from the object stream to disk
const downloadBufferSize = 8 * 1024

// Delimiter separates folder levels in object keys
const Delimiter = "/"

// CloudStorageService is the object-storage façade used by the shells
type CloudStorageService struct {
	client StorageClient
	log    zerolog.Logger
}

// Option configures a CloudStorageService
type Option func(*CloudStorageService)

// WithLogger sets the logger used for debug tracing of storage calls
func WithLogger(log zerolog.Logger) Option {
	return func(s *CloudStorageService) {
		s.log = log
	}
}

// NewCloudStorageService wraps an authenticated client
func NewCloudStorageService(client StorageClient, opts ...Option) (*CloudStorageService, error) {
	if client == nil {
		return nil, errors.New("client cannot be nil")
	}
	s := &CloudStorageService{client: client, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ListBuckets returns bucket names in the order the service reports them
func (s *CloudStorageService) ListBuckets(ctx context.Context) ([]string, error) {
	buckets, err := s.client.ListBuckets(ctx)
	if err != nil {
		return nil, newStorageError("ListBuckets", "failed to list buckets", err)
	}
	names := make([]string, 0, len(buckets))
	for _, b := range buckets {
		names = append(names, b.Name)
	}
	return names, nil
}

// ListObjects lists one folder level under prefix. Folders come first, then files.
func (s *CloudStorageService) ListObjects(ctx context.Context, bucketName, prefix string) ([]models.FileItem, error) {
	bucketName = strings.TrimSpace(bucketName)
	prefix = strings.TrimSpace(prefix)
	if bucketName == "" {
		return nil, invalidInput("ListObjects", "bucket name cannot be empty")
	}

	result, err := s.client.ListObjectsPage(ctx, bucketName, ListObjectsOptions{
		Prefix:    prefix,
		Delimiter: Delimiter,
	})
	if err != nil {
		return nil, newStorageError("ListObjects", "failed to list objects in bucket: "+bucketName, err)
	}

	items := make([]models.FileItem, 0, len(result.CommonPrefixes)+len(result.Objects))
	for _, commonPrefix := range result.CommonPrefixes {
		name := strings.TrimPrefix(commonPrefix, prefix)
		if name == "" || !strings.HasPrefix(commonPrefix, prefix) {
			continue
		}
		folder, err := models.NewFolderItem(name)
		if err != nil {
			continue
		}
		items = append(items, folder)
	}
	for _, obj := range result.Objects {
		if obj.Key == prefix || !strings.HasPrefix(obj.Key, prefix) {
			// directory marker for the prefix itself
			continue
		}
		file, err := models.NewFileEntry(strings.TrimPrefix(obj.Key, prefix), obj.Size, obj.LastModified)
		if err != nil {
			continue
		}
		items = append(items, file)
	}

	s.log.Debug().Str("bucket", bucketName).Str("prefix", prefix).Int("items", len(items)).Msg("listed objects")
	return items, nil
}

// ListLocation lists the folder described by loc
func (s *CloudStorageService) ListLocation(ctx context.Context, loc models.Location) ([]models.FileItem, error) {
	return s.ListObjects(ctx, loc.Bucket, loc.Prefix)
}

// UploadFile puts a local file at key, replacing any object already there
func (s *CloudStorageService) UploadFile(ctx context.Context, bucketName, key, localPath string) error {
	bucketName = strings.TrimSpace(bucketName)
	key = strings.TrimSpace(key)
	if bucketName == "" {
		return invalidInput("UploadFile", "bucket name cannot be empty")
	}
	if key == "" {
		return invalidInput("UploadFile", "key cannot be empty")
	}
	if localPath == "" {
		return invalidInput("UploadFile", "file must exist")
	}

	info, err := os.Stat(localPath)
	if err != nil || !info.Mode().IsRegular() {
		return invalidInput("UploadFile", "file must exist: "+localPath)
	}

	contentType := "application/octet-stream"
	if mtype, err := mimetype.DetectFile(localPath); err == nil {
		contentType = mtype.String()
	}

	f, err := os.Open(localPath)
	if err != nil {
		return newStorageError("UploadFile", "failed to upload file: "+info.Name(), err)
	}
	defer func() { _ = f.Close() }()

	if err := s.client.PutObject(ctx, bucketName, key, f, info.Size(), contentType); err != nil {
		return newStorageError("UploadFile", "failed to upload file: "+info.Name(), err)
	}

	s.log.Debug().Str("bucket", bucketName).Str("key", key).Int64("size", info.Size()).Msg("uploaded file")
	return nil
}

// DownloadFile streams the object at key into targetPath, truncating any existing file.
// A partially written file is removed when the copy fails.
func (s *CloudStorageService) DownloadFile(ctx context.Context, bucketName, key, targetPath string) (err error) {
	bucketName = strings.TrimSpace(bucketName)
	key = strings.TrimSpace(key)
	if bucketName == "" {
		return invalidInput("DownloadFile", "bucket name cannot be empty")
	}
	if key == "" {
		return invalidInput("DownloadFile", "key cannot be empty")
	}
	if targetPath == "" {
		return invalidInput("DownloadFile", "target file cannot be empty")
	}

	body, err := s.client.GetObject(ctx, bucketName, key)
	if err != nil {
		return newStorageError("DownloadFile", "failed to download file: "+key, err)
	}
	defer func() { _ = body.Close() }()

	out, err := os.Create(targetPath)
	if err != nil {
		return newStorageError("DownloadFile", "failed to download file: "+key, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = newStorageError("DownloadFile", "failed to download file: "+key, cerr)
		}
		if err != nil {
			_ = os.Remove(targetPath)
		}
	}()

	buf := make([]byte, downloadBufferSize)
	written, err := io.CopyBuffer(out, body, buf)
	if err != nil {
		return newStorageError("DownloadFile", "failed to download file: "+key, err)
	}

	s.log.Debug().Str("bucket", bucketName).Str("key", key).Int64("size", written).Msg("downloaded file")
	return nil
}

// DeleteObject removes key. A key that does not exist counts as deleted.
func (s *CloudStorageService) DeleteObject(ctx context.Context, bucketName, key string) error {
	bucketName = strings.TrimSpace(bucketName)
	key = strings.TrimSpace(key)
	if bucketName == "" {
		return invalidInput("DeleteObject", "bucket name cannot be empty")
	}
	if key == "" {
		return invalidInput("DeleteObject", "key cannot be empty")
	}

	if err := s.client.RemoveObject(ctx, bucketName, key); err != nil {
		if code := errorCode(err); code == "NoSuchKey" || code == "NotFound" {
			return nil
		}
		return newStorageError("DeleteObject", "failed to delete object: "+key, err)
	}
	s.log.Debug().Str("bucket", bucketName).Str("key", key).Msg("deleted object")
	return nil
}

// SearchObjectsRecursively walks every page of the bucket and returns the objects whose
// key or basename contains term, ignoring case. Items are named by full key and
// folder marker keys such as "Docs/" are returned like any other object.
func (s *CloudStorageService) SearchObjectsRecursively(ctx context.Context, bucketName, term string) ([]models.FileItem, error) {
	bucketName = strings.TrimSpace(bucketName)
	term = strings.ToLower(strings.TrimSpace(term))
	if bucketName == "" {
		return nil, invalidInput("SearchObjectsRecursively", "bucket name cannot be empty")
	}
	if term == "" {
		return nil, invalidInput("SearchObjectsRecursively", "search term cannot be empty")
	}

	matches := make([]models.FileItem, 0)
	opts := ListObjectsOptions{}
	pages := 0
	for {
		result, err := s.client.ListObjectsPage(ctx, bucketName, opts)
		if err != nil {
			return nil, newStorageError("SearchObjectsRecursively", "failed to search objects in bucket: "+bucketName, err)
		}
		pages++

		for _, obj := range result.Objects {
			if !matchesTerm(obj.Key, term) {
				continue
			}
			item, err := models.NewFileEntry(obj.Key, obj.Size, obj.LastModified)
			if err != nil {
				continue
			}
			matches = append(matches, item)
		}

		if !result.IsTruncated {
			break
		}
		if result.NextContinuationToken == "" {
			return nil, newStorageError("SearchObjectsRecursively", "failed to search objects in bucket: "+bucketName, ErrMissingContinuationToken)
		}
		opts.ContinuationToken = result.NextContinuationToken
	}

	s.log.Debug().Str("bucket", bucketName).Str("term", term).Int("pages", pages).Int("matches", len(matches)).Msg("searched objects")
	return matches, nil
}

// matchesTerm expects term already lowercased
func matchesTerm(key, term string) bool {
	lowerKey := strings.ToLower(key)
	return strings.Contains(lowerKey, term) || strings.Contains(strings.ToLower(Basename(key)), term)
}

// Basename returns the part of key after the final "/"
func Basename(key string) string {
	return key[strings.LastIndex(key, Delimiter)+1:]
}
