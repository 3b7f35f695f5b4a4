package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/iyedlimem/Flenci-server-side/config"

	"github.com/minio/minio-go/v7"
)

// ErrNotFound reports that a requested object does not exist in the bucket.
var ErrNotFound = errors.New("storage: object not found")

const opTimeout = 30 * time.Second

// MinioStore stores and resolves platform assets (canonical audio files,
// derived cover images) in a MinIO bucket. Object names are the asset
// references handed out to clients; resolved URLs are built from the
// configured public base URL.
type MinioStore struct {
	bucket        string
	publicBaseURL string
}

// NewMinioStore creates an asset store over the shared MinIO client.
func NewMinioStore(cfg *config.Config) *MinioStore {
	return &MinioStore{
		bucket:        cfg.MinioBucket,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
	}
}

// PutFile uploads a local file under the given object name.
func (s *MinioStore) PutFile(ctx context.Context, objectName, filePath, contentType string) error {
	client := GetMinioClient()
	if client == nil {
		return fmt.Errorf("MinIO client not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := client.FPutObject(ctx, s.bucket, objectName, filePath, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", objectName, err)
	}
	return nil
}

// PutBytes uploads an in-memory buffer under the given object name.
func (s *MinioStore) PutBytes(ctx context.Context, objectName string, data []byte, contentType string) error {
	client := GetMinioClient()
	if client == nil {
		return fmt.Errorf("MinIO client not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := client.PutObject(ctx, s.bucket, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", objectName, err)
	}
	return nil
}

// FetchToFile downloads an object into a local file. Returns ErrNotFound when
// the object does not exist.
func (s *MinioStore) FetchToFile(ctx context.Context, objectName, destPath string) error {
	client := GetMinioClient()
	if client == nil {
		return fmt.Errorf("MinIO client not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	object, err := client.GetObject(ctx, s.bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to get %s: %w", objectName, err)
	}
	defer object.Close()

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", destPath, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, object); err != nil {
		// GetObject is lazy; a missing key surfaces here.
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" {
			os.Remove(destPath)
			return fmt.Errorf("%w: %s", ErrNotFound, objectName)
		}
		os.Remove(destPath)
		return fmt.Errorf("failed to read %s: %w", objectName, err)
	}
	return nil
}

// Open returns a reader over an object, for serving assets over HTTP.
func (s *MinioStore) Open(ctx context.Context, objectName string) (io.ReadCloser, error) {
	client := GetMinioClient()
	if client == nil {
		return nil, fmt.Errorf("MinIO client not initialized")
	}

	object, err := client.GetObject(ctx, s.bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", objectName, err)
	}

	// GetObject is lazy; stat up front so a missing key is reported before
	// any response bytes go out.
	if _, err := object.Stat(); err != nil {
		object.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, objectName)
		}
		return nil, fmt.Errorf("failed to stat %s: %w", objectName, err)
	}
	return object, nil
}

// PublicURL resolves an object name to its externally reachable URL.
func (s *MinioStore) PublicURL(objectName string) string {
	return s.publicBaseURL + "/static/" + strings.TrimLeft(objectName, "/")
}
