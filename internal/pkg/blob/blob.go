// Package blob stores archive objects behind one interface with S3, Google
// Cloud Storage, and MinIO backends.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

const (
	// DriverS3 selects the AWS S3 backend.
	DriverS3 = "s3"
	// DriverGCS selects the Google Cloud Storage backend.
	DriverGCS = "gcs"
	// DriverMinIO selects the MinIO backend.
	DriverMinIO = "minio"
)

var (
	// ErrUnknownDriver reports an unrecognized blob driver name.
	ErrUnknownDriver = errors.New("blob: unknown driver")
	// ErrMissingSigner reports that signed URLs are not configured.
	ErrMissingSigner = errors.New("blob: signed url signer not configured")
)

// Storage writes, lists, and signs download links for stored objects.
type Storage interface {
	io.Closer

	// Put stores the object and returns its metadata.
	Put(ctx context.Context, bucket, key string, r io.Reader, opts PutOptions) (ObjectInfo, error)
	// List returns objects under the prefix, newest metadata as the backend
	// reports it, capped by opts.Limit when positive.
	List(ctx context.Context, bucket, prefix string, opts ListOptions) ([]ObjectInfo, error)
	// PresignGet returns a time-limited download URL for the object.
	PresignGet(ctx context.Context, bucket, key string, expiry time.Duration) (string, error)
}

// PutOptions configures an upload.
type PutOptions struct {
	// Size is the content length when known.
	Size int64
	// ContentType is the object MIME type.
	ContentType string
	// Metadata is user-defined key/value metadata.
	Metadata map[string]string
}

// ListOptions configures a listing.
type ListOptions struct {
	// Limit caps the number of results when positive.
	Limit int32
}

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Bucket      string
	Key         string
	Size        int64
	ETag        string
	ContentType string
	UpdatedAt   time.Time
}

// FactoryOptions holds per-driver configuration. Only the selected driver's
// section is read.
type FactoryOptions struct {
	S3    S3Options
	GCS   GCSOptions
	MinIO MinIOOptions
}

// NewFromDriver builds a Storage for the named driver.
func NewFromDriver(ctx context.Context, driver string, opts FactoryOptions) (Storage, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverS3:
		return NewS3(ctx, opts.S3)
	case DriverGCS:
		return NewGCS(ctx, opts.GCS)
	case DriverMinIO:
		return NewMinIO(opts.MinIO)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, driver)
	}
}
