package blob

import (
	"context"
	"errors"
	"io"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// GCSOptions configures the Google Cloud Storage backend.
type GCSOptions struct {
	// Client reuses an existing client instead of dialing a new one.
	Client *gcs.Client
	// GoogleAccessID and PrivateKey enable signed URLs.
	GoogleAccessID string
	PrivateKey     []byte
}

// GCSStorage implements Storage over Google Cloud Storage.
type GCSStorage struct {
	client *gcs.Client

	googleAccessID string
	privateKey     []byte
}

// NewGCS dials GCS with application default credentials unless a client is
// provided.
func NewGCS(ctx context.Context, opts GCSOptions) (*GCSStorage, error) {
	client := opts.Client
	if client == nil {
		created, err := gcs.NewClient(ctx)
		if err != nil {
			return nil, err
		}
		client = created
	}

	return &GCSStorage{
		client:         client,
		googleAccessID: opts.GoogleAccessID,
		privateKey:     opts.PrivateKey,
	}, nil
}

func (g *GCSStorage) Put(ctx context.Context, bucket, key string, r io.Reader, opts PutOptions) (ObjectInfo, error) {
	writer := g.client.Bucket(bucket).Object(key).NewWriter(ctx)
	if opts.ContentType != "" {
		writer.ContentType = opts.ContentType
	}
	if len(opts.Metadata) > 0 {
		writer.Metadata = opts.Metadata
	}

	if _, err := io.Copy(writer, r); err != nil {
		if closeErr := writer.Close(); closeErr != nil {
			return ObjectInfo{}, closeErr
		}
		return ObjectInfo{}, err
	}
	if err := writer.Close(); err != nil {
		return ObjectInfo{}, err
	}

	if attrs := writer.Attrs(); attrs != nil {
		return gcsAttrsToInfo(attrs), nil
	}
	return ObjectInfo{
		Bucket:      bucket,
		Key:         key,
		Size:        opts.Size,
		ContentType: opts.ContentType,
	}, nil
}

func (g *GCSStorage) List(ctx context.Context, bucket, prefix string, opts ListOptions) ([]ObjectInfo, error) {
	it := g.client.Bucket(bucket).Objects(ctx, &gcs.Query{Prefix: prefix})
	if opts.Limit > 0 {
		it.PageInfo().MaxSize = int(opts.Limit)
	}

	objects := make([]ObjectInfo, 0)
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		objects = append(objects, gcsAttrsToInfo(attrs))
		if opts.Limit > 0 && int32(len(objects)) >= opts.Limit {
			break
		}
	}
	return objects, nil
}

func (g *GCSStorage) PresignGet(_ context.Context, bucket, key string, expiry time.Duration) (string, error) {
	if g.googleAccessID == "" || len(g.privateKey) == 0 {
		return "", ErrMissingSigner
	}
	return gcs.SignedURL(bucket, key, &gcs.SignedURLOptions{
		Method:         "GET",
		Expires:        time.Now().Add(expiry),
		GoogleAccessID: g.googleAccessID,
		PrivateKey:     g.privateKey,
	})
}

func (g *GCSStorage) Close() error {
	return g.client.Close()
}

func gcsAttrsToInfo(attrs *gcs.ObjectAttrs) ObjectInfo {
	if attrs == nil {
		return ObjectInfo{}
	}
	return ObjectInfo{
		Bucket:      attrs.Bucket,
		Key:         attrs.Name,
		Size:        attrs.Size,
		ETag:        attrs.Etag,
		ContentType: attrs.ContentType,
		UpdatedAt:   attrs.Updated,
	}
}
