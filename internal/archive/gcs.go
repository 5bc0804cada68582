package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSArchive stores blobs as objects in a Google Cloud Storage bucket.
// The bucket is expected to be private to the user; object names map
// directly to blob names under an optional key prefix.
type GCSArchive struct {
	client  *storage.Client
	bucket  *storage.BucketHandle
	prefix  string
	timeout time.Duration
}

// GCSConfig configures the GCS archive backend.
type GCSConfig struct {
	// Bucket is the bucket name. Required.
	Bucket string

	// Prefix is prepended to every blob name, so several users or
	// installations can share one bucket. Optional.
	Prefix string

	// CredentialsFile is a service-account JSON key path. Empty means
	// application default credentials.
	CredentialsFile string

	// CallTimeout bounds each individual archive call (default 30s).
	CallTimeout time.Duration
}

// NewGCS creates a GCS-backed archive.
func NewGCS(ctx context.Context, cfg GCSConfig) (*GCSArchive, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	if cfg.CallTimeout == 0 {
		cfg.CallTimeout = 30 * time.Second
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &GCSArchive{
		client:  client,
		bucket:  client.Bucket(cfg.Bucket),
		prefix:  cfg.Prefix,
		timeout: cfg.CallTimeout,
	}, nil
}

// Close releases the underlying client.
func (a *GCSArchive) Close() error {
	return a.client.Close()
}

// Ping verifies the bucket is reachable with the current credentials.
func (a *GCSArchive) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	if _, err := a.bucket.Attrs(ctx); err != nil {
		return fmt.Errorf("archive unreachable: %w", err)
	}
	return nil
}

// Get returns the content of the named blob.
func (a *GCSArchive) Get(ctx context.Context, name string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	r, err := a.bucket.Object(a.prefix + name).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("blob %s: %w", name, ErrNotExist)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open blob %s: %w", name, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read blob %s: %w", name, err)
	}
	return data, nil
}

// Put creates or replaces the named blob.
func (a *GCSArchive) Put(ctx context.Context, name string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	w := a.bucket.Object(a.prefix + name).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write blob %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finish blob %s: %w", name, err)
	}
	return nil
}

// List returns the names of all blobs starting with prefix.
func (a *GCSArchive) List(ctx context.Context, prefix string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	it := a.bucket.Objects(ctx, &storage.Query{Prefix: a.prefix + prefix})
	var names []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list blobs with prefix %s: %w", prefix, err)
		}
		names = append(names, attrs.Name[len(a.prefix):])
	}
	return names, nil
}
