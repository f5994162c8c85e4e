package backup

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSStorageProvider implements RemoteStorage for Google Cloud Storage
type GCSStorageProvider struct {
	client *storage.Client
	bucket string
}

// NewGCSStorageProvider creates a new GCSStorageProvider instance
func NewGCSStorageProvider(ctx context.Context, config *GCSConfig) (*GCSStorageProvider, error) {
	if config == nil {
		return nil, NewValidationError("GCS storage configuration is required", nil)
	}
	if config.Bucket == "" {
		return nil, NewValidationError("GCS bucket name is required", nil)
	}

	var client *storage.Client
	var err error
	if config.CredentialsPath != "" {
		client, err = storage.NewClient(ctx, option.WithCredentialsFile(config.CredentialsPath))
	} else {
		// Use application default credentials
		client, err = storage.NewClient(ctx)
	}
	if err != nil {
		return nil, NewStorageError("failed to create GCS client", err)
	}

	return &GCSStorageProvider{
		client: client,
		bucket: config.Bucket,
	}, nil
}

// List returns the immediate children under prefix: sub-folder names
// from the delimiter query plus directly contained object base names
func (gcp *GCSStorageProvider) List(ctx context.Context, prefix string) ([]string, error) {
	listPrefix := folderPrefix(prefix)
	bucket := gcp.client.Bucket(gcp.bucket)

	query := &storage.Query{
		Prefix:    listPrefix,
		Delimiter: "/",
	}

	var names []string
	it := bucket.Objects(ctx, query)
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, NewStorageError(fmt.Sprintf("failed to list gs://%s/%s", gcp.bucket, listPrefix), err)
		}

		if attrs.Prefix != "" {
			name := strings.TrimSuffix(strings.TrimPrefix(attrs.Prefix, listPrefix), "/")
			if name != "" {
				names = append(names, name)
			}
			continue
		}
		name := strings.TrimPrefix(attrs.Name, listPrefix)
		if name != "" {
			names = append(names, name)
		}
	}

	return names, nil
}

// Put uploads a local file to the given remote key
func (gcp *GCSStorageProvider) Put(ctx context.Context, localPath string, remoteKey string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return NewStorageError(fmt.Sprintf("failed to open %s", localPath), err)
	}
	defer file.Close()

	writer := gcp.client.Bucket(gcp.bucket).Object(remoteKey).NewWriter(ctx)
	writer.ContentType = "application/octet-stream"

	if _, err := io.Copy(writer, file); err != nil {
		writer.Close()
		return NewStorageError(fmt.Sprintf("failed to upload %s to GCS", remoteKey), err)
	}
	if err := writer.Close(); err != nil {
		return NewStorageError(fmt.Sprintf("failed to finalize GCS upload of %s", remoteKey), err)
	}

	return nil
}

// Delete removes a remote key. GCS folders are a naming convention, so
// a recursive delete removes every object under the key's prefix.
func (gcp *GCSStorageProvider) Delete(ctx context.Context, remoteKey string, recursive bool) error {
	bucket := gcp.client.Bucket(gcp.bucket)

	if !recursive {
		if err := bucket.Object(remoteKey).Delete(ctx); err != nil {
			return NewStorageError(fmt.Sprintf("failed to delete %s from GCS", remoteKey), err)
		}
		return nil
	}

	query := &storage.Query{Prefix: folderPrefix(remoteKey)}
	it := bucket.Objects(ctx, query)
	deleted := 0
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return NewStorageError("failed to list objects for deletion", err)
		}

		if err := bucket.Object(attrs.Name).Delete(ctx); err != nil {
			return NewStorageError(fmt.Sprintf("failed to delete %s from GCS", attrs.Name), err)
		}
		deleted++
	}

	if deleted == 0 {
		// The key may be a bare object rather than a folder
		err := bucket.Object(remoteKey).Delete(ctx)
		if err != nil && err != storage.ErrObjectNotExist {
			return NewStorageError(fmt.Sprintf("failed to delete %s from GCS", remoteKey), err)
		}
	}

	return nil
}

// HealthCheck verifies that the bucket exists and is accessible
func (gcp *GCSStorageProvider) HealthCheck(ctx context.Context) error {
	bucket := gcp.client.Bucket(gcp.bucket)

	if _, err := bucket.Attrs(ctx); err != nil {
		return NewStorageError("GCS health check failed: bucket not accessible", err)
	}

	return nil
}

// Location describes the destination for logs and reports
func (gcp *GCSStorageProvider) Location() string {
	return "gs://" + gcp.bucket
}

// Close releases the underlying client
func (gcp *GCSStorageProvider) Close() error {
	return gcp.client.Close()
}
