package backup

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// S3StorageProvider implements RemoteStorage for Amazon S3
type S3StorageProvider struct {
	client *s3.S3
	bucket string
}

// NewS3StorageProvider creates a new S3StorageProvider instance
func NewS3StorageProvider(config *S3Config) (*S3StorageProvider, error) {
	if config == nil {
		return nil, NewValidationError("S3 storage configuration is required", nil)
	}
	if config.Bucket == "" || config.Region == "" {
		return nil, NewValidationError("S3 bucket and region are required", nil)
	}

	awsConfig := &aws.Config{
		Region: aws.String(config.Region),
	}
	// Fall back to the default credential chain when no static keys are
	// configured
	if config.AccessKey != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(
			config.AccessKey,
			config.SecretKey,
			"", // token
		)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, NewStorageError("failed to create AWS session", err)
	}

	return &S3StorageProvider{
		client: s3.New(sess),
		bucket: config.Bucket,
	}, nil
}

// List returns the immediate children under prefix: common prefixes as
// folder names and directly contained objects as base names
func (s3p *S3StorageProvider) List(ctx context.Context, prefix string) ([]string, error) {
	listPrefix := folderPrefix(prefix)

	var names []string
	input := &s3.ListObjectsV2Input{
		Bucket:    aws.String(s3p.bucket),
		Prefix:    aws.String(listPrefix),
		Delimiter: aws.String("/"),
	}

	err := s3p.client.ListObjectsV2PagesWithContext(ctx, input,
		func(page *s3.ListObjectsV2Output, lastPage bool) bool {
			for _, cp := range page.CommonPrefixes {
				name := strings.TrimSuffix(strings.TrimPrefix(*cp.Prefix, listPrefix), "/")
				if name != "" {
					names = append(names, name)
				}
			}
			for _, obj := range page.Contents {
				name := strings.TrimPrefix(*obj.Key, listPrefix)
				if name != "" {
					names = append(names, name)
				}
			}
			return true
		})
	if err != nil {
		return nil, NewStorageError(fmt.Sprintf("failed to list s3://%s/%s", s3p.bucket, listPrefix), err)
	}

	return names, nil
}

// Put uploads a local file to the given remote key
func (s3p *S3StorageProvider) Put(ctx context.Context, localPath string, remoteKey string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return NewStorageError(fmt.Sprintf("failed to open %s", localPath), err)
	}
	defer file.Close()

	_, err = s3p.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s3p.bucket),
		Key:         aws.String(remoteKey),
		Body:        file,
		ContentType: aws.String("application/octet-stream"),
	})
	if err != nil {
		return NewStorageError(fmt.Sprintf("failed to upload %s to S3", remoteKey), err)
	}

	return nil
}

// Delete removes a remote key. S3 has no real folders, so a recursive
// delete lists every object under the key and batch-deletes them.
func (s3p *S3StorageProvider) Delete(ctx context.Context, remoteKey string, recursive bool) error {
	if !recursive {
		_, err := s3p.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s3p.bucket),
			Key:    aws.String(remoteKey),
		})
		if err != nil {
			return NewStorageError(fmt.Sprintf("failed to delete %s from S3", remoteKey), err)
		}
		return nil
	}

	var objectsToDelete []*s3.ObjectIdentifier
	err := s3p.client.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(s3p.bucket),
		Prefix: aws.String(folderPrefix(remoteKey)),
	}, func(page *s3.ListObjectsV2Output, lastPage bool) bool {
		for _, obj := range page.Contents {
			objectsToDelete = append(objectsToDelete, &s3.ObjectIdentifier{
				Key: obj.Key,
			})
		}
		return true
	})
	if err != nil {
		return NewStorageError("failed to list objects for deletion", err)
	}

	// DeleteObjects accepts at most 1000 keys per request
	for len(objectsToDelete) > 0 {
		batch := objectsToDelete
		if len(batch) > 1000 {
			batch = batch[:1000]
		}
		objectsToDelete = objectsToDelete[len(batch):]

		_, err = s3p.client.DeleteObjectsWithContext(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s3p.bucket),
			Delete: &s3.Delete{
				Objects: batch,
			},
		})
		if err != nil {
			return NewStorageError(fmt.Sprintf("failed to delete %s from S3", remoteKey), err)
		}
	}

	return nil
}

// HealthCheck verifies that the bucket is accessible and listable
func (s3p *S3StorageProvider) HealthCheck(ctx context.Context) error {
	_, err := s3p.client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s3p.bucket),
	})
	if err != nil {
		return NewStorageError("S3 health check failed: bucket not accessible", err)
	}

	// Try to list objects to verify permissions
	_, err = s3p.client.ListObjectsV2WithContext(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s3p.bucket),
		MaxKeys: aws.Int64(1),
	})
	if err != nil {
		return NewStorageError("S3 health check failed: cannot list objects", err)
	}

	return nil
}

// Location describes the destination for logs and reports
func (s3p *S3StorageProvider) Location() string {
	return "s3://" + s3p.bucket
}

// GetBucket returns the S3 bucket name
func (s3p *S3StorageProvider) GetBucket() string {
	return s3p.bucket
}

// folderPrefix normalizes a key into a trailing-slash list prefix
func folderPrefix(key string) string {
	if key == "" {
		return ""
	}
	return strings.TrimSuffix(key, "/") + "/"
}
