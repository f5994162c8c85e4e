package backup

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/Azure/azure-storage-blob-go/azblob"
)

// AzureStorageProvider implements RemoteStorage for Azure Blob Storage
type AzureStorageProvider struct {
	serviceURL    azblob.ServiceURL
	containerName string
}

// NewAzureStorageProvider creates a new AzureStorageProvider instance
func NewAzureStorageProvider(config *AzureConfig) (*AzureStorageProvider, error) {
	if config == nil {
		return nil, NewValidationError("Azure storage configuration is required", nil)
	}
	if config.AccountName == "" || config.ContainerName == "" {
		return nil, NewValidationError("Azure account name and container name are required", nil)
	}

	credential, err := azblob.NewSharedKeyCredential(config.AccountName, config.AccountKey)
	if err != nil {
		return nil, NewStorageError("failed to create Azure credential", err)
	}

	// Create pipeline
	pipeline := azblob.NewPipeline(credential, azblob.PipelineOptions{})

	serviceURL, err := url.Parse(fmt.Sprintf("https://%s.blob.core.windows.net", config.AccountName))
	if err != nil {
		return nil, NewStorageError("failed to parse Azure service URL", err)
	}

	return &AzureStorageProvider{
		serviceURL:    azblob.NewServiceURL(*serviceURL, pipeline),
		containerName: config.ContainerName,
	}, nil
}

// List returns the immediate children under prefix using a hierarchy
// listing: blob prefixes as folder names plus direct blob base names
func (azp *AzureStorageProvider) List(ctx context.Context, prefix string) ([]string, error) {
	containerURL := azp.serviceURL.NewContainerURL(azp.containerName)
	listPrefix := folderPrefix(prefix)

	var names []string
	for marker := (azblob.Marker{}); marker.NotDone(); {
		listResponse, err := containerURL.ListBlobsHierarchySegment(ctx, marker, "/",
			azblob.ListBlobsSegmentOptions{
				Prefix: listPrefix,
			})
		if err != nil {
			return nil, NewStorageError(fmt.Sprintf("failed to list Azure container %s", azp.containerName), err)
		}

		for _, blobPrefix := range listResponse.Segment.BlobPrefixes {
			name := strings.TrimSuffix(strings.TrimPrefix(blobPrefix.Name, listPrefix), "/")
			if name != "" {
				names = append(names, name)
			}
		}
		for _, blob := range listResponse.Segment.BlobItems {
			name := strings.TrimPrefix(blob.Name, listPrefix)
			if name != "" {
				names = append(names, name)
			}
		}

		marker = listResponse.NextMarker
	}

	return names, nil
}

// Put uploads a local file to the given remote key
func (azp *AzureStorageProvider) Put(ctx context.Context, localPath string, remoteKey string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return NewStorageError(fmt.Sprintf("failed to open %s", localPath), err)
	}
	defer file.Close()

	blobURL := azp.serviceURL.NewContainerURL(azp.containerName).NewBlockBlobURL(remoteKey)

	_, err = azblob.UploadFileToBlockBlob(ctx, file, blobURL, azblob.UploadToBlockBlobOptions{
		BlockSize:   4 * 1024 * 1024,
		Parallelism: 16,
		BlobHTTPHeaders: azblob.BlobHTTPHeaders{
			ContentType: "application/octet-stream",
		},
	})
	if err != nil {
		return NewStorageError(fmt.Sprintf("failed to upload %s to Azure", remoteKey), err)
	}

	return nil
}

// Delete removes a remote key. A recursive delete flat-lists every blob
// under the key's prefix and deletes each one.
func (azp *AzureStorageProvider) Delete(ctx context.Context, remoteKey string, recursive bool) error {
	containerURL := azp.serviceURL.NewContainerURL(azp.containerName)

	if !recursive {
		blobURL := containerURL.NewBlockBlobURL(remoteKey)
		_, err := blobURL.Delete(ctx, azblob.DeleteSnapshotsOptionInclude, azblob.BlobAccessConditions{})
		if err != nil {
			return NewStorageError(fmt.Sprintf("failed to delete %s from Azure", remoteKey), err)
		}
		return nil
	}

	var blobsToDelete []string
	for marker := (azblob.Marker{}); marker.NotDone(); {
		listResponse, err := containerURL.ListBlobsFlatSegment(ctx, marker, azblob.ListBlobsSegmentOptions{
			Prefix: folderPrefix(remoteKey),
		})
		if err != nil {
			return NewStorageError("failed to list blobs for deletion", err)
		}

		for _, blob := range listResponse.Segment.BlobItems {
			blobsToDelete = append(blobsToDelete, blob.Name)
		}

		marker = listResponse.NextMarker
	}

	for _, blobName := range blobsToDelete {
		blobURL := containerURL.NewBlockBlobURL(blobName)
		_, err := blobURL.Delete(ctx, azblob.DeleteSnapshotsOptionInclude, azblob.BlobAccessConditions{})
		if err != nil {
			return NewStorageError(fmt.Sprintf("failed to delete %s from Azure", blobName), err)
		}
	}

	return nil
}

// HealthCheck verifies that the container is accessible and listable
func (azp *AzureStorageProvider) HealthCheck(ctx context.Context) error {
	containerURL := azp.serviceURL.NewContainerURL(azp.containerName)

	_, err := containerURL.GetProperties(ctx, azblob.LeaseAccessConditions{})
	if err != nil {
		return NewStorageError("Azure health check failed: container not accessible", err)
	}

	_, err = containerURL.ListBlobsFlatSegment(ctx, azblob.Marker{}, azblob.ListBlobsSegmentOptions{
		MaxResults: 1,
	})
	if err != nil {
		return NewStorageError("Azure health check failed: cannot list blobs", err)
	}

	return nil
}

// Location describes the destination for logs and reports
func (azp *AzureStorageProvider) Location() string {
	return fmt.Sprintf("azblob://%s/%s", azp.serviceURL.String(), azp.containerName)
}
