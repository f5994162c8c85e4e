package backup

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalStorageProvider implements RemoteStorage on a local file system
// path, typically a mounted NAS or external disk
type LocalStorageProvider struct {
	basePath    string
	permissions os.FileMode
}

// NewLocalStorageProvider creates a new LocalStorageProvider instance
func NewLocalStorageProvider(config *LocalConfig) (*LocalStorageProvider, error) {
	if config == nil {
		return nil, NewValidationError("local storage configuration is required", nil)
	}
	if config.BasePath == "" {
		return nil, NewValidationError("base path is required for local storage", nil)
	}

	permissions := config.Permissions
	if permissions == 0 {
		permissions = 0755
	}

	provider := &LocalStorageProvider{
		basePath:    config.BasePath,
		permissions: permissions,
	}

	// Ensure base directory exists
	if err := os.MkdirAll(provider.basePath, provider.permissions); err != nil {
		return nil, NewStorageError("failed to create base directory", err)
	}

	return provider, nil
}

// List returns the names of the immediate children under prefix. A
// missing prefix directory is an empty backup set, not an error.
func (lsp *LocalStorageProvider) List(ctx context.Context, prefix string) ([]string, error) {
	dir := filepath.Join(lsp.basePath, filepath.FromSlash(prefix))

	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, NewStorageError(fmt.Sprintf("failed to list %s", dir), err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names, nil
}

// Put copies a local file to the given key under the base path
func (lsp *LocalStorageProvider) Put(ctx context.Context, localPath string, remoteKey string) error {
	destPath := filepath.Join(lsp.basePath, filepath.FromSlash(remoteKey))

	if err := os.MkdirAll(filepath.Dir(destPath), lsp.permissions); err != nil {
		return NewStorageError("failed to create destination directory", err)
	}

	src, err := os.Open(localPath)
	if err != nil {
		return NewStorageError(fmt.Sprintf("failed to open %s", localPath), err)
	}
	defer src.Close()

	dst, err := os.Create(destPath)
	if err != nil {
		return NewStorageError(fmt.Sprintf("failed to create %s", destPath), err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(destPath)
		return NewStorageError(fmt.Sprintf("failed to copy to %s", destPath), err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(destPath)
		return NewStorageError(fmt.Sprintf("failed to flush %s", destPath), err)
	}

	return nil
}

// Delete removes a key; recursive removes a whole folder tree
func (lsp *LocalStorageProvider) Delete(ctx context.Context, remoteKey string, recursive bool) error {
	path := filepath.Join(lsp.basePath, filepath.FromSlash(remoteKey))

	if recursive {
		if err := os.RemoveAll(path); err != nil {
			return NewStorageError(fmt.Sprintf("failed to delete %s", path), err)
		}
		return nil
	}

	if err := os.Remove(path); err != nil {
		return NewStorageError(fmt.Sprintf("failed to delete %s", path), err)
	}
	return nil
}

// HealthCheck verifies that the base path is accessible and writable
func (lsp *LocalStorageProvider) HealthCheck(ctx context.Context) error {
	testFile := filepath.Join(lsp.basePath, ".health_check")

	// Try to create a test file
	if err := os.WriteFile(testFile, []byte("health_check"), 0644); err != nil {
		return NewStorageError("storage health check failed: cannot write to base directory", err)
	}

	// Try to read the test file
	if _, err := os.ReadFile(testFile); err != nil {
		return NewStorageError("storage health check failed: cannot read from base directory", err)
	}

	// Clean up test file
	os.Remove(testFile)

	return nil
}

// Location describes the destination for logs and reports
func (lsp *LocalStorageProvider) Location() string {
	return "local://" + lsp.basePath
}

// GetBasePath returns the base path for the storage provider
func (lsp *LocalStorageProvider) GetBasePath() string {
	return lsp.basePath
}
