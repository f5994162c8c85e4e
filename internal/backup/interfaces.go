package backup

import (
	"context"
)

// ServiceController delivers console directives to live game services.
// Delivery is fire-and-forget: methods log failures (including a
// missing console session) and never return errors.
type ServiceController interface {
	// Notify broadcasts a message to the service's players
	Notify(ctx context.Context, service string, message string)
	// PauseWrites disables autosaves and flushes pending world data,
	// then waits for the flush to settle
	PauseWrites(ctx context.Context, service string)
	// ResumeWrites re-enables autosaves
	ResumeWrites(ctx context.Context, service string)
}

// SnapshotEngine mirrors a source directory into a snapshot directory
type SnapshotEngine interface {
	CreateSnapshot(ctx context.Context, sourceDir string, destDir string) error
}

// Archiver turns a snapshot directory into a single compressed archive
type Archiver interface {
	Compress(ctx context.Context, snapshotDir string, archivePath string) error
}

// RetentionManager enforces the dated-folder retention cap on the
// remote backup set
type RetentionManager interface {
	EnforceRetention(ctx context.Context, maxBackups int) (*RetentionResult, error)
}

// RemoteStorage abstracts the durable backup destination
type RemoteStorage interface {
	// List returns the names of the immediate children under prefix
	List(ctx context.Context, prefix string) ([]string, error)
	// Put uploads a local file to the given remote key
	Put(ctx context.Context, localPath string, remoteKey string) error
	// Delete removes a remote key; recursive deletes a whole folder
	Delete(ctx context.Context, remoteKey string, recursive bool) error
	// HealthCheck verifies the destination is reachable and writable
	HealthCheck(ctx context.Context) error
	// Location describes the destination for logs and reports
	Location() string
}

// CommandRunner abstracts external process execution so the screen and
// rsync transports can be faked in tests
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
	LookPath(name string) (string, error)
}
