package backup

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"gameserver-backup/internal/logging"
)

// rsyncSnapshotEngine mirrors a source directory with rsync. The
// --delete flag keeps repeated snapshots of the same target from
// accumulating files removed on the server.
type rsyncSnapshotEngine struct {
	runner CommandRunner
	logger *logging.Logger
}

// NewRsyncSnapshotEngine creates the production SnapshotEngine
func NewRsyncSnapshotEngine(runner CommandRunner, logger *logging.Logger) SnapshotEngine {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &rsyncSnapshotEngine{
		runner: runner,
		logger: logger,
	}
}

// CreateSnapshot mirrors sourceDir into destDir. Any rsync failure
// poisons the snapshot; the caller must not archive it.
func (e *rsyncSnapshotEngine) CreateSnapshot(ctx context.Context, sourceDir string, destDir string) error {
	start := time.Now()

	if err := os.MkdirAll(destDir, 0755); err != nil {
		err = NewSnapshotError("failed to create snapshot directory", err).
			WithContext("dest", destDir)
		e.logger.LogSnapshot(sourceDir, destDir, time.Since(start), err)
		return err
	}

	// Trailing slashes make rsync copy directory contents, not the
	// directory itself
	src := strings.TrimSuffix(sourceDir, "/") + "/"
	dst := strings.TrimSuffix(destDir, "/") + "/"

	output, err := e.runner.Run(ctx, "rsync", "-a", "--delete", src, dst)
	if err != nil {
		snapErr := NewSnapshotError(
			fmt.Sprintf("rsync failed for %s", sourceDir), err).
			WithContext("source", sourceDir).
			WithContext("dest", destDir).
			WithContext("output", strings.TrimSpace(string(output)))
		e.logger.LogSnapshot(sourceDir, destDir, time.Since(start), snapErr)
		return snapErr
	}

	e.logger.LogSnapshot(sourceDir, destDir, time.Since(start), nil)
	return nil
}
