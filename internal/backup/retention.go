package backup

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"sort"
	"time"

	"gameserver-backup/internal/logging"
)

// dateFolderPattern matches the YYYY-MM-DD folders that make up the
// remote backup set. Anything else under the prefix is left alone.
var dateFolderPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// RetentionResult summarizes one retention sweep
type RetentionResult struct {
	Scanned        int      `json:"scanned"`
	Matched        int      `json:"matched"`
	Kept           int      `json:"kept"`
	DeletedFolders []string `json:"deleted_folders,omitempty"`
	Errors         []string `json:"errors,omitempty"`
	DryRun         bool     `json:"dry_run"`
}

// Deleted returns how many folders the sweep removed (or would remove
// in a dry run)
func (r *RetentionResult) Deleted() int {
	return len(r.DeletedFolders)
}

// retentionManager enforces the dated-folder cap on a RemoteStorage
type retentionManager struct {
	storage RemoteStorage
	prefix  string
	dryRun  bool
	logger  *logging.Logger
}

// NewRetentionManager creates the production RetentionManager
func NewRetentionManager(storage RemoteStorage, prefix string, dryRun bool, logger *logging.Logger) RetentionManager {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &retentionManager{
		storage: storage,
		prefix:  prefix,
		dryRun:  dryRun,
		logger:  logger,
	}
}

// EnforceRetention keeps at most maxBackups dated folders under the
// prefix, deleting the oldest surplus. Zero-padded date names sort
// lexicographically in chronological order, so plain string sorting is
// the age ordering. Folder deletions are independent best-effort
// operations; a failed delete is recorded and the sweep continues.
func (rm *retentionManager) EnforceRetention(ctx context.Context, maxBackups int) (*RetentionResult, error) {
	start := time.Now()

	if maxBackups < 1 {
		return nil, NewRetentionError(fmt.Sprintf("invalid retention cap %d", maxBackups), nil)
	}

	entries, err := rm.storage.List(ctx, rm.prefix)
	if err != nil {
		return nil, NewRetentionError("failed to list remote backup set", err)
	}

	result := &RetentionResult{
		Scanned: len(entries),
		DryRun:  rm.dryRun,
	}

	var dated []string
	for _, name := range entries {
		if dateFolderPattern.MatchString(name) {
			dated = append(dated, name)
		} else {
			rm.logger.Debugf("Retention: ignoring non-dated entry %q", name)
		}
	}
	result.Matched = len(dated)

	if len(dated) <= maxBackups {
		result.Kept = len(dated)
		rm.logger.LogRetention(result.Kept, 0, 0, time.Since(start))
		return result, nil
	}

	sort.Strings(dated)
	surplus := dated[:len(dated)-maxBackups]
	result.Kept = maxBackups

	for _, folder := range surplus {
		if err := ctx.Err(); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", folder, err))
			break
		}

		key := path.Join(rm.prefix, folder)
		if rm.dryRun {
			rm.logger.Infof("Dry run: would delete remote backup folder %s", key)
			result.DeletedFolders = append(result.DeletedFolders, folder)
			continue
		}

		if err := rm.storage.Delete(ctx, key, true); err != nil {
			rm.logger.Warnf("Retention: failed to delete %s: %v", key, err)
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", folder, err))
			continue
		}
		result.DeletedFolders = append(result.DeletedFolders, folder)
	}

	rm.logger.LogRetention(result.Kept, result.Deleted(), len(result.Errors), time.Since(start))
	return result, nil
}
