package backup

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gameserver-backup/internal/logging"
)

// tarArchiver streams a snapshot directory into a compressed tar
// archive. Entries are rooted at the snapshot's base name so the
// archive unpacks into a single directory.
type tarArchiver struct {
	compression *CompressionManager
	algorithm   CompressionType
	logger      *logging.Logger
}

// NewTarArchiver creates the production Archiver
func NewTarArchiver(compression *CompressionManager, algorithm CompressionType, logger *logging.Logger) Archiver {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &tarArchiver{
		compression: compression,
		algorithm:   algorithm,
		logger:      logger,
	}
}

// Compress writes snapshotDir to archivePath. A partial archive left by
// a failure is removed so it can never be uploaded.
func (a *tarArchiver) Compress(ctx context.Context, snapshotDir string, archivePath string) error {
	start := time.Now()

	err := a.writeArchive(ctx, snapshotDir, archivePath)
	if err != nil {
		os.Remove(archivePath)
		a.logger.LogArchive(archivePath, 0, time.Since(start), err)
		return err
	}

	var size int64
	if info, statErr := os.Stat(archivePath); statErr == nil {
		size = info.Size()
	}
	a.logger.LogArchive(archivePath, size, time.Since(start), nil)
	return nil
}

func (a *tarArchiver) writeArchive(ctx context.Context, snapshotDir string, archivePath string) error {
	file, err := os.Create(archivePath)
	if err != nil {
		return NewArchiveError("failed to create archive file", err).
			WithContext("archive", archivePath)
	}
	defer file.Close()

	compressor, err := a.compression.NewWriter(file, a.algorithm)
	if err != nil {
		return err
	}

	tarWriter := tar.NewWriter(compressor)

	base := filepath.Base(filepath.Clean(snapshotDir))
	walkErr := filepath.Walk(snapshotDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(snapshotDir, path)
		if err != nil {
			return err
		}

		var link string
		if info.Mode()&os.ModeSymlink != 0 {
			if link, err = os.Readlink(path); err != nil {
				return err
			}
		}

		header, err := tar.FileInfoHeader(info, link)
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(filepath.Join(base, rel))
		if info.IsDir() {
			header.Name += "/"
		}

		if err := tarWriter.WriteHeader(header); err != nil {
			return err
		}

		if !info.Mode().IsRegular() {
			return nil
		}

		src, err := os.Open(path)
		if err != nil {
			return err
		}
		defer src.Close()

		_, err = io.Copy(tarWriter, src)
		return err
	})

	if walkErr != nil {
		tarWriter.Close()
		compressor.Close()
		return NewArchiveError(fmt.Sprintf("failed to archive %s", snapshotDir), walkErr).
			WithContext("archive", archivePath)
	}

	if err := tarWriter.Close(); err != nil {
		compressor.Close()
		return NewArchiveError("failed to finalize tar stream", err)
	}
	if err := compressor.Close(); err != nil {
		return NewArchiveError("failed to finalize compression stream", err)
	}
	if err := file.Close(); err != nil {
		return NewArchiveError("failed to flush archive file", err)
	}
	return nil
}
