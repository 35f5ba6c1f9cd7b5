package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Archive moves dir to <parent>/archive/<name>-<timestamp> and returns
// the new location.
func Archive(dir string) (string, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return "", fmt.Errorf("directory does not exist: %s", dir)
	}

	parentDir := filepath.Dir(dir)
	archiveDir := filepath.Join(parentDir, "archive")

	if err := os.MkdirAll(archiveDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	base := filepath.Base(dir)
	timestamp := time.Now().Format("20060102-150405")
	archivePath := filepath.Join(archiveDir, fmt.Sprintf("%s-%s", base, timestamp))

	// Two archives within the same second
	if _, err := os.Stat(archivePath); err == nil {
		timestamp = time.Now().Format("20060102-150405.000000")
		archivePath = filepath.Join(archiveDir, fmt.Sprintf("%s-%s", base, timestamp))
	}

	if err := os.Rename(dir, archivePath); err != nil {
		return "", fmt.Errorf("failed to archive directory: %w", err)
	}

	return archivePath, nil
}

// ArchiveApp archives the output directory of app and drops its index rows.
func (s *Store) ArchiveApp(ctx context.Context, app string) (string, error) {
	path, err := Archive(filepath.Join(s.root, app))
	if err != nil {
		return "", err
	}
	if err := s.Forget(ctx, app); err != nil {
		return path, err
	}
	return path, nil
}
