package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// DiskUsage is the space held by the corpus database and saved uploads.
type DiskUsage struct {
	Database int64 `json:"database_bytes"`
	Uploads  int64 `json:"uploads_bytes"`
}

// Total is Database plus Uploads.
func (u DiskUsage) Total() int64 {
	return u.Database + u.Uploads
}

// MeasureDiskUsage sizes the SQLite database at dbPath, counting its WAL and
// shared-memory sidecars, and every file under uploadDir. Missing paths count as zero.
func MeasureDiskUsage(dbPath, uploadDir string) (DiskUsage, error) {
	var usage DiskUsage
	if dbPath != "" {
		for _, p := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
			n, err := fileSize(p)
			if err != nil {
				return DiskUsage{}, err
			}
			usage.Database += n
		}
	}
	if uploadDir != "" {
		n, err := treeSize(uploadDir)
		if err != nil {
			return DiskUsage{}, err
		}
		usage.Uploads = n
	}
	return usage, nil
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func treeSize(root string) (int64, error) {
	var total int64
	err := filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	return total, err
}
