package ingest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/clinic-menu-ocr/constants"
)

// LoadFile reads a local file as an Upload, guessing the media type from its
// extension.
func LoadFile(path string) (Upload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Upload{}, err
	}
	return Upload{
		FieldName: UploadField,
		FileName:  filepath.Base(path),
		MimeType:  constants.MimeFromPath(path),
		Data:      data,
	}, nil
}

// LoadDirectory walks root, skips hidden entries if requested, and reads
// every file with an allowed extension in walk order. Unreadable files are
// counted and skipped.
func LoadDirectory(root string, skipHidden bool) ([]Upload, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root_path is required")
	}

	var uploads []Upload
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		stats.Scanned++
		if walkErr != nil {
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++

		u, err := LoadFile(path)
		if err != nil {
			stats.Failed++
			return nil
		}
		uploads = append(uploads, u)
		stats.Loaded++
		return nil
	})
	if err != nil {
		return uploads, stats, fmt.Errorf("walk: %w", err)
	}
	return uploads, stats, nil
}
