package ingest

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/clinic-menu-ocr/constants"
)

// AllowedExt checks if a file extension is in the allowed set.
func AllowedExt(ext string) bool {
	ext = constants.NormalizeExt(ext)
	_, ok := constants.AllowedExtensions[ext]
	return ok
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".")
}

// SanitizeFileName strips any directory part, for both slash styles.
func SanitizeFileName(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimSpace(name)
	if name == "." || name == ".." {
		return ""
	}
	return name
}

var reUnsafeName = regexp.MustCompile(`[^\w.-]+`)

// DebugFileName is the snapshot name for one page: <batch>_p<page>_<file>.txt.
func DebugFileName(batchID string, page int, fileName string) string {
	return fmt.Sprintf("%s_p%d_%s.txt", batchID, page, reUnsafeName.ReplaceAllString(fileName, "_"))
}

// NewBatchID returns b_YYYYMMDD_HHMMSS_xxxx with a random 4-char suffix.
func NewBatchID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:4]
	return "b_" + now.Format("20060102_150405") + "_" + suffix
}
