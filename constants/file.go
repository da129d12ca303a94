package constants

import (
	"path/filepath"
	"strings"
)

const (
	PDF   = "PDF"
	IMAGE = "IMAGE"
)

// MIME types accepted for menu uploads.
const (
	MimePDF  = "application/pdf"
	MimeJPEG = "image/jpeg"
	MimePNG  = "image/png"
	MimeHEIC = "image/heic"
	MimeHEIF = "image/heif"
)

// DefaultMaxFileMB is the upload cap applied when none is configured.
const DefaultMaxFileMB = 50

// AllowedMimeTypes maps each accepted media type to its source format.
var AllowedMimeTypes = map[string]string{
	MimePDF:  PDF,
	MimeJPEG: IMAGE,
	MimePNG:  IMAGE,
	MimeHEIC: IMAGE,
	MimeHEIF: IMAGE,
}

// AllowedExtensions holds the file extensions picked up by the folder watcher.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"heic": {},
	"heif": {},
}

var extToMime = map[string]string{
	"pdf":  MimePDF,
	"jpg":  MimeJPEG,
	"jpeg": MimeJPEG,
	"png":  MimePNG,
	"heic": MimeHEIC,
	"heif": MimeHEIF,
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// NormalizeMime lowercases a declared media type and drops any parameters.
func NormalizeMime(mime string) string {
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	return strings.ToLower(strings.TrimSpace(mime))
}

// MimeFromPath guesses the media type from a file name. Empty when unknown.
func MimeFromPath(path string) string {
	return extToMime[NormalizeExt(filepath.Ext(path))]
}

// FormatForMime returns PDF or IMAGE, and false for media types we reject.
func FormatForMime(mime string) (string, bool) {
	f, ok := AllowedMimeTypes[NormalizeMime(mime)]
	return f, ok
}

func IsHEIC(mime string) bool {
	m := NormalizeMime(mime)
	return m == MimeHEIC || m == MimeHEIF
}
