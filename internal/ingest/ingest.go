// Package ingest validates uploaded menu files and runs them through OCR.
package ingest

import (
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/entity"
)

// Form fields accepted for uploads.
const (
	UploadField      = "file"
	UploadFieldMulti = "files[]"
)

// Upload is one file as received from a client, before any validation.
type Upload struct {
	FieldName string // UploadField, UploadFieldMulti or empty
	FileName  string
	MimeType  string
	Data      []byte
}

// UploadResult is the outcome of OCR for one upload batch.
type UploadResult struct {
	BatchID   string            `json:"batch_id"`
	OcrPages  []entity.OcrPage  `json:"ocr_pages"`
	FilesMeta []entity.FileMeta `json:"files"`

	// OCRErr joins the per-file OCR failures also recorded in FilesMeta.
	OCRErr error `json:"-"`
}

// DirStats summarizes a directory load.
type DirStats struct {
	Scanned uint32
	Matched uint32
	Loaded  uint32
	Failed  uint32
}
