package extract

import (
	"context"

	"github.com/joseph-ayodele/clinic-menu-ocr/internal/entity"
)

// TextExtractor is Stage 1: files -> ordered pages.
type TextExtractor interface {
	ExtractText(ctx context.Context, files []entity.SavedFile) TextExtractionResult
}

type TextExtractionResult struct {
	Pages    []entity.OcrPage
	Files    []entity.FileMeta
	Methods  map[string]string   // file id -> ocr method
	Warnings map[string][]string // file id -> warnings
	Err      error               // errors.Join of per-file failures
}

// PackageExtractor is Stage 2: pages -> normalized packages.
type PackageExtractor interface {
	Extract(ctx context.Context, pages []entity.OcrPage) (Result, error)
}
