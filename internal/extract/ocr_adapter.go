package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/clinic-menu-ocr/internal/entity"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/ocr"
)

type OCRAdapter struct {
	e      *ocr.Extractor
	logger *slog.Logger
}

func NewOCRAdapter(e *ocr.Extractor, logger *slog.Logger) *OCRAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &OCRAdapter{e: e, logger: logger}
}

// ExtractText runs OCR and folds the per-file outcomes into file metadata.
func (a *OCRAdapter) ExtractText(ctx context.Context, files []entity.SavedFile) TextExtractionResult {
	pages, results := a.e.ExtractPages(ctx, files)
	out := TextExtractionResult{
		Pages:    pages,
		Files:    make([]entity.FileMeta, len(results)),
		Methods:  make(map[string]string, len(results)),
		Warnings: make(map[string][]string),
	}
	var errs []error
	for i, r := range results {
		meta := entity.FileMeta{FileID: r.FileID, OriginalName: r.FileName, PageCount: len(r.Pages)}
		if r.Err != nil {
			meta.Error = r.Err.Error()
			errs = append(errs, fmt.Errorf("%s: %w", r.FileName, r.Err))
		}
		out.Files[i] = meta
		out.Methods[r.FileID] = r.Method
		if len(r.Warnings) > 0 {
			out.Warnings[r.FileID] = r.Warnings
		}
	}
	out.Err = errors.Join(errs...)
	return out
}
