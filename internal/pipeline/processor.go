// Package pipeline runs an upload batch end to end: OCR, extraction,
// validation, snapshot storage and export.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/clinic-menu-ocr/constants"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/common"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/entity"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/export"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/extract"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/ingest"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/normalize"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/repository"
)

// Processor coordinates OCR (ingest) then LLM extraction (packages).
type Processor struct {
	logger    *slog.Logger
	ingest    *ingest.Service
	extractor extract.PackageExtractor
	exporter  *export.Service
	stores    []repository.BatchStore
	modelName string
	now       func() time.Time
}

type Option func(*Processor)

// WithExporter writes CSV/XLSX for every batch.
func WithExporter(e *export.Service) Option {
	return func(p *Processor) { p.exporter = e }
}

// WithStore adds a snapshot store. The first store also serves reads.
func WithStore(s repository.BatchStore) Option {
	return func(p *Processor) {
		if s != nil {
			p.stores = append(p.stores, s)
		}
	}
}

// WithModelName records the model used on stored batches.
func WithModelName(name string) Option {
	return func(p *Processor) { p.modelName = name }
}

func NewProcessor(logger *slog.Logger, ing *ingest.Service, extractor extract.PackageExtractor, opts ...Option) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Processor{logger: logger, ingest: ing, extractor: extractor, now: time.Now}
	for _, o := range opts {
		o(p)
	}
	return p
}

// RunOptions control the export step.
type RunOptions struct {
	Forward bool
	export.ForwardOptions
}

// Outcome is everything a caller may want to show for one batch.
type Outcome struct {
	Batch     *entity.Batch         `json:"batch"`
	Buckets   normalize.BatchResult `json:"buckets"`
	Files     []extract.FileOutcome `json:"-"`
	Artifacts export.Artifacts      `json:"artifacts"`
}

// Process runs one batch. Per-file OCR and extraction failures are reported in
// the batch file list and status; the returned error is for rejected uploads,
// cancellation and export failures.
func (p *Processor) Process(ctx context.Context, uploads []ingest.Upload, opts RunOptions) (*Outcome, error) {
	start := p.now()

	up, err := p.ingest.HandleUploadAndExtractOcr(ctx, uploads)
	if err != nil {
		return nil, err
	}
	ctx = common.WithBatchID(ctx, up.BatchID)
	log := common.LoggerFrom(ctx, p.logger)
	log.Info("processor.ocr.ok", "files", len(up.FilesMeta), "pages", len(up.OcrPages))

	var res extract.Result
	if pages := extractablePages(up.FilesMeta, up.OcrPages); len(pages) > 0 {
		res, err = p.extractor.Extract(ctx, pages)
		if err != nil {
			log.Error("processor.extract.failed", "error", err)
			return nil, err
		}
	}

	files := mergeFileErrors(up.FilesMeta, res.Files)
	buckets := normalize.ValidatePackageBatch(res.Packages)
	finished := p.now()
	batch := &entity.Batch{
		ID:         up.BatchID,
		Status:     batchStatus(files, res.Files),
		Files:      files,
		Pages:      up.OcrPages,
		Packages:   res.Packages,
		Summary:    buckets.Summary(),
		CreatedAt:  start,
		FinishedAt: &finished,
		ModelName:  p.modelName,
	}
	p.save(ctx, batch)

	out := &Outcome{Batch: batch, Buckets: buckets, Files: res.Files}
	if p.exporter != nil {
		out.Artifacts, err = p.exporter.ExportBatch(ctx, batch.ID, batch.Packages, opts.Forward, opts.ForwardOptions)
		if err != nil {
			log.Error("processor.export.failed", "error", err)
			return out, err
		}
	}

	log.Info("processor.batch.done",
		"status", batch.Status,
		"total", batch.Summary.Total,
		"valid", batch.Summary.Valid,
		"with_warnings", batch.Summary.WithWarnings,
		"invalid", batch.Summary.Invalid,
		"elapsed_ms", finished.Sub(start).Milliseconds(),
	)
	return out, nil
}

// ProcessPaths loads local files and runs them as one batch.
func (p *Processor) ProcessPaths(ctx context.Context, paths []string, opts RunOptions) (*Outcome, error) {
	uploads := make([]ingest.Upload, 0, len(paths))
	for _, path := range paths {
		u, err := ingest.LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
		uploads = append(uploads, u)
	}
	return p.Process(ctx, uploads, opts)
}

// RegenerateResult is the output of re-exporting edited packages.
type RegenerateResult struct {
	Packages  []entity.PackageRow `json:"packages"`
	Summary   entity.Summary      `json:"summary"`
	CSV       []byte              `json:"-"`
	Artifacts export.Artifacts    `json:"artifacts"`
}

// RegenerateCSV re-normalizes reviewer-edited packages, validates them and
// produces a fresh CSV. When batchID names a stored batch its packages and
// summary are replaced.
func (p *Processor) RegenerateCSV(ctx context.Context, batchID string, rows []entity.PackageRow, opts RunOptions) (*RegenerateResult, error) {
	if rows == nil {
		return nil, common.NewInputError(common.CodeInvalidInput,
			"No packages array found. Expected { packages: [...] }.")
	}
	log := common.LoggerFrom(common.WithBatchID(ctx, batchID), p.logger)

	normalized := make([]entity.PackageRow, len(rows))
	for i, r := range rows {
		r.Meta.Warnings = dropValidationWarnings(r.Meta.Warnings)
		normalized[i] = normalize.NormalizePackageRow(r.Raw())
	}
	summary := normalize.ValidatePackageBatch(normalized).Summary()

	out := &RegenerateResult{Packages: normalized, Summary: summary}
	csvData, err := export.GenerateCSV(normalized)
	if err != nil {
		return nil, fmt.Errorf("csv: %w", err)
	}
	out.CSV = csvData
	if p.exporter != nil {
		out.Artifacts, err = p.exporter.ExportBatch(ctx, batchID, normalized, opts.Forward, opts.ForwardOptions)
		if err != nil {
			return out, err
		}
	}

	if batchID != "" && len(p.stores) > 0 {
		if b, err := p.stores[0].Get(ctx, batchID); err == nil {
			b.Packages = normalized
			b.Summary = summary
			p.save(ctx, b)
		} else if !errors.Is(err, common.ErrNotFound) {
			log.Warn("processor.regenerate.load_failed", "error", err)
		}
	}

	log.Info("processor.regenerate.ok", "rows", len(normalized), "valid", summary.Valid, "invalid", summary.Invalid)
	return out, nil
}

// GetBatch reads a stored batch.
func (p *Processor) GetBatch(ctx context.Context, id string) (*entity.Batch, error) {
	if len(p.stores) == 0 {
		return nil, common.NewAppError(common.CodeNotFound, "batch storage is not configured", common.ErrNotFound)
	}
	return p.stores[0].Get(ctx, id)
}

// ListBatches lists stored batches, newest first.
func (p *Processor) ListBatches(ctx context.Context, limit int) ([]repository.BatchSummary, error) {
	if len(p.stores) == 0 {
		return nil, nil
	}
	return p.stores[0].List(ctx, limit)
}

// save writes to every store. Snapshot failures never fail the batch.
func (p *Processor) save(ctx context.Context, b *entity.Batch) {
	log := common.LoggerFrom(ctx, p.logger)
	for _, s := range p.stores {
		if err := s.Save(ctx, b); err != nil {
			log.Warn("processor.snapshot.failed", "error", err)
		}
	}
}

// dropValidationWarnings removes warnings the validator will recompute.
func dropValidationWarnings(ws []string) []string {
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		if !strings.HasPrefix(w, normalize.MissingFieldsWarning) {
			out = append(out, w)
		}
	}
	return out
}

// extractablePages drops the placeholder pages of files whose OCR failed,
// so they never reach the model.
func extractablePages(meta []entity.FileMeta, pages []entity.OcrPage) []entity.OcrPage {
	failed := make(map[string]bool)
	for _, m := range meta {
		if m.Error != "" {
			failed[m.FileID] = true
		}
	}
	if len(failed) == 0 {
		return pages
	}
	out := make([]entity.OcrPage, 0, len(pages))
	for _, pg := range pages {
		if !failed[pg.FileID] {
			out = append(out, pg)
		}
	}
	return out
}

// mergeFileErrors copies extraction failures onto the OCR file list.
func mergeFileErrors(meta []entity.FileMeta, outcomes []extract.FileOutcome) []entity.FileMeta {
	errs := make(map[string]error, len(outcomes))
	for _, o := range outcomes {
		if o.Err != nil {
			errs[o.FileID] = o.Err
		}
	}
	out := make([]entity.FileMeta, len(meta))
	for i, m := range meta {
		if m.Error == "" {
			if err, ok := errs[m.FileID]; ok {
				m.Error = err.Error()
			}
		}
		out[i] = m
	}
	return out
}

func batchStatus(files []entity.FileMeta, outcomes []extract.FileOutcome) constants.BatchStatus {
	failed := 0
	for _, f := range files {
		if f.Error != "" {
			failed++
		}
	}
	switch {
	case len(files) > 0 && failed == len(files):
		return constants.BatchStatusFailed
	case failed > 0:
		return constants.BatchStatusPartial
	case len(outcomes) == 0:
		return constants.BatchStatusOCROK
	default:
		return constants.BatchStatusExtracted
	}
}
