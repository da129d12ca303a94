// Package ocr turns uploaded menu files into ordered per-page text.
package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/clinic-menu-ocr/constants"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/common"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/entity"
)

// MinTextLayerChars is the non-whitespace character count below which a PDF
// is treated as scanned and rasterized.
const MinTextLayerChars = 50

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	Languages string        // tesseract -l value, default "eng+chi_sim"
	Timeout   time.Duration // per tesseract call, default 150s
	DPI       int           // rasterization DPI for scanned PDFs, default 300
	MaxPages  int           // 0 = no limit

	TessdataDir   string
	HeicConverter string // heif-convert | magick | sips

	PSM int // 6 = single block, 11 = sparse text
	OEM int // 1 = LSTM

	Preprocess  bool
	Concurrency int // files processed at once, default 1
}

// Method names recorded per file.
const (
	MethodPDFText  = "pdf-text"
	MethodPDFOCR   = "pdf-ocr"
	MethodPDFMixed = "pdf-mixed"
	MethodImageOCR = "image-ocr"
)

// FileResult is the outcome for one input file. Pages always holds at least
// one entry, even when Err is set.
type FileResult struct {
	FileID   string
	FileName string
	Pages    []entity.OcrPage
	Method   string
	Warnings []string
	Duration time.Duration
	Err      error
}

type Extractor struct {
	cfg        Config
	runner     Runner
	textLayer  TextLayer
	preprocess func([]byte) ([]byte, error)
	logger     *slog.Logger
}

type Option func(*Extractor)

// WithRunner replaces the subprocess runner.
func WithRunner(r Runner) Option {
	return func(e *Extractor) { e.runner = r }
}

// WithTextLayer replaces the PDF text layer reader.
func WithTextLayer(tl TextLayer) Option {
	return func(e *Extractor) { e.textLayer = tl }
}

// WithPreprocessor replaces the image preprocessing step.
func WithPreprocessor(fn func([]byte) ([]byte, error)) Option {
	return func(e *Extractor) { e.preprocess = fn }
}

func NewExtractor(cfg Config, logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Languages == "" {
		cfg.Languages = "eng+chi_sim"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 150 * time.Second
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	e := &Extractor{cfg: cfg, logger: logger}
	e.runner = execRunner{logger: logger}
	e.textLayer = chainTextLayer{
		goTextLayer{},
		popplerTextLayer{runner: e.runner, bin: cfg.Pdftotext},
	}
	e.preprocess = PreprocessImage
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExtractPages runs every file through OCR and returns the flattened pages in
// input file order and in-file page order. A file that fails is reported in
// its FileResult and contributes one empty page; other files are unaffected.
func (e *Extractor) ExtractPages(ctx context.Context, files []entity.SavedFile) ([]entity.OcrPage, []FileResult) {
	results := make([]FileResult, len(files))

	var g errgroup.Group
	g.SetLimit(e.cfg.Concurrency)
	for i, f := range files {
		g.Go(func() error {
			results[i] = e.ExtractFile(ctx, f)
			return nil
		})
	}
	_ = g.Wait()

	var pages []entity.OcrPage
	for _, r := range results {
		pages = append(pages, r.Pages...)
	}
	return pages, results
}

// ExtractFile picks a strategy based on the declared media type.
func (e *Extractor) ExtractFile(ctx context.Context, f entity.SavedFile) FileResult {
	start := time.Now()
	log := common.LoggerFrom(ctx, e.logger).With("file_id", f.FileID, "file", f.FileName)
	log.Info("ocr.extract.start", "mime", f.MimeType, "bytes", len(f.Data))

	res := FileResult{FileID: f.FileID, FileName: f.FileName}
	var texts []string
	format, _ := constants.FormatForMime(f.MimeType)
	switch format {
	case constants.PDF:
		texts, res.Method, res.Warnings, res.Err = e.extractPDF(ctx, f.Data, log)
	case constants.IMAGE:
		var txt string
		txt, res.Warnings, res.Err = e.extractImage(ctx, f, log)
		texts, res.Method = []string{txt}, MethodImageOCR
	default:
		res.Err = common.NewInputError(common.CodeUnsupportedFileType, fmt.Sprintf("Unsupported file type %q for %s", f.MimeType, f.FileName))
	}

	if res.Err != nil || len(texts) == 0 {
		texts = []string{""}
	}
	for i, t := range texts {
		res.Pages = append(res.Pages, entity.OcrPage{
			FileID:     f.FileID,
			FileName:   f.FileName,
			PageNumber: i + 1,
			RawText:    CleanText(t),
		})
	}
	res.Duration = time.Since(start)

	if res.Err != nil {
		log.Error("ocr.extract.failed", "error", res.Err, "elapsed_ms", res.Duration.Milliseconds())
	} else {
		log.Info("ocr.extract.ok",
			"method", res.Method,
			"pages", len(res.Pages),
			"warnings", len(res.Warnings),
			"elapsed_ms", res.Duration.Milliseconds(),
		)
	}
	return res
}
