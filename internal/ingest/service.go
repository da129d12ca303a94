package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/clinic-menu-ocr/constants"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/common"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/entity"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/extract"
)

type Config struct {
	MaxFileBytes int64  // default 50 MB
	DebugDir     string // per-page text snapshots; empty disables them
}

type Service struct {
	cfg    Config
	text   extract.TextExtractor
	logger *slog.Logger
	now    func() time.Time
}

func NewService(cfg Config, text extract.TextExtractor, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxFileBytes <= 0 {
		cfg.MaxFileBytes = int64(constants.DefaultMaxFileMB) << 20
	}
	return &Service{cfg: cfg, text: text, logger: logger, now: time.Now}
}

// HandleUploadAndExtractOcr validates every upload before any OCR work and
// then extracts pages. OCR failures are per file and reported in FilesMeta;
// only validation failures and cancellation return an error.
func (s *Service) HandleUploadAndExtractOcr(ctx context.Context, uploads []Upload) (UploadResult, error) {
	files, err := s.Validate(uploads)
	if err != nil {
		s.logger.Warn("ingest.upload.rejected", "error", err, "files", len(uploads))
		return UploadResult{}, err
	}

	batchID := NewBatchID(s.now())
	ctx = common.WithBatchID(ctx, batchID)
	log := common.LoggerFrom(ctx, s.logger)
	log.Info("ingest.upload.accepted", "files", len(files))

	res := s.text.ExtractText(ctx, files)
	if err := ctx.Err(); err != nil {
		return UploadResult{}, err
	}
	if s.cfg.DebugDir != "" {
		if err := WriteDebugSnapshot(s.cfg.DebugDir, batchID, res.Pages); err != nil {
			log.Warn("ingest.debug_snapshot.failed", "dir", s.cfg.DebugDir, "error", err)
		}
	}
	if res.Err != nil {
		log.Warn("ingest.ocr.partial", "error", res.Err)
	}
	log.Info("ingest.ocr.done", "pages", len(res.Pages))

	return UploadResult{
		BatchID:   batchID,
		OcrPages:  res.Pages,
		FilesMeta: res.Files,
		OCRErr:    res.Err,
	}, nil
}

// Validate rejects the whole batch on the first bad file: an unknown form
// field, an unsupported media type or an oversize file. An empty FieldName is
// accepted for callers that are not multipart forms.
func (s *Service) Validate(uploads []Upload) ([]entity.SavedFile, error) {
	if len(uploads) == 0 {
		return nil, common.NewInputError(common.CodeNoFiles,
			"No file provided. Please attach a file under `file` or `files[]`.")
	}
	out := make([]entity.SavedFile, 0, len(uploads))
	for _, u := range uploads {
		switch u.FieldName {
		case "", UploadField, UploadFieldMulti:
		default:
			return nil, common.NewInputError(common.CodeInvalidInput,
				fmt.Sprintf("Unexpected form field %q. Please attach files under `file` or `files[]`.", u.FieldName))
		}
		name := SanitizeFileName(u.FileName)
		mime := constants.NormalizeMime(u.MimeType)
		if mime == "" || mime == "application/octet-stream" {
			mime = constants.MimeFromPath(name)
		}
		if _, ok := constants.FormatForMime(mime); !ok {
			return nil, common.NewInputError(common.CodeUnsupportedFileType,
				fmt.Sprintf("Unsupported file type %q for %q. Please upload PDF, JPG, PNG, or HEIC.", u.MimeType, name))
		}
		if int64(len(u.Data)) > s.cfg.MaxFileBytes {
			return nil, common.NewInputError(common.CodeFileTooLarge,
				fmt.Sprintf("File exceeds the maximum allowed size of %d MB.", s.cfg.MaxFileBytes>>20))
		}
		id := uuid.NewString()
		if name == "" {
			name = "upload-" + id
		}
		out = append(out, entity.SavedFile{FileID: id, FileName: name, MimeType: mime, Data: u.Data})
	}
	return out, nil
}
