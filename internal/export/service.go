package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/clinic-menu-ocr/internal/common"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/entity"
)

// Artifacts lists what a batch export produced.
type Artifacts struct {
	CSVPath        string `json:"csv_path,omitempty"`
	XLSXPath       string `json:"xlsx_path,omitempty"`
	ImporterStatus string `json:"importer_status,omitempty"`
}

// Service writes CSV and XLSX exports under a directory and optionally
// forwards the CSV to the bulk importer.
type Service struct {
	dir       string
	forwarder *Forwarder
	logger    *slog.Logger
}

// NewService returns an exporter rooted at dir. forwarder may be nil.
func NewService(dir string, forwarder *Forwarder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{dir: dir, forwarder: forwarder, logger: logger}
}

// BaseName reuses ids that already look like b_YYYYMMDD_HHMMSS_xxxx.
func BaseName(batchID string) string {
	batchID = strings.TrimSpace(batchID)
	if batchID == "" {
		return "batch"
	}
	if strings.HasPrefix(batchID, "b_") {
		return batchID
	}
	return "b_" + batchID
}

// ExportBatch writes <dir>/csv/<base>.csv and <dir>/xlsx/<base>.xlsx and
// forwards the CSV when forward is true and a forwarder is configured.
func (s *Service) ExportBatch(ctx context.Context, batchID string, rows []entity.PackageRow, forward bool, opts ForwardOptions) (Artifacts, error) {
	start := time.Now()
	log := common.LoggerFrom(ctx, s.logger)
	base := BaseName(batchID)

	csvData, err := GenerateCSV(rows)
	if err != nil {
		return Artifacts{}, fmt.Errorf("csv: %w", err)
	}
	xlsxData, err := BuildXLSX(rows)
	if err != nil {
		return Artifacts{}, err
	}

	var out Artifacts
	if out.CSVPath, err = s.write("csv", base+".csv", csvData); err != nil {
		return out, err
	}
	if out.XLSXPath, err = s.write("xlsx", base+".xlsx", xlsxData); err != nil {
		return out, err
	}

	if forward && s.forwarder != nil {
		status, err := s.forwarder.Forward(ctx, csvData, opts)
		if err != nil {
			return out, fmt.Errorf("forward: %w", err)
		}
		out.ImporterStatus = status
	}

	log.Info("export.batch.ok",
		"rows", len(rows),
		"csv", out.CSVPath,
		"importer_status", out.ImporterStatus,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

func (s *Service) write(sub, name string, data []byte) (string, error) {
	dir := filepath.Join(s.dir, sub)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
