package server

import (
	"context"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/clinic-menu-ocr/internal/common"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/entity"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/normalize"
)

type regenerateRequest struct {
	BatchID  string               `json:"batch_id"`
	Packages *[]entity.RawPackage `json:"packages"`
	forwardFields
}

// RegenerateCSV accepts {packages: [...]} or a full upload response and
// returns the re-normalized packages with a fresh CSV document.
func (s *MenuService) RegenerateCSV(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req regenerateRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	if req.Packages == nil {
		return nil, common.NewInputError(common.CodeInvalidInput,
			"No packages array found. Expected either { packages: [...] } or a full OCR response that includes a 'packages' array.")
	}
	// Edited rows arrive untrusted, so they go through the normalizer first.
	rows := make([]entity.PackageRow, 0, len(*req.Packages))
	for _, raw := range *req.Packages {
		rows = append(rows, normalize.NormalizePackageRow(raw))
	}

	res, err := s.backend.RegenerateCSV(ctx, req.BatchID, rows, req.runOptions())
	if err != nil {
		return nil, err
	}
	return encode(map[string]any{
		"success":   true,
		"batch_id":  req.BatchID,
		"packages":  res.Packages,
		"summary":   res.Summary,
		"csv":       string(res.CSV),
		"artifacts": res.Artifacts,
	})
}
