package server

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/clinic-menu-ocr/internal/common"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/export"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/ingest"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/pipeline"
)

func newRequestID() string { return uuid.NewString() }

type uploadFile struct {
	FieldName string `json:"field_name"`
	FileName  string `json:"file_name"`
	MimeType  string `json:"mime_type"`
	Data      []byte `json:"data"` // base64
}

type forwardFields struct {
	ForwardToImporter bool  `json:"forwardToImporter"`
	ConfirmAutoCreate *bool `json:"confirmAutoCreate"`
	ClearExisting     *bool `json:"clearExisting"`
}

func (f forwardFields) runOptions() pipeline.RunOptions {
	return pipeline.RunOptions{
		Forward: f.ForwardToImporter,
		ForwardOptions: export.ForwardOptions{
			ConfirmAutoCreate: f.ConfirmAutoCreate,
			ClearExisting:     f.ClearExisting,
		},
	}
}

type processUploadRequest struct {
	Files []uploadFile `json:"files"`
	forwardFields
}

// processResponse mirrors the upload route: {success, batch_id, files, packages, summary}.
type processResponse struct {
	Success   bool   `json:"success"`
	BatchID   string `json:"batch_id"`
	Status    string `json:"status"`
	Files     any    `json:"files"`
	Packages  any    `json:"packages"`
	Summary   any    `json:"summary"`
	Artifacts any    `json:"artifacts"`
}

func toProcessResponse(out *pipeline.Outcome) processResponse {
	b := out.Batch
	return processResponse{
		Success:   true,
		BatchID:   b.ID,
		Status:    string(b.Status),
		Files:     b.Files,
		Packages:  b.Packages,
		Summary:   b.Summary,
		Artifacts: out.Artifacts,
	}
}

// ProcessUpload runs the full pipeline over base64 file payloads.
func (s *MenuService) ProcessUpload(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req processUploadRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	uploads := make([]ingest.Upload, 0, len(req.Files))
	for _, f := range req.Files {
		uploads = append(uploads, ingest.Upload{
			FieldName: f.FieldName,
			FileName:  f.FileName,
			MimeType:  f.MimeType,
			Data:      f.Data,
		})
	}
	out, err := s.backend.Process(ctx, uploads, req.runOptions())
	if err != nil {
		return nil, err
	}
	return encode(toProcessResponse(out))
}

type processDirectoryRequest struct {
	RootPath   string `json:"root_path"`
	SkipHidden *bool  `json:"skip_hidden"`
	forwardFields
}

// ProcessDirectory loads every menu file under a server-side directory and
// runs them as one batch.
func (s *MenuService) ProcessDirectory(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req processDirectoryRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	root := strings.TrimSpace(req.RootPath)
	if root == "" {
		return nil, common.NewInputError(common.CodeInvalidInput, "root_path is required")
	}
	skipHidden := true
	if req.SkipHidden != nil {
		skipHidden = *req.SkipHidden
	}

	log := common.LoggerFrom(ctx, s.logger)
	uploads, stats, err := ingest.LoadDirectory(root, skipHidden)
	if err != nil {
		return nil, common.NewInputError(common.CodeInvalidInput, err.Error())
	}
	log.Info("directory loaded", "root", root, "scanned", stats.Scanned, "matched", stats.Matched, "loaded", stats.Loaded, "failed", stats.Failed)

	out, err := s.backend.Process(ctx, uploads, req.runOptions())
	if err != nil {
		return nil, err
	}
	return encode(struct {
		processResponse
		Stats ingest.DirStats `json:"stats"`
	}{toProcessResponse(out), stats})
}
