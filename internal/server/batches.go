package server

import (
	"context"
	"strings"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/clinic-menu-ocr/internal/common"
)

func (s *MenuService) GetBatch(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req struct {
		BatchID string `json:"batch_id"`
	}
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	id := strings.TrimSpace(req.BatchID)
	if id == "" {
		return nil, common.NewInputError(common.CodeInvalidInput, "batch_id is required")
	}
	b, err := s.backend.GetBatch(ctx, id)
	if err != nil {
		return nil, err
	}
	return encode(b)
}

func (s *MenuService) ListBatches(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req struct {
		Limit int `json:"limit"`
	}
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	list, err := s.backend.ListBatches(ctx, req.Limit)
	if err != nil {
		return nil, err
	}
	return encode(map[string]any{"batches": list})
}
