package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joseph-ayodele/clinic-menu-ocr/internal/common"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/entity"
)

type fileBatchStore struct {
	dir    string
	logger *slog.Logger
}

// NewFileBatchStore keeps one <batch_id>.json document per batch under dir.
func NewFileBatchStore(dir string, logger *slog.Logger) BatchStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &fileBatchStore{dir: dir, logger: logger}
}

func (s *fileBatchStore) path(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" || id != filepath.Base(id) || strings.HasPrefix(id, ".") {
		return "", common.NewInputError(common.CodeInvalidInput, fmt.Sprintf("invalid batch id %q", id))
	}
	return filepath.Join(s.dir, id+".json"), nil
}

func (s *fileBatchStore) Save(_ context.Context, b *entity.Batch) error {
	if b == nil {
		return common.NewInputError(common.CodeInvalidInput, "batch id is required")
	}
	p, err := s.path(b.ID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", s.dir, err)
	}
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal batch: %w", err)
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		s.logger.Error("failed to write batch snapshot", "path", tmp, "error", err)
		return err
	}
	return os.Rename(tmp, p)
}

func (s *fileBatchStore) Get(_ context.Context, id string) (*entity.Batch, error) {
	p, err := s.path(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, common.NewAppError(common.CodeNotFound, fmt.Sprintf("batch %q not found", id), common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	var b entity.Batch
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("decode batch %s: %w", id, err)
	}
	return &b, nil
}

func (s *fileBatchStore) List(ctx context.Context, limit int) ([]BatchSummary, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []BatchSummary
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		b, err := s.Get(ctx, strings.TrimSuffix(e.Name(), ".json"))
		if err != nil {
			s.logger.Warn("skipping unreadable batch snapshot", "file", e.Name(), "error", err)
			continue
		}
		out = append(out, BatchSummary{
			ID:        b.ID,
			Status:    b.Status,
			ModelName: b.ModelName,
			Summary:   b.Summary,
			CreatedAt: b.CreatedAt,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
