// Package extract turns OCR pages into normalized package rows, one model call
// per source file.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/clinic-menu-ocr/internal/common"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/entity"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/llm"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/normalize"
)

// PreviewChars bounds the raw and sanitized output quoted in parse errors.
const PreviewChars = 500

type Config struct {
	ModelID          string
	MaxTokens        int     // default 6000
	Temperature      float32 // default 0.1
	Concurrency      int     // files in flight, default 1
	SchemaValidation bool
}

// FileOutcome describes the extraction of one source file.
type FileOutcome struct {
	FileID       string
	FileName     string
	Pages        int
	Packages     int
	PriceAnchors int
	StopReason   string
	OutputTokens int
	Warnings     []string
	Duration     time.Duration
	Err          error
}

type Result struct {
	Packages []entity.PackageRow
	Files    []FileOutcome
}

// Err joins the errors of failed files.
func (r Result) Err() error {
	var errs []error
	for _, f := range r.Files {
		if f.Err != nil {
			errs = append(errs, f.Err)
		}
	}
	return errors.Join(errs...)
}

type Service struct {
	cfg    Config
	llm    llm.Invoker
	logger *slog.Logger
}

var _ PackageExtractor = (*Service)(nil)

func NewService(cfg Config, invoker llm.Invoker, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 6000
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.1
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &Service{cfg: cfg, llm: invoker, logger: logger}
}

// ExtractPackagesFromOcrText returns the packages of every file that succeeded
// together with the joined errors of the files that did not.
func (s *Service) ExtractPackagesFromOcrText(ctx context.Context, pages []entity.OcrPage) ([]entity.PackageRow, error) {
	res, err := s.Extract(ctx, pages)
	if err != nil {
		return res.Packages, err
	}
	return res.Packages, res.Err()
}

// Extract groups pages by file, in order of first appearance, and runs one
// model call per file. A failing file is recorded in its FileOutcome and does
// not affect the others. The returned error is non-nil only when ctx ends.
func (s *Service) Extract(ctx context.Context, pages []entity.OcrPage) (Result, error) {
	if len(pages) == 0 {
		return Result{}, nil
	}
	groups := groupByFile(pages)

	outcomes := make([]FileOutcome, len(groups))
	rows := make([][]entity.PackageRow, len(groups))

	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for i, grp := range groups {
		g.Go(func() error {
			if ctx.Err() != nil {
				outcomes[i] = FileOutcome{FileID: grp.fileID, FileName: grp.fileName(), Pages: len(grp.pages), Err: ctx.Err()}
				return nil
			}
			rows[i], outcomes[i] = s.extractFile(ctx, grp)
			return nil
		})
	}
	_ = g.Wait()

	res := Result{Files: outcomes}
	for _, r := range rows {
		res.Packages = append(res.Packages, r...)
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}
	return res, nil
}

type fileGroup struct {
	fileID string
	pages  []entity.OcrPage
}

func (g fileGroup) fileName() string {
	for _, p := range g.pages {
		if p.FileName != "" {
			return p.FileName
		}
	}
	return "unknown-file"
}

// groupByFile keeps the first-appearance order of files and sorts each
// file's pages by page number.
func groupByFile(pages []entity.OcrPage) []fileGroup {
	idx := map[string]int{}
	var groups []fileGroup
	for _, p := range pages {
		i, ok := idx[p.FileID]
		if !ok {
			i = len(groups)
			idx[p.FileID] = i
			groups = append(groups, fileGroup{fileID: p.FileID})
		}
		groups[i].pages = append(groups[i].pages, p)
	}
	for i := range groups {
		sort.SliceStable(groups[i].pages, func(a, b int) bool {
			return groups[i].pages[a].PageNumber < groups[i].pages[b].PageNumber
		})
	}
	return groups
}

func (s *Service) extractFile(ctx context.Context, grp fileGroup) ([]entity.PackageRow, FileOutcome) {
	start := time.Now()
	name := grp.fileName()
	out := FileOutcome{FileID: grp.fileID, FileName: name, Pages: len(grp.pages)}
	log := common.LoggerFrom(ctx, s.logger).With("file_id", grp.fileID, "file", name)

	prompt := llm.BuildPrompt(grp.pages)
	log.Info("extract.file.start", "pages", len(grp.pages), "prompt_chars", len(prompt), "approx_tokens", len(prompt)/4)

	comp, err := s.llm.Invoke(ctx, prompt, llm.InvokeOptions{
		ModelID:     s.cfg.ModelID,
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		out.Err = fmt.Errorf("extract %q: %w", name, err)
		out.Duration = time.Since(start)
		log.Error("extract.file.llm_failed", "error", err, "code", common.CodeOf(err))
		return nil, out
	}
	out.StopReason, out.OutputTokens = comp.StopReason, comp.OutputTokens

	cleaned := llm.SanitizeModelResponse(comp.Text)
	if cleaned == "" {
		out.Warnings = append(out.Warnings, "model returned an empty response")
		cleaned = "{}"
	}
	var parsed any
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		log.Error("extract.file.invalid_json",
			"error", err,
			"truncated", comp.Truncated,
			"raw_preview", common.Truncate(comp.Text, PreviewChars),
			"cleaned_preview", common.Truncate(cleaned, PreviewChars),
		)
		out.Err = outputError(name, comp, cleaned, err)
		out.Duration = time.Since(start)
		return nil, out
	}
	if comp.Truncated {
		out.Warnings = append(out.Warnings, "model output may be truncated at the token cap; some packages may be missing")
	}

	if s.cfg.SchemaValidation {
		if err := llm.ValidateJSONAgainstSchema(llm.BuildPackagesJSONSchema(), []byte(cleaned)); err != nil {
			log.Warn("extract.file.schema_mismatch", "error", err)
			out.Warnings = append(out.Warnings, "response did not match the package schema: "+common.Truncate(err.Error(), 300))
		}
	}

	items := packagesOf(parsed)
	if items == nil {
		log.Warn("extract.file.no_packages_array")
	}

	singlePage := 0
	if len(grp.pages) == 1 {
		singlePage = grp.pages[0].PageNumber
	}
	rows := make([]entity.PackageRow, 0, len(items))
	for i, item := range items {
		raw, ok := item.(map[string]any)
		if !ok {
			out.Warnings = append(out.Warnings, fmt.Sprintf("package %d is not an object; skipped", i+1))
			continue
		}
		row := normalize.NormalizePackageRow(entity.RawPackage(raw))
		if row.Meta.SourceFile == "" {
			row.Meta.SourceFile = name
		}
		if row.Meta.SourcePage == nil && singlePage > 0 {
			p := singlePage
			row.Meta.SourcePage = &p
		}
		row.ID = "pkg_" + uuid.NewString()
		rows = append(rows, row)
	}

	for _, p := range grp.pages {
		out.PriceAnchors += llm.CountPriceAnchors(p.RawText)
	}
	if out.PriceAnchors > len(rows) {
		log.Warn("extract.file.under_extraction", "price_anchors", out.PriceAnchors, "packages", len(rows))
		out.Warnings = append(out.Warnings, fmt.Sprintf(
			"possible under-extraction: %d price anchors in OCR text but %d packages returned", out.PriceAnchors, len(rows)))
	}

	out.Packages = len(rows)
	out.Duration = time.Since(start)
	log.Info("extract.file.ok",
		"packages", len(rows),
		"price_anchors", out.PriceAnchors,
		"warnings", len(out.Warnings),
		"elapsed_ms", out.Duration.Milliseconds(),
	)
	return rows, out
}

// packagesOf reads parsed.packages. Anything other than an array yields nil.
func packagesOf(parsed any) []any {
	m, ok := parsed.(map[string]any)
	if !ok {
		return nil
	}
	items, _ := m["packages"].([]any)
	return items
}

func outputError(name string, comp llm.Completion, cleaned string, err error) error {
	if comp.Truncated {
		return common.NewAppError(common.CodeLLMOutputTruncated,
			fmt.Sprintf("model output for %q stopped at the token cap (%d output tokens, stop_reason=%s); raise LLM_MAX_TOKENS or split the file",
				name, comp.OutputTokens, comp.StopReason),
			errors.Join(common.ErrLLMOutput, err))
	}
	return common.NewAppError(common.CodeLLMOutputInvalid,
		fmt.Sprintf("model returned invalid JSON for %q; raw preview: %q; sanitized preview: %q",
			name, common.Truncate(comp.Text, PreviewChars), common.Truncate(cleaned, PreviewChars)),
		errors.Join(common.ErrLLMOutput, err))
}
