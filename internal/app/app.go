// Package app wires the pipeline from configuration for the binaries.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/joseph-ayodele/clinic-menu-ocr/internal/common"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/export"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/extract"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/ingest"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/llm"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/llm/bedrock"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/llm/openai"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/ocr"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/pipeline"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/repository"
)

type App struct {
	Config    *common.Config
	Logger    *slog.Logger
	Ingest    *ingest.Service
	Processor *pipeline.Processor

	db *sql.DB
}

// Build opens storage and constructs every stage. Close releases the database.
func Build(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	ocrx := ocr.NewExtractor(OCRConfig(cfg.OCR), logger)
	debugDir := ""
	if cfg.OCR.Debug {
		debugDir = cfg.OCR.DebugDir
	}
	ing := ingest.NewService(ingest.Config{
		MaxFileBytes: cfg.OCR.MaxFileBytes(),
		DebugDir:     debugDir,
	}, extract.NewOCRAdapter(ocrx, logger), logger)

	invoker, modelName, err := NewInvoker(ctx, cfg.LLM, logger)
	if err != nil {
		return nil, err
	}
	// ModelID stays empty so each client resolves its own configured model.
	ext := extract.NewService(extract.Config{
		MaxTokens:        cfg.LLM.MaxTokens,
		Temperature:      cfg.LLM.Temperature,
		Concurrency:      cfg.LLM.Concurrency,
		SchemaValidation: cfg.LLM.SchemaValidation,
	}, invoker, logger)

	var forwarder *export.Forwarder
	if cfg.Export.BulkImportURL != "" {
		forwarder = export.NewForwarder(cfg.Export.BulkImportURL, cfg.Export.BulkImportKey, logger)
	}
	opts := []pipeline.Option{
		pipeline.WithModelName(modelName),
		pipeline.WithExporter(export.NewService(cfg.Export.OutputDir, forwarder, logger)),
	}

	a := &App{Config: cfg, Logger: logger, Ingest: ing}
	if cfg.Database.DSN != "" {
		db, dialect, err := repository.Open(ctx, repository.Config{
			DSN:             cfg.Database.DSN,
			MaxConns:        cfg.Database.MaxConns,
			MaxConnLifetime: cfg.Database.MaxConnLifetime,
			DialTimeout:     cfg.Database.DialTimeout,
		}, logger)
		if err != nil {
			return nil, common.NewAppError(common.CodeConfig, "open database", err)
		}
		store, err := repository.NewSQLBatchStore(ctx, db, dialect, logger)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		a.db = db
		opts = append(opts, pipeline.WithStore(store))
	}
	// The JSON snapshot directory is always written next to the exports.
	opts = append(opts, pipeline.WithStore(repository.NewFileBatchStore(filepath.Join(cfg.Export.OutputDir, "batches"), logger)))

	a.Processor = pipeline.NewProcessor(logger, ing, ext, opts...)
	return a, nil
}

// HealthCheck pings the database when one is configured.
func (a *App) HealthCheck(ctx context.Context) error {
	if a.db == nil {
		return nil
	}
	return repository.HealthCheck(ctx, a.db, a.Config.Database.DialTimeout, a.Logger)
}

func (a *App) Close() {
	repository.Close(a.db, a.Logger)
}

// OCRConfig maps process configuration onto the OCR engine.
func OCRConfig(c common.OCRConfig) ocr.Config {
	return ocr.Config{
		Languages:     c.Languages,
		Timeout:       c.Timeout,
		DPI:           c.DPI,
		TessdataDir:   c.TessdataDir,
		HeicConverter: c.HeicConverter,
		PSM:           c.PSM,
		OEM:           c.OEM,
		Preprocess:    c.Preprocess,
		Concurrency:   c.Concurrency,
	}
}

// NewInvoker selects the LLM provider. The returned name is the model that
// requests will use.
func NewInvoker(ctx context.Context, c common.LLMConfig, logger *slog.Logger) (llm.Invoker, string, error) {
	switch c.Provider {
	case "", "bedrock":
		client, err := bedrock.New(ctx, bedrock.Config{
			Region:         c.Region,
			ModelID:        c.ModelID,
			ProfileARN:     c.ProfileARN,
			OpusProfileARN: c.OpusProfileARN,
			MaxTokens:      c.MaxTokens,
			Temperature:    c.Temperature,
			Timeout:        c.Timeout,
		}, logger)
		if err != nil {
			return nil, "", common.NewAppError(common.CodeConfig, "configure AWS Bedrock", err)
		}
		return client, client.ResolveModel(""), nil
	case "openai":
		client := openai.NewClient(openai.Config{
			APIKey:      c.OpenAIAPIKey,
			BaseURL:     c.OpenAIBaseURL,
			Model:       c.OpenAIModel,
			Temperature: c.Temperature,
			MaxTokens:   c.MaxTokens,
			Timeout:     c.Timeout,
		}, logger)
		return client, c.OpenAIModel, nil
	default:
		return nil, "", common.NewInputError(common.CodeConfig, fmt.Sprintf("unknown LLM_PROVIDER %q (want bedrock or openai)", c.Provider))
	}
}
