package main

import (
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/clinic-menu-ocr/internal/app"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/extract"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/ingest"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/ocr"
)

var ocrCmd = &cobra.Command{
	Use:   "ocr [file...]",
	Short: "Extract page text only, without calling the LLM",
	Example: `  menuocr ocr menu.pdf -o pages.json
  OCR_DEBUG=1 menuocr ocr scan.heic`,
	Args: cobra.MinimumNArgs(1),
	RunE: runOCR,
}

func init() {
	rootCmd.AddCommand(ocrCmd)
}

func runOCR(cmd *cobra.Command, args []string) error {
	ctx, stop, cfg, logger := setup(cmd)
	defer stop()

	uploads, err := collectUploads(args, true)
	if err != nil {
		return err
	}

	debugDir := ""
	if cfg.OCR.Debug {
		debugDir = cfg.OCR.DebugDir
	}
	extractor := ocr.NewExtractor(app.OCRConfig(cfg.OCR), logger)
	svc := ingest.NewService(ingest.Config{
		MaxFileBytes: cfg.OCR.MaxFileBytes(),
		DebugDir:     debugDir,
	}, extract.NewOCRAdapter(extractor, logger), logger)

	res, err := svc.HandleUploadAndExtractOcr(ctx, uploads)
	if err != nil {
		return err
	}
	return writeJSON(cmd, res)
}
