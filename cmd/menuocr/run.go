package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/clinic-menu-ocr/internal/ingest"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/pipeline"
)

var runCmd = &cobra.Command{
	Use:   "run [file-or-dir...]",
	Short: "Run OCR, extraction, validation and export for one batch",
	Long: `Run treats all arguments as one upload batch. Directories are walked
recursively for PDF, JPG, PNG and HEIC files.`,
	Example: `  # One menu
  menuocr run spa-menu.pdf

  # A folder of photos, forwarded to the bulk importer
  menuocr run ./menus --forward`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().Bool("forward", false, "Forward the CSV to BULK_IMPORT_URL")
	runCmd.Flags().Bool("include-hidden", false, "Include hidden files when walking directories")
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx, stop, cfg, logger := setup(cmd)
	defer stop()

	forward, _ := cmd.Flags().GetBool("forward")
	includeHidden, _ := cmd.Flags().GetBool("include-hidden")

	uploads, err := collectUploads(args, !includeHidden)
	if err != nil {
		return err
	}

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	out, err := a.Processor.Process(ctx, uploads, pipeline.RunOptions{Forward: forward})
	if err != nil {
		return err
	}
	return writeJSON(cmd, map[string]any{
		"success":   true,
		"batch_id":  out.Batch.ID,
		"status":    out.Batch.Status,
		"files":     out.Batch.Files,
		"packages":  out.Batch.Packages,
		"summary":   out.Batch.Summary,
		"artifacts": out.Artifacts,
	})
}

func collectUploads(args []string, skipHidden bool) ([]ingest.Upload, error) {
	var uploads []ingest.Upload
	for _, arg := range args {
		st, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !st.IsDir() {
			u, err := ingest.LoadFile(arg)
			if err != nil {
				return nil, err
			}
			uploads = append(uploads, u)
			continue
		}
		dirUploads, stats, err := ingest.LoadDirectory(arg, skipHidden)
		if err != nil {
			return nil, err
		}
		if stats.Failed > 0 {
			fmt.Fprintf(os.Stderr, "warning: %d entries under %s could not be read\n", stats.Failed, arg)
		}
		uploads = append(uploads, dirUploads...)
	}
	return uploads, nil
}
