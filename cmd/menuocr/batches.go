package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/clinic-menu-ocr/internal/entity"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/normalize"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/pipeline"
)

var batchesCmd = &cobra.Command{
	Use:   "batches",
	Short: "List stored batches, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop, cfg, logger := setup(cmd)
		defer stop()
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := buildApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()
		list, err := a.Processor.ListBatches(ctx, limit)
		if err != nil {
			return err
		}
		return writeJSON(cmd, map[string]any{"batches": list})
	},
}

var regenerateCmd = &cobra.Command{
	Use:   "regenerate [packages.json]",
	Short: "Re-normalize edited packages and write a fresh CSV",
	Long: `Regenerate reads {packages: [...]} or a full run result, re-runs
normalization and validation, and exports the CSV again.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop, cfg, logger := setup(cmd)
		defer stop()
		forward, _ := cmd.Flags().GetBool("forward")

		raw, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		var body struct {
			BatchID  string               `json:"batch_id"`
			Packages *[]entity.RawPackage `json:"packages"`
		}
		if err := json.Unmarshal(raw, &body); err != nil {
			return fmt.Errorf("parse %s: %w", args[0], err)
		}
		if body.Packages == nil {
			return fmt.Errorf("%s has no packages array", args[0])
		}

		a, err := buildApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()
		rows := make([]entity.PackageRow, 0, len(*body.Packages))
		for _, raw := range *body.Packages {
			rows = append(rows, normalize.NormalizePackageRow(raw))
		}
		res, err := a.Processor.RegenerateCSV(ctx, body.BatchID, rows, pipeline.RunOptions{Forward: forward})
		if err != nil {
			return err
		}
		return writeJSON(cmd, res)
	},
}

func init() {
	rootCmd.AddCommand(batchesCmd, regenerateCmd)
	batchesCmd.Flags().Int("limit", 20, "Maximum batches to list")
	regenerateCmd.Flags().Bool("forward", false, "Forward the CSV to BULK_IMPORT_URL")
}
