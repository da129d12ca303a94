package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/clinic-menu-ocr/internal/app"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/common"
)

var version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "menuocr",
	Short: "Turn clinic price menus into bulk-import package rows",
	Long: `menuocr extracts text from clinic menu PDFs and photos, asks an LLM to
segment the text into priced packages, then validates and exports them as
the 26-column bulk-import CSV (plus an XLSX review workbook).

Configuration comes from the environment (and a .env file if present):
  LLM_PROVIDER, AWS_REGION, BEDROCK_*, OPENAI_*, OCR_*, OUTPUT_DIR, DB_URL`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error); overrides LOG_LEVEL")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Write the JSON result to this file instead of stdout")
}

// setup loads config, the logger and a signal-aware context.
func setup(cmd *cobra.Command) (context.Context, context.CancelFunc, *common.Config, *slog.Logger) {
	cfg := common.LoadConfig()
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}
	logger := common.NewLogger(cfg.Log, os.Stderr)
	slog.SetDefault(logger)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return ctx, stop, cfg, logger
}

func buildApp(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*app.App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("setup: %w", err)
	}
	return a, nil
}

// writeJSON prints v to --output or stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	var w io.Writer = cmd.OutOrStdout()
	if path, _ := cmd.Flags().GetString("output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
