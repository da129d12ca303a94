package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/clinic-menu-ocr/internal/async"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/ingest"
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/pipeline"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir...]",
	Short: "Process menu files as they appear in watched folders",
	Long: `Watch runs each new or updated menu file as its own batch. Results are
written under OUTPUT_DIR like any other batch.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().Bool("initial-scan", false, "Also process files already present")
	watchCmd.Flags().Duration("debounce", 2*time.Second, "Wait for writes to settle before processing")
	watchCmd.Flags().Int("workers", 2, "Batches processed in parallel")
	watchCmd.Flags().Bool("forward", false, "Forward each CSV to BULK_IMPORT_URL")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop, cfg, logger := setup(cmd)
	defer stop()

	initial, _ := cmd.Flags().GetBool("initial-scan")
	debounce, _ := cmd.Flags().GetDuration("debounce")
	workers, _ := cmd.Flags().GetInt("workers")
	forward, _ := cmd.Flags().GetBool("forward")

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	queue := async.NewProcessorQueue(a.Processor, logger,
		async.WithWorkers(workers),
		async.WithRunOptions(pipeline.RunOptions{Forward: forward}),
	)

	events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       args,
		InitialScan: initial,
		Debounce:    debounce,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	logger.Info("watching for menu files", "roots", args)

	for {
		select {
		case path, ok := <-events:
			if !ok {
				events = nil
				break
			}
			if err := queue.Enqueue(ctx, async.Job{Paths: []string{path}}); err != nil {
				logger.Warn("enqueue failed", "path", path, "error", err)
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				break
			}
			logger.Warn("watch error", "error", err)
		}
		if events == nil && errs == nil {
			break
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	queue.Shutdown(shutdownCtx)
	return nil
}
