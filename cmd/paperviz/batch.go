// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paperviz/internal/batch"
	"github.com/pdiddy/paperviz/internal/generate"
	"github.com/pdiddy/paperviz/internal/metrics"
	"github.com/pdiddy/paperviz/internal/request"
)

var batchCmd = &cobra.Command{
	Use:   "batch <manifest.yaml>",
	Short: "Run the generations listed in a manifest",
	Long: `Batch reads a YAML manifest of jobs, runs them concurrently on a bounded
worker pool, and writes one document per successful job to the output
directory as <name><ext>. Failed jobs are reported and do not stop the
others. Relative file paths in the manifest resolve against the manifest's
directory.

With --metrics-file the run's Prometheus metrics are written in text
exposition format when the batch finishes.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func runBatch(cmd *cobra.Command, args []string) error {
	formatStr, _ := cmd.Flags().GetString("format")
	metricsFile, _ := cmd.Flags().GetString("metrics-file")
	noArchive, _ := cmd.Flags().GetBool("no-archive")

	format, err := outputFormat(formatStr, "")
	if err != nil {
		return err
	}

	manifestPath := args[0]
	manifest, err := batch.LoadManifest(manifestPath)
	if err != nil {
		return err
	}
	jobs, err := manifest.Jobs(filepath.Dir(manifestPath))
	if err != nil {
		return err
	}

	cfg := loadConfig()
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	service, err := newService(ctx, cfg, logger)
	if err != nil {
		return err
	}
	reg := prometheus.NewRegistry()
	gen := generate.New(service,
		generate.WithLogger(logger),
		generate.WithBuilder(request.NewBuilder(cfg.Generation)),
		generate.WithObserver(metrics.New(reg)))

	if err := os.MkdirAll(cfg.Batch.OutputDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	models := cfg.Generation.WithDefaults()
	runner := batch.NewRunner(gen, cfg.Batch.Parallelism, logger)
	fmt.Fprintf(os.Stderr, "Running %d jobs (parallelism %d)\n", len(jobs), cfg.Batch.Parallelism)

	start := time.Now()
	_, sum, err := runner.Run(ctx, jobs, func(res batch.Result) {
		if cfg.Archive.Enabled && !noArchive {
			model := models.FastModel
			if res.Job.Request.UseReasoning {
				model = models.ReasoningModel
			}
			archiveGeneration(logger, cfg.Archive, res.Job.Request, model, res.Document, res.Err, res.Elapsed)
		}
		if res.Err != nil {
			fmt.Fprintf(os.Stderr, "  FAIL  %-24s %s: %v\n", res.Job.Name, res.Outcome(), res.Err)
			return
		}
		path := filepath.Join(cfg.Batch.OutputDir, res.Job.Name+format.Extension())
		if err := writeDocument(path, res.Document, format); err != nil {
			fmt.Fprintf(os.Stderr, "  FAIL  %-24s %v\n", res.Job.Name, err)
			return
		}
		fmt.Fprintf(os.Stderr, "  ok    %-24s %s (%s)\n", res.Job.Name, path, res.Elapsed.Round(time.Millisecond))
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "\n%d succeeded, %d failed in %s\n",
		sum.Succeeded, sum.Failed, time.Since(start).Round(time.Millisecond))

	if metricsFile != "" {
		if err := prometheus.WriteToTextfile(metricsFile, reg); err != nil {
			return fmt.Errorf("writing metrics: %w", err)
		}
	}
	if sum.Failed > 0 {
		return fmt.Errorf("%d of %d jobs failed", sum.Failed, len(jobs))
	}
	return nil
}

func init() {
	batchCmd.Flags().Int("parallelism", 4, "number of concurrent generations")
	batchCmd.Flags().String("output-dir", "output", "directory for generated documents")
	batchCmd.Flags().String("format", "json", "output format: json, yaml, markdown, html, pdf")
	batchCmd.Flags().String("metrics-file", "", "write Prometheus metrics to this file when done")
	batchCmd.Flags().Bool("no-archive", false, "do not record these generations in the archive")

	_ = viper.BindPFlag("batch.parallelism", batchCmd.Flags().Lookup("parallelism"))
	_ = viper.BindPFlag("batch.output_dir", batchCmd.Flags().Lookup("output-dir"))

	rootCmd.AddCommand(batchCmd)
}
