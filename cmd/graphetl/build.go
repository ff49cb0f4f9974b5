package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"graphetl/internal/config"
	"graphetl/internal/logging"
	"graphetl/internal/metrics"
	"graphetl/internal/metrics/datadog"
	"graphetl/internal/metrics/prompush"
	"graphetl/internal/pipeline"
	"graphetl/internal/storage"
	_ "graphetl/internal/storage/all"
)

func newBuildCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	cfg := config.Default()
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Write one dataset per node label and relationship type.",
		Long: `build scans --input for node and relationship files, writes every node
table first, then every relationship table with its src and dst columns
cast to the identifier types of the node tables they reference.

Files with unrecognized headers or unknown endpoint labels are skipped and
listed in the report. Tables that fail data-integrity checks abort the run
unless --on-integrity-error=skip.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return usageError{err}
			}
			return runBuild(cmd.Context(), cfg, stdout, stderr)
		},
	}
	cfg.BindFlags(cmd.Flags())
	return cmd
}

func runBuild(ctx context.Context, cfg config.Config, stdout, stderr io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat, stderr)
	ctx = logging.WithLogger(ctx, log)

	closeMetrics := setupMetrics(ctx, cfg, log)
	defer closeMetrics()

	w, err := storage.New(ctx, cfg.Storage())
	if err != nil {
		return err
	}
	defer w.Close()
	log.Info("build starting", "input", cfg.Input, "format", cfg.Format, "location", w.Location(),
		"on_integrity_error", cfg.OnIntegrityError)

	policy := pipeline.PolicyAbort
	if cfg.SkipIntegrityErrors() {
		policy = pipeline.PolicySkip
	}
	rep, err := pipeline.Run(ctx, pipeline.Options{
		Input:      cfg.Input,
		Writer:     w,
		Delimiter:  cfg.Comma(),
		NullValues: cfg.NullValues,
		Policy:     policy,
		Logger:     log,
		OnState: func(s pipeline.State) {
			log.Debug("state", "state", s.String())
		},
	})
	if rep != nil {
		rep.Render(stdout)
	}
	return err
}

// setupMetrics installs the configured backend and returns the function that
// delivers its last observations. A backend that fails to start is logged
// and metrics stay disabled.
func setupMetrics(ctx context.Context, cfg config.Config, log *slog.Logger) func() {
	switch cfg.MetricsBackend {
	case config.MetricsPushgateway:
		b, err := prompush.NewBackend(cfg.Job, cfg.PushgatewayURL)
		if err != nil {
			log.Warn("metrics: failed to init pushgateway backend; using nop", "err", err)
			return func() {}
		}
		log.Debug("metrics enabled", "backend", cfg.MetricsBackend, "url", cfg.PushgatewayURL, "job", cfg.Job)
		metrics.SetBackend(b)
		return func() {
			if err := metrics.Flush(); err != nil {
				log.Warn("metrics: push failed", "err", err)
			}
			metrics.SetBackend(nil)
		}

	case config.MetricsDatadog:
		tags := datadog.ParseTagsCSV(cfg.MetricsTags)
		b, err := datadog.NewBackend(ctx, datadog.Options{JobName: cfg.Job, Tags: tags})
		if err != nil {
			log.Warn("metrics: failed to init datadog backend; using nop", "err", err)
			return func() {}
		}
		log.Debug("metrics enabled", "backend", cfg.MetricsBackend, "job", cfg.Job, "tags", tags)
		metrics.SetBackend(b)
		return func() {
			// Close stops the flush loop and submits the tail.
			if err := b.Close(); err != nil {
				log.Warn("metrics: datadog close/flush failed", "err", err)
			}
			metrics.SetBackend(nil)
		}

	default:
		return func() {}
	}
}
