// Package bootstrap wires the workflow client, metrics and orchestrator
// shared by the HTTP server and the CLI.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/maauso/balbo/internal/config"
	"github.com/maauso/balbo/internal/metrics"
	"github.com/maauso/balbo/internal/studio"
	"github.com/maauso/balbo/internal/tracing"
	"github.com/maauso/balbo/internal/workflow"
)

// TraceOutput receives exported spans when tracing is enabled.
var TraceOutput io.Writer = os.Stderr

// Dependencies holds all initialized dependencies.
type Dependencies struct {
	Orchestrator *studio.Orchestrator
	// Metrics is nil when metrics are disabled.
	Metrics *metrics.Recorder
	// TracerProvider is nil when tracing is disabled.
	TracerProvider *sdktrace.TracerProvider
}

// Close stops the orchestrator and flushes pending spans.
func (d *Dependencies) Close() {
	if d.Orchestrator != nil {
		d.Orchestrator.Close()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tracing.Shutdown(ctx, d.TracerProvider); err != nil {
		slog.Warn("tracer shutdown failed", slog.String("error", err.Error()))
	}
}

// NewDependencies creates and initializes all dependencies for the application.
// Extra orchestrator options are applied after the configured ones.
func NewDependencies(cfg *config.Config, logger *slog.Logger, opts ...studio.Option) (*Dependencies, error) {
	if err := cfg.Validate(); err != nil {
		if !errors.Is(err, config.ErrWorkflowURLRequired) {
			return nil, fmt.Errorf("validate config: %w", err)
		}
		// Submissions fail individually until WORKFLOW_URL is set.
		logger.Warn("workflow endpoint not configured",
			slog.String("hint", "set WORKFLOW_URL in your environment or .env file"),
		)
	}

	deps := &Dependencies{}

	clientOpts := []workflow.ClientOption{workflow.WithLogger(logger)}
	if cfg.WorkflowTimeout > 0 {
		clientOpts = append(clientOpts, workflow.WithTimeout(cfg.WorkflowTimeout))
	}
	if cfg.TracingEnabled {
		tp, err := tracing.NewProvider(TraceOutput)
		if err != nil {
			return nil, fmt.Errorf("initialize tracing: %w", err)
		}
		otel.SetTracerProvider(tp)
		deps.TracerProvider = tp
		clientOpts = append(clientOpts, workflow.WithTracerProvider(tp))
		logger.Info("tracing enabled")
	}
	client := workflow.NewClient(cfg.WorkflowURL, clientOpts...)

	orchOpts := []studio.Option{studio.WithPlaceholderURL(cfg.PlaceholderURL)}
	if cfg.MetricsEnabled {
		deps.Metrics = metrics.New()
		orchOpts = append(orchOpts, studio.WithObserver(deps.Metrics))
		logger.Info("metrics enabled")
	}
	orchOpts = append(orchOpts, opts...)

	deps.Orchestrator = studio.NewOrchestrator(client, logger, orchOpts...)

	logger.Info("workflow client configured",
		slog.Bool("endpoint_set", client.Configured()),
		slog.Duration("timeout", cfg.WorkflowTimeout),
	)

	return deps, nil
}
