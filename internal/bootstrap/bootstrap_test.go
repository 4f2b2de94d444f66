package bootstrap

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/balbo/internal/config"
	"github.com/maauso/balbo/internal/progress"
	"github.com/maauso/balbo/internal/studio"
	"github.com/maauso/balbo/internal/workflow"
)

func quickStages() studio.Option {
	return studio.WithStages([]progress.Stage{{Label: "Initializing", Duration: time.Millisecond}})
}

func TestNewDependencies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success":true}`)
	}))
	defer srv.Close()

	cfg := &config.Config{
		Port:           8080,
		WorkflowURL:    srv.URL,
		PlaceholderURL: "https://example.com/fallback.mp4",
		MetricsEnabled: true,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	deps, err := NewDependencies(cfg, logger, quickStages())
	require.NoError(t, err)
	defer deps.Close()

	require.NotNil(t, deps.Orchestrator)
	require.NotNil(t, deps.Metrics)

	cycle, err := deps.Orchestrator.Submit(context.Background(), studio.Input{Prompt: "sunrise"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s, err := deps.Orchestrator.Wait(ctx, cycle)
	require.NoError(t, err)

	assert.Equal(t, studio.PhaseResultReady, s.Phase)
	assert.Equal(t, "https://example.com/fallback.mp4", s.MediaURL, "configured placeholder is used")
	assert.True(t, s.Placeholder)
}

func TestNewDependencies_MetricsDisabled(t *testing.T) {
	cfg := &config.Config{Port: 8080, WorkflowURL: "https://hooks.example.com"}

	deps, err := NewDependencies(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer deps.Close()

	assert.Nil(t, deps.Metrics)
}

func TestNewDependencies_WorkflowURLMissingWarns(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	deps, err := NewDependencies(&config.Config{Port: 8080}, logger, quickStages())
	require.NoError(t, err)
	defer deps.Close()

	assert.Contains(t, buf.String(), "workflow endpoint not configured")

	cycle, err := deps.Orchestrator.Submit(context.Background(), studio.Input{Prompt: "sunrise"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s, err := deps.Orchestrator.Wait(ctx, cycle)
	require.NoError(t, err)
	require.NotNil(t, s.Failure)
	assert.Equal(t, workflow.KindConfiguration, s.Failure.Kind)
}

func TestNewDependencies_InvalidConfig(t *testing.T) {
	_, err := NewDependencies(&config.Config{Port: 0, WorkflowURL: "https://hooks.example.com"}, slog.Default())
	assert.ErrorIs(t, err, config.ErrInvalidPort)
}

func TestNewDependencies_TracingExportsWorkflowSpans(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"imageUrl":"https://cdn.example.com/a.png"}`)
	}))
	defer srv.Close()

	var spans bytes.Buffer
	prev := TraceOutput
	TraceOutput = &spans
	t.Cleanup(func() { TraceOutput = prev })

	cfg := &config.Config{Port: 8080, WorkflowURL: srv.URL, TracingEnabled: true}
	deps, err := NewDependencies(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), quickStages())
	require.NoError(t, err)
	require.NotNil(t, deps.TracerProvider)

	cycle, err := deps.Orchestrator.Submit(context.Background(), studio.Input{Prompt: "sunrise"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = deps.Orchestrator.Wait(ctx, cycle)
	require.NoError(t, err)

	// Close flushes the batcher.
	deps.Close()

	assert.Contains(t, spans.String(), `"Name":"workflow.send"`)
	assert.Contains(t, spans.String(), `"Value":"success"`)
}

func TestNewDependencies_TracingDisabled(t *testing.T) {
	cfg := &config.Config{Port: 8080, WorkflowURL: "https://hooks.example.com"}

	deps, err := NewDependencies(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer deps.Close()

	assert.Nil(t, deps.TracerProvider)
}
