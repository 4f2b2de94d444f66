// Package cli implements the balbo command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/maauso/balbo/internal/config"
)

// RootCmd returns the balbo command tree.
func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "balbo",
		Short:         "Generate images and videos from a text prompt through a workflow endpoint",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		ServeCmd(),
		GenerateCmd(),
		ClassifyCmd(),
	)

	return root
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := RootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// loadConfig loads configuration and builds a logger writing to w.
func loadConfig(w io.Writer) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, cfg.NewLoggerTo(w), nil
}

// lockedWriter serializes writes from the timeline goroutine and the command.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
