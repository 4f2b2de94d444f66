package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/maauso/balbo/internal/bootstrap"
	"github.com/maauso/balbo/internal/progress"
	"github.com/maauso/balbo/internal/studio"
)

// GenerateCmd runs one or more generation cycles and prints their results.
func GenerateCmd() *cobra.Command {
	return newGenerateCmd()
}

func newGenerateCmd(extra ...studio.Option) *cobra.Command {
	var (
		prompt         string
		negativePrompt string
		again          int
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Send a prompt to the workflow and print the resulting media URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if again < 0 {
				return errors.New("--again must not be negative")
			}

			cfg, logger, err := loadConfig(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			out := &lockedWriter{w: cmd.OutOrStdout()}
			opts := []studio.Option{
				studio.WithStageListener(func(cycle uint64, _ int, stage progress.Stage) {
					fmt.Fprintf(out, "[%d] %s...\n", cycle, stage.Label)
				}),
			}
			deps, err := bootstrap.NewDependencies(cfg, logger, append(opts, extra...)...)
			if err != nil {
				return fmt.Errorf("initialize dependencies: %w", err)
			}
			defer deps.Close()

			orch := deps.Orchestrator
			runs := again + 1
			failed := 0

			for i := 0; i < runs; i++ {
				var cycle uint64
				if i == 0 {
					cycle, err = orch.Submit(cmd.Context(), studio.Input{Prompt: prompt, NegativePrompt: negativePrompt})
				} else {
					cycle, err = orch.Rerun(cmd.Context())
				}
				if err != nil {
					return err
				}

				state, err := orch.Wait(cmd.Context(), cycle)
				if err != nil {
					return fmt.Errorf("wait for cycle %d: %w", cycle, err)
				}

				if !printResult(out, state) {
					failed++
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d generations failed", failed, runs)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "what to generate")
	cmd.Flags().StringVarP(&negativePrompt, "negative-prompt", "n", "", "what to avoid")
	cmd.Flags().IntVar(&again, "again", 0, "run the same prompt this many more times")
	_ = cmd.MarkFlagRequired("prompt")

	return cmd
}

// printResult writes the outcome of a cycle and reports whether it succeeded.
func printResult(w io.Writer, s studio.State) bool {
	if s.Phase == studio.PhaseResultReady {
		fmt.Fprintf(w, "%s\n%s\n", s.Caption(), s.MediaURL)
		if s.Placeholder {
			fmt.Fprintln(w, "(placeholder: the workflow returned no media URL)")
		}
		if s.Message != "" {
			fmt.Fprintln(w, s.Message)
		}
		return true
	}

	if s.Failure != nil {
		fmt.Fprintf(w, "Workflow failed (%s): %s\n", s.Failure.Kind, s.Failure.Reason)
	}
	return false
}
