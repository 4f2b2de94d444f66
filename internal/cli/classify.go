package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maauso/balbo/internal/media"
)

// ClassifyCmd prints the media kind of each URL.
func ClassifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <url>...",
		Short: "Print whether each URL would be displayed as an image or a video",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, url := range args {
				if _, err := fmt.Fprintf(out, "%s\t%s\n", media.Classify(url), url); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
