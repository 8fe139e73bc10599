// Package crawl implements the crawl command for running a crawler once.
package crawl

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/golibrary/cmd/common"
)

// Command returns the crawl command.
func Command(cfgFile *string, debug *bool) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "crawl <crawler-id>",
		Short: "Run a crawler once",
		Long: `Run the given crawler immediately. The run is refused when another
run of the same crawler is still active.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := common.Setup(*cfgFile, *debug)
			if err != nil {
				return err
			}
			defer deps.Close()

			var runBy *string
			if userID != "" {
				runBy = &userID
			}

			result, err := deps.Runner.Run(cmd.Context(), args[0], false, runBy)
			if err != nil {
				return fmt.Errorf("crawl failed: %w", err)
			}

			fmt.Printf("run %s finished: %d crawled, %d omitted, %d errored\n",
				result.RunID, result.FilesCrawled, result.FilesOmitted, result.FilesErrored)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user ID to attribute the run to")
	return cmd
}
