// Package tasks implements commands inspecting processing and enrichment
// task queues.
package tasks

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/golibrary/cmd/common"
	"github.com/jonesrussell/golibrary/internal/status"
)

const defaultListLimit = 50

// Command returns the tasks command group.
func Command(cfgFile *string, debug *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Inspect task queues",
	}

	cmd.AddCommand(
		newListCmd(cfgFile, debug),
		newCountsCmd(cfgFile, debug),
		newEnrichmentCmd(cfgFile, debug),
	)
	return cmd
}

func newListCmd(cfgFile *string, debug *bool) *cobra.Command {
	var (
		statusName string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List content processing tasks by derived status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := common.Setup(*cfgFile, *debug)
			if err != nil {
				return err
			}
			defer deps.Close()

			rows, err := deps.Store.ListByStatus(cmd.Context(),
				status.ProcessingStatus(statusName), limit)
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.AppendHeader(table.Row{"ID", "File", "Created", "Chunks"})
			for _, task := range rows {
				chunks := ""
				if task.ChunksCount != nil {
					chunks = fmt.Sprint(*task.ChunksCount)
				}
				t.AppendRow(table.Row{
					task.ID, task.FileID,
					task.CreatedAt.Format(time.RFC3339), chunks,
				})
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&statusName, "status", string(status.ProcessingPending),
		"derived processing status to filter by")
	cmd.Flags().IntVar(&limit, "limit", defaultListLimit, "maximum rows")
	return cmd
}

func newCountsCmd(cfgFile *string, debug *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "counts",
		Short: "Show content processing task counts per derived status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := common.Setup(*cfgFile, *debug)
			if err != nil {
				return err
			}
			defer deps.Close()

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.AppendHeader(table.Row{"Status", "Tasks"})
			for _, s := range status.ProcessingStatuses {
				if s == status.ProcessingNone {
					continue
				}
				count, err := deps.Store.CountByStatus(cmd.Context(), s)
				if err != nil {
					return err
				}
				t.AppendRow(table.Row{string(s), count})
			}
			t.Render()
			return nil
		},
	}
}

func newEnrichmentCmd(cfgFile *string, debug *bool) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "enrichment <list-id>",
		Short: "List a list's enrichment tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := common.Setup(*cfgFile, *debug)
			if err != nil {
				return err
			}
			defer deps.Close()

			rows, err := deps.Store.ListTasks(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.AppendHeader(table.Row{"ID", "Field", "File", "Status", "Requested"})
			for _, task := range rows {
				t.AppendRow(table.Row{
					task.ID, task.FieldID, task.FileID, task.Status,
					task.RequestedAt.Format(time.RFC3339),
				})
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", defaultListLimit, "maximum rows")
	return cmd
}
