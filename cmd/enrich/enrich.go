// Package enrich implements the enrichment queue commands.
package enrich

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/golibrary/cmd/common"
	"github.com/jonesrussell/golibrary/internal/enrich"
)

// Command returns the enrich command group.
func Command(cfgFile *string, debug *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Manage enrichment task queues",
	}

	cmd.AddCommand(
		newCreateCmd(cfgFile, debug),
		newStopCmd(cfgFile, debug),
		newClearCmd(cfgFile, debug),
	)
	return cmd
}

func newCreateCmd(cfgFile *string, debug *bool) *cobra.Command {
	var (
		listID      string
		fieldID     string
		fileID      string
		userID      string
		onlyMissing bool
		priority    int
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Queue enrichment tasks for a list field",
		Long: `Replace the field's enrichment queue with fresh pending tasks, one
per candidate file. Existing tasks for the field are cleaned up first.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := common.Setup(*cfgFile, *debug)
			if err != nil {
				return err
			}
			defer deps.Close()

			result, err := deps.Enrich.CreateTasks(cmd.Context(), &enrich.CreateTasksRequest{
				ListID:            listID,
				FieldID:           fieldID,
				FileID:            fileID,
				UserID:            userID,
				OnlyMissingValues: onlyMissing,
				Priority:          priority,
			})
			if err != nil {
				return err
			}

			fmt.Printf("created %d tasks, cleaned up %d\n",
				result.CreatedTasksCount, result.CleanedUpTasksCount)
			return nil
		},
	}

	cmd.Flags().StringVar(&listID, "list", "", "list ID (required)")
	cmd.Flags().StringVar(&fieldID, "field", "", "field ID (required)")
	cmd.Flags().StringVar(&fileID, "file", "", "narrow to a single file ID")
	cmd.Flags().StringVar(&userID, "user", "", "requesting user ID (ownership check)")
	cmd.Flags().BoolVar(&onlyMissing, "only-missing", true,
		"queue only files without a usable cached value")
	cmd.Flags().IntVar(&priority, "priority", 0, "task priority")
	_ = cmd.MarkFlagRequired("list")
	_ = cmd.MarkFlagRequired("field")
	return cmd
}

func newStopCmd(cfgFile *string, debug *bool) *cobra.Command {
	var (
		listID  string
		fieldID string
		fileID  string
		userID  string
	)

	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Delete pending enrichment tasks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := common.Setup(*cfgFile, *debug)
			if err != nil {
				return err
			}
			defer deps.Close()

			scope := enrich.TaskScope{ListID: listID, FieldID: fieldID, FileID: fileID}
			deleted, err := deps.Enrich.DeletePendingTasks(cmd.Context(), scope, userID)
			if err != nil {
				return err
			}

			fmt.Printf("deleted %d pending tasks\n", deleted)
			return nil
		},
	}

	cmd.Flags().StringVar(&listID, "list", "", "list ID (required)")
	cmd.Flags().StringVar(&fieldID, "field", "", "narrow to a single field ID")
	cmd.Flags().StringVar(&fileID, "file", "", "narrow to a single file ID")
	cmd.Flags().StringVar(&userID, "user", "", "requesting user ID (ownership check)")
	_ = cmd.MarkFlagRequired("list")
	return cmd
}

func newClearCmd(cfgFile *string, debug *bool) *cobra.Command {
	var (
		listID  string
		fieldID string
		fileID  string
		userID  string
	)

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear cached values and unfinished enrichment tasks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := common.Setup(*cfgFile, *debug)
			if err != nil {
				return err
			}
			defer deps.Close()

			scope := enrich.TaskScope{ListID: listID, FieldID: fieldID, FileID: fileID}
			deleted, cleared, err := deps.Enrich.ClearListEnrichments(cmd.Context(), scope, userID)
			if err != nil {
				return err
			}

			fmt.Printf("deleted %d tasks, cleared %d cached values\n", deleted, cleared)
			return nil
		},
	}

	cmd.Flags().StringVar(&listID, "list", "", "list ID (required)")
	cmd.Flags().StringVar(&fieldID, "field", "", "narrow to a single field ID")
	cmd.Flags().StringVar(&fileID, "file", "", "narrow to a single file ID")
	cmd.Flags().StringVar(&userID, "user", "", "requesting user ID (ownership check)")
	_ = cmd.MarkFlagRequired("list")
	return cmd
}
