// Package scheduler implements the scheduler command running cron-driven
// crawls.
package scheduler

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/golibrary/cmd/common"
	"github.com/jonesrussell/golibrary/internal/coordination"
	"github.com/jonesrussell/golibrary/internal/scheduler"
)

// Command returns the scheduler command.
func Command(cfgFile *string, debug *bool) *cobra.Command {
	var singleInstance bool

	cmd := &cobra.Command{
		Use:   "scheduler",
		Short: "Run scheduled crawls",
		Long: `Run crawlers on their stored cron schedules until interrupted.
Multiple scheduler instances may run against one database; leader election
over Redis ensures each schedule fires once.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := common.Setup(*cfgFile, *debug)
			if err != nil {
				return err
			}
			defer deps.Close()

			ctx := cmd.Context()

			var leader scheduler.Leader
			if !singleInstance {
				election := coordination.NewSchedulerLeaderElection(deps.Redis, deps.Logger)
				election.Start(ctx)
				defer election.Stop(context.Background())
				leader = election
			}

			sched := scheduler.New(deps.Store, deps.Runner, leader, deps.Logger)
			if err := sched.Start(ctx); err != nil {
				return err
			}

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			select {
			case <-stop:
			case <-ctx.Done():
			}

			deps.Logger.Info("shutting down scheduler")
			sched.Stop()
			return nil
		},
	}

	cmd.Flags().BoolVar(&singleInstance, "single-instance", false,
		"skip leader election (single scheduler deployment)")
	return cmd
}
