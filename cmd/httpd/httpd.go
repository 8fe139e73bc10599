// Package httpd provides the admin HTTP server command.
package httpd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/golibrary/cmd/common"
	"github.com/jonesrussell/golibrary/internal/api"
)

const shutdownTimeout = 30 * time.Second

// Command returns the httpd command.
func Command(cfgFile *string, debug *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "httpd",
		Short: "Run the admin HTTP server",
		Long:  "Serve the admin API: crawl triggers, run history, and enrichment queue operations.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := common.Setup(*cfgFile, *debug)
			if err != nil {
				return err
			}
			defer deps.Close()

			router := api.SetupRouter(deps.Logger, deps.Runner, deps.Enrich, deps.Store)
			server := api.NewServer(&deps.Config.Server, router)

			errChan := make(chan error, 1)
			go func() {
				deps.Logger.Info("Starting HTTP server", "addr", server.Addr)
				if serveErr := server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
					errChan <- serveErr
				}
			}()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

			select {
			case serveErr := <-errChan:
				deps.Logger.Error("Server error", "error", serveErr)
				return fmt.Errorf("server error: %w", serveErr)
			case sig := <-sigChan:
				deps.Logger.Info("Shutdown signal received", "signal", sig.String())
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("failed to stop server: %w", err)
			}
			deps.Logger.Info("Server stopped")
			return nil
		},
	}
}
