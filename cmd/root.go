// Package cmd implements the golibrary command-line interface.
package cmd

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/golibrary/cmd/crawl"
	"github.com/jonesrussell/golibrary/cmd/enrich"
	"github.com/jonesrussell/golibrary/cmd/httpd"
	cmdscheduler "github.com/jonesrussell/golibrary/cmd/scheduler"
	"github.com/jonesrussell/golibrary/cmd/tasks"
)

var (
	// cfgFile holds the path to the configuration file.
	cfgFile string

	// debug enables debug logging for all commands.
	debug bool

	rootCmd = &cobra.Command{
		Use:   "golibrary",
		Short: "Document library ingestion and enrichment",
		Long: `golibrary crawls files from remote sources (web, SMB shares,
SharePoint, REST APIs) into libraries and enriches them with LLM-computed
list fields.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command.
func Execute() error {
	// Load .env early so config env overrides are visible.
	_ = godotenv.Load()

	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("golibrary version %s\n", "1.0.0")
		},
	})

	rootCmd.AddCommand(crawl.Command(&cfgFile, &debug))
	rootCmd.AddCommand(enrich.Command(&cfgFile, &debug))
	rootCmd.AddCommand(tasks.Command(&cfgFile, &debug))
	rootCmd.AddCommand(cmdscheduler.Command(&cfgFile, &debug))
	rootCmd.AddCommand(httpd.Command(&cfgFile, &debug))
}
