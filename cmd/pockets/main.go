package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/poverty-pockets/pockets-backend/internal/config"
	"github.com/poverty-pockets/pockets-backend/internal/logging"
	"github.com/spf13/cobra"
)

var (
	sourcesFile string
	logLevel    string
	sources     config.Sources

	rootCmd = &cobra.Command{
		Use:   "pockets",
		Short: "Offline tools for the poverty pockets map data",
		Long: `pockets joins census tables, classifies the adoption spreadsheet,
computes reports and filters boundary files without running the server.`,
		SilenceUsage:      true,
		PersistentPreRunE: initConfig,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&sourcesFile, "sources", "", "sources YAML file (default: built-in Bay Area sources)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(joinCmd())
	rootCmd.AddCommand(classifyCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(filterGeoJSONCmd())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig(_ *cobra.Command, _ []string) error {
	if _, err := logging.Setup(logLevel, true); err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	s, err := config.LoadSources(sourcesFile)
	if err != nil {
		return err
	}
	sources = s
	return nil
}
