package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"sales-pipeline/internal/api"
	"sales-pipeline/internal/api/handler"
	"sales-pipeline/internal/config"
	"sales-pipeline/internal/generator"
	"sales-pipeline/internal/logger"
	"sales-pipeline/internal/pipeline"
	"sales-pipeline/internal/store"
	"sales-pipeline/pkg/router"
)

const version = "1.0.0"

var (
	cfgFile  string
	logLevel string
)

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	return cfg, nil
}

var rootCmd = &cobra.Command{
	Use:   "salespipe",
	Short: "Sales CSV ingestion pipeline",
	Long: `salespipe watches an input directory for sales transaction CSVs,
validates and aggregates their rows into running totals, routes each file to
a processed or error area based on its row-error count, and appends
per-cycle reports for external analytics.`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the ingestion loop in the foreground",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := logger.New(cfg.LogLevel)

		if err := store.InitDB(cfg.DatabasePath); err != nil {
			return fmt.Errorf("failed to open tracking database: %w", err)
		}
		defer store.CloseDB()

		runner := pipeline.NewRunner(cfg, log)
		if _, err := runner.Start(); err != nil {
			return err
		}

		waitForInterrupt()
		runner.Stop()
		runner.Wait()
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the control API (the loop is started via the API)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := logger.New(cfg.LogLevel)

		if err := store.InitDB(cfg.DatabasePath); err != nil {
			return fmt.Errorf("failed to open tracking database: %w", err)
		}
		defer store.CloseDB()

		h := &handler.IngestionHandler{
			Cfg:       cfg,
			Runner:    pipeline.NewRunner(cfg, log),
			Generator: generator.NewGenerator(cfg, log),
		}

		r := router.New(log)
		api.RegisterRoutes(r, h)
		return r.Start(cfg.ListenAddr)
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate synthetic sales CSVs into the input directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := logger.New(cfg.LogLevel)

		gen := generator.NewGenerator(cfg, log)
		if err := gen.Start(); err != nil {
			return err
		}

		waitForInterrupt()
		gen.Stop()
		gen.Wait()
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("salespipe %s\n", version)
	},
}

func waitForInterrupt() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "Path to the configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level (debug, info, warn, error)")
	rootCmd.AddCommand(runCmd, serveCmd, generateCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
