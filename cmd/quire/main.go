package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/quire/internal/common"
	"github.com/ternarybob/quire/internal/interfaces"
	"github.com/ternarybob/quire/internal/services/extract"
	"github.com/ternarybob/quire/internal/services/ocr/tesseract"
	"github.com/ternarybob/quire/internal/services/preprocess"
	"github.com/ternarybob/quire/internal/services/progress"
	"github.com/ternarybob/quire/internal/services/rasterize"
	"github.com/ternarybob/quire/internal/storage"
)

// Exit codes: bad input is the caller's to fix, anything else is a failure
const (
	exitFailure  = 1
	exitBadInput = 2
)

var (
	// Command-line flags
	configFiles []string
	flags       common.FlagOverrides

	// Global state
	config *common.Config
	logger arbor.ILogger
)

var rootCmd = &cobra.Command{
	Use:           "quire",
	Short:         "Index-driven OCR corpus builder",
	Long:          `Quire turns scanned PDFs and text documents listed in an index spreadsheet into a directory of normalized, confidence-annotated articles.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == versionCmd.Name() {
			return nil
		}
		return setup()
	},
}

func init() {
	rootCmd.PersistentFlags().StringArrayVarP(&configFiles, "config", "c", nil, "Configuration file path (repeatable, later files override earlier ones)")
	rootCmd.PersistentFlags().StringVar(&flags.Root, "root", "", "Root directory holding resource/, data/ and temp/ (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flags.Index, "index", "", "Index spreadsheet (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flags.Fallback, "fallback", "", "Per-source parameter table (overrides config)")
	rootCmd.PersistentFlags().IntVarP(&flags.Workers, "workers", "w", 0, "Worker count (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flags.LogLevel, "log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(preprocessCmd, loadCmd, reportCmd, scheduleCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if logger == nil {
			logger = common.GetLogger()
		}
		logger.Error().Err(err).Msg("Command failed")
		if common.IsBadInput(err) {
			os.Exit(exitBadInput)
		}
		os.Exit(exitFailure)
	}
}

// setup runs the startup sequence: config (defaults -> files -> env), CLI overrides,
// validation, logger, banner.
func setup() error {
	if len(configFiles) == 0 {
		if _, err := os.Stat("quire.toml"); err == nil {
			configFiles = append(configFiles, "quire.toml")
		} else if _, err := os.Stat("deployments/local/quire.toml"); err == nil {
			configFiles = append(configFiles, "deployments/local/quire.toml")
		}
	}

	var err error
	config, err = common.LoadFromFiles(configFiles...)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	common.ApplyFlagOverrides(config, flags)

	if err := config.Validate(); err != nil {
		return fmt.Errorf("%w: %v", common.ErrBadInput, err)
	}

	logger = common.InitLogger(config)
	common.PrintBanner(config, logger)

	logger.Debug().
		Strs("config_files", configFiles).
		Str("log_level", config.Logging.Level).
		Strs("log_output", config.Logging.Output).
		Bool("ledger", config.Storage.Badger.Enabled).
		Msg("Resolved configuration")

	return nil
}

// signalContext is cancelled on Ctrl+C or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// newObserver builds the progress observer from [progress]
func newObserver() interfaces.ProgressObserver {
	var interval time.Duration
	if config.Progress.TickInterval != "" {
		d, err := time.ParseDuration(config.Progress.TickInterval)
		if err != nil {
			logger.Warn().Err(err).Str("tick_interval", config.Progress.TickInterval).Msg("Invalid tick interval, logging every tick")
		} else {
			interval = d
		}
	}
	return progress.NewLogObserver(logger, interval)
}

// newPreprocessor wires the production capabilities into a preprocessing service.
// The returned run storage is nil when the ledger is disabled.
func newPreprocessor() (*preprocess.Service, interfaces.RunStorage, error) {
	rasterizer, err := rasterize.New(config.Raster, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", common.ErrBadInput, err)
	}

	runs, err := storage.NewRunStorage(logger, config)
	if err != nil {
		return nil, nil, err
	}

	svc := preprocess.NewService(config, preprocess.Dependencies{
		Rasterizer:  rasterizer,
		PageCounter: rasterize.PDFPageCounter{},
		Recognizers: tesseract.Factory(config.OCR),
		Extractor:   extract.NewService(logger),
		Runs:        runs,
	}, logger)

	return svc, runs, nil
}

func closeRuns(runs interfaces.RunStorage) {
	if runs == nil {
		return
	}
	if err := runs.Close(); err != nil {
		logger.Warn().Err(err).Msg("Failed to close run ledger")
	}
}

func isCancelled(err error) bool {
	return errors.Is(err, context.Canceled)
}
