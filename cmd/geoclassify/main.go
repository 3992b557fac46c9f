package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bryanwahyu/geo-classifier/internal/application"
	"github.com/bryanwahyu/geo-classifier/internal/application/analysis"
	"github.com/bryanwahyu/geo-classifier/internal/config"
	"github.com/bryanwahyu/geo-classifier/internal/infra/ai"
	"github.com/bryanwahyu/geo-classifier/internal/infra/document"
	"github.com/bryanwahyu/geo-classifier/internal/logger"
)

var (
	// Global flags
	configPath string
	verbose    bool

	log *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "geoclassify",
	Short: "Identify the geographic areas a piece of text refers to",
	Long: `geoclassify sends text (typed, piped or read from a .txt/.md/.docx/.html
file) to the configured inference provider and prints the geographic scope,
the identified areas, a summary, a confidence level and notes.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := "warn"
		if verbose {
			level = "debug"
		}
		l, err := logger.New(level, "console")
		if err != nil {
			return err
		}
		log = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.yaml (default: $CONFIG_PATH or ./config.yaml when present)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(newAnalyzeCmd(newService))
}

// loadConfig falls back to defaults plus environment when no file exists.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "config.yaml"
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return config.Load("")
		}
	}
	return config.Load(path)
}

func newService() (analyzer, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("config load error: %w", err)
	}
	inference, err := ai.NewInference(cfg)
	if err != nil {
		return nil, err
	}
	return &analysis.Service{
		Inference: inference,
		Provider:  cfg.Inference.Provider,
		Extractor: document.NewExtractor(),
		Clock:     application.SystemClock{},
		Log:       log,
		Timeout:   cfg.Inference.Timeout,
	}, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
