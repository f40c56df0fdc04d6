package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pbaille/journal/internal/classifier"
	"github.com/pbaille/journal/internal/config"
	"github.com/pbaille/journal/internal/insights"
	"github.com/pbaille/journal/internal/logging"
	"github.com/pbaille/journal/internal/store"
	"github.com/pbaille/journal/internal/tagging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const version = "0.1.0"

var (
	configPath string
	dbPath     string
	userID     string
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "journal",
		Short:        "Journal with automatic tagging and insights",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (overrides config)")
	rootCmd.PersistentFlags().StringVarP(&userID, "user", "u", "local", "journal owner")

	rootCmd.AddCommand(addCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(tagCmd())
	rootCmd.AddCommand(insightsCmd())
	rootCmd.AddCommand(streakCmd())
	rootCmd.AddCommand(promptCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(mcpCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app holds the components a command needs
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	store    *store.Store
	insights *insights.Service
	tagger   *tagging.Tagger
}

func newApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	s, err := store.New(cfg.Database.Path, cfg.Database.WAL, cfg.Database.Sync)
	if err != nil {
		return nil, err
	}

	entryClassifier, analyzer, err := buildClassifiers(cfg, logger)
	if err != nil {
		s.Close()
		return nil, err
	}

	svc := insights.NewService(s, analyzer, insights.Options{
		Window:          cfg.Insights.Window,
		RecentWindow:    cfg.Insights.RecentWindow,
		TopThemes:       cfg.Insights.TopThemes,
		Milestone:       cfg.Insights.MilestoneThreshold,
		AnalysisTimeout: cfg.Classifier.Timeout,
	}, logger.Named("insights"))

	tagger := tagging.New(s, entryClassifier, tagging.Options{
		BulkTimeout: cfg.Classifier.BulkTimeout,
	}, logger.Named("tagging"))

	return &app{
		cfg:      cfg,
		logger:   logger,
		store:    s,
		insights: svc,
		tagger:   tagger,
	}, nil
}

func (a *app) Close() {
	a.store.Close()
	_ = a.logger.Sync()
}

// buildClassifiers picks the per-entry classifier and the history analyzer
// for the configured mode. Only remote mode talks to the ML service for the
// history analysis; the other modes aggregate in-process.
func buildClassifiers(cfg *config.Config, logger *zap.Logger) (classifier.EntryClassifier, classifier.HistoryAnalyzer, error) {
	opts := classifier.Options{
		BaseURL:    cfg.Classifier.BaseURL,
		Timeout:    cfg.Classifier.Timeout,
		RateLimit:  cfg.Classifier.RateLimit,
		Burst:      cfg.Classifier.Burst,
		MaxRetries: cfg.Classifier.MaxRetries,
		Logger:     logger.Named("classifier"),
	}

	switch cfg.Classifier.Mode {
	case config.ModeRemote:
		r, err := classifier.NewRemote(opts)
		if err != nil {
			return nil, nil, err
		}
		return r, r, nil

	case config.ModeLocal:
		var entry classifier.EntryClassifier = classifier.NewKeyword()
		if cfg.Classifier.AnthropicAPIKey.IsSet() {
			opts.BaseURL = ""
			a, err := classifier.NewAnthropic(classifier.AnthropicOptions{
				Options: opts,
				APIKey:  cfg.Classifier.AnthropicAPIKey.Value(),
				Model:   cfg.Classifier.Model,
			})
			if err != nil {
				return nil, nil, err
			}
			entry = a
		}
		return entry, insights.NewLocalAnalyzer(entry, cfg.Insights.RecentWindow, time.Local), nil

	default:
		kw := classifier.NewKeyword()
		return kw, insights.NewLocalAnalyzer(kw, cfg.Insights.RecentWindow, time.Local), nil
	}
}

func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

func shortID(id string) string {
	if len(id) < 8 {
		return id
	}
	return id[:8]
}
