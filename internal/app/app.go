// Package app wires configuration, storage and analysis providers into a
// running tracker.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"

	"github.com/saadjs/kcal-snap/internal/config"
	"github.com/saadjs/kcal-snap/internal/db"
	"github.com/saadjs/kcal-snap/internal/provider/gemini"
	"github.com/saadjs/kcal-snap/internal/provider/openfoodfacts"
	"github.com/saadjs/kcal-snap/internal/provider/rekognition"
	"github.com/saadjs/kcal-snap/internal/provider/usda"
	"github.com/saadjs/kcal-snap/internal/service"
)

type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Tracker *service.Tracker

	db *sql.DB
}

// NewLogger returns a JSON logger at level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// New opens the session database and builds the tracker described by cfg.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	sqldb, err := db.OpenMemory()
	if err != nil {
		return nil, err
	}

	analyzer, err := NewAnalyzer(ctx, cfg, logger)
	if err != nil {
		_ = sqldb.Close()
		return nil, err
	}
	tracker := service.NewTracker(sqldb, analyzer, service.TrackerOptions{
		TDEE:             cfg.Nutrition.TDEE,
		Locale:           cfg.App.LocaleTag(),
		MaxImageBytes:    cfg.Analysis.MaxImageBytes,
		Logger:           logger,
		MaxDrafts:        cfg.Drafts.MaxOpen,
		DraftIdleTimeout: cfg.Drafts.IdleTimeout,
	})
	if cfg.Weights.SeedSample {
		if err := tracker.SeedSampleWeights(); err != nil {
			_ = sqldb.Close()
			return nil, err
		}
	}

	logger.Info("tracker ready",
		slog.String("locale", string(cfg.App.LocaleTag())),
		slog.Float64("tdee", cfg.Nutrition.TDEE),
		slog.Any("providers", analyzer.Providers()),
		slog.Bool("seed_sample", cfg.Weights.SeedSample))

	return &App{Config: cfg, Logger: logger, Tracker: tracker, db: sqldb}, nil
}

func (a *App) Close() error {
	return a.db.Close()
}

// NewAnalyzer builds the provider chain in configured order.
func NewAnalyzer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*service.ImageAnalyzer, error) {
	providers := make([]service.ImageProvider, 0, len(cfg.Analysis.Providers))
	for _, name := range cfg.Analysis.Providers {
		switch name {
		case config.ProviderGemini:
			providers = append(providers, service.NewGeminiProvider(&gemini.Client{
				APIKey:  cfg.Analysis.Gemini.APIKey,
				Model:   cfg.Analysis.Gemini.Model,
				BaseURL: cfg.Analysis.Gemini.BaseURL,
			}))
		case config.ProviderRekognition:
			rc := cfg.Analysis.Rekognition
			client, err := rekognition.New(ctx, rc.Region, rc.MaxLabels, rc.MinConfidence)
			if err != nil {
				return nil, fmt.Errorf("init rekognition provider: %w", err)
			}
			providers = append(providers, service.NewRekognitionProvider(client, newNutrientLookup(cfg.Analysis.Nutrients, logger)))
		default:
			return nil, fmt.Errorf("unsupported analysis provider %q", name)
		}
	}
	return service.NewImageAnalyzer(providers, service.AnalyzerOptions{
		Timeout: cfg.Analysis.Timeout,
		Locale:  cfg.App.LocaleTag(),
		Logger:  logger,
	}), nil
}

// newNutrientLookup returns nil when no source is usable. USDA is skipped
// without an API key.
func newNutrientLookup(cfg config.NutrientsConfig, logger *slog.Logger) service.NutrientLookup {
	var lookups service.NutrientLookups
	for _, name := range cfg.Sources {
		switch name {
		case config.NutrientSourceUSDA:
			if cfg.USDA.APIKey == "" {
				logger.Warn("usda nutrient source has no api key; skipping")
				continue
			}
			lookups = append(lookups, service.NewUSDALookup(&usda.Client{APIKey: cfg.USDA.APIKey, BaseURL: cfg.USDA.BaseURL}))
		case config.NutrientSourceOpenFoodFacts:
			lookups = append(lookups, service.NewOpenFoodFactsLookup(&openfoodfacts.Client{BaseURL: cfg.OpenFoodFacts.BaseURL}))
		}
	}
	if len(lookups) == 0 {
		return nil
	}
	return lookups
}
