package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fluxofin/dreflow/internal/config"
	"github.com/fluxofin/dreflow/internal/engine"
	"github.com/fluxofin/dreflow/internal/lifecycle"
	"github.com/fluxofin/dreflow/internal/llm"
	"github.com/fluxofin/dreflow/internal/service"
	"github.com/fluxofin/dreflow/internal/storage"
	"github.com/spf13/viper"
)

// initStorage initializes the storage service with proper path expansion.
func initStorage(ctx context.Context) (service.Storage, error) {
	// Get database path from config
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = "$HOME/.local/share/dreflow/dreflow.db"
	}

	// Expand tilde and environment variables
	dbPath = config.ExpandPath(dbPath)

	// Initialize storage
	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	// Run migrations
	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// createLLMClient builds the AI classifier from the ai.* config keys.
// Returns nil when the provider is "none", which disables the AI stage.
func createLLMClient() (llm.Client, error) {
	cfg := llm.Config{
		Provider:    viper.GetString("ai.provider"),
		APIKey:      viper.GetString("ai.api_key"),
		Model:       viper.GetString("ai.model"),
		Temperature: viper.GetFloat64("ai.temperature"),
		MaxTokens:   viper.GetInt("ai.max_tokens"),
	}
	if timeout := viper.GetDuration("ai.timeout"); timeout > 0 {
		cfg.Timeout = timeout
	}

	return llm.NewClient(cfg)
}

// buildEngine wires the categorization engine the same way for every command
// that needs one: shared cache, AI classifier from config, and a rule
// generator for auto-learning.
func buildEngine(store service.Storage) (*engine.Engine, error) {
	classifier, err := createLLMClient()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize AI classifier: %w", err)
	}

	cacheTTL := viper.GetDuration("engine.cache_ttl")
	if cacheTTL <= 0 {
		cacheTTL = 24 * time.Hour
	}

	cache := engine.NewCategoryCache(cacheTTL)
	generator := lifecycle.NewGenerator(store, slog.Default())

	return engine.New(store, cache, classifier, generator, slog.Default()), nil
}

// engineOptions reads waterfall tuning from config, leaving zero values for
// anything unset so the engine applies its defaults.
func engineOptions() engine.Options {
	return engine.Options{
		ConfidenceThreshold: viper.GetFloat64("engine.confidence_threshold"),
		HistoryDays:         viper.GetInt("engine.history_days"),
		AITimeout:           viper.GetDuration("engine.ai_timeout"),
		SkipAI:              viper.GetBool("engine.skip_ai"),
	}
}
