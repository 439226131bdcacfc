package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/yangwenmai/careerpilot/internal/acquire"
	"github.com/yangwenmai/careerpilot/internal/backoff"
	"github.com/yangwenmai/careerpilot/internal/cache"
	"github.com/yangwenmai/careerpilot/internal/config"
	"github.com/yangwenmai/careerpilot/internal/engine"
	"github.com/yangwenmai/careerpilot/internal/provider"
	"github.com/yangwenmai/careerpilot/internal/store"
)

// app holds the wired collaborators shared by every command.
type app struct {
	cfg       config.Config
	db        *sql.DB
	store     *store.Store
	browser   *acquire.Browser
	extractor *acquire.Engine
	companies *engine.CompanyCache
	orch      *engine.Orchestrator
}

func newApp(cfg config.Config) (*app, error) {
	db, err := store.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	s, err := store.New(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init store: %w", err)
	}

	a := &app{cfg: cfg, db: db, store: s}

	policy := backoff.Policy{Base: cfg.RetryBaseDelay, Max: cfg.RetryMaxDelay, Jitter: 300 * time.Millisecond}

	variant, err := provider.ParseVariant(cfg.LLMProvider)
	if err != nil {
		db.Close()
		return nil, err
	}
	clientOpts := []provider.ClientOption{
		provider.WithMockMode(cfg.UseMock()),
		provider.WithLimits(provider.Limits{MinLength: cfg.PromptMinLength, MaxLength: cfg.PromptMaxInput}),
	}
	if cfg.OpenAIKey != "" {
		clientOpts = append(clientOpts, provider.WithRemote(provider.NewOpenAIClient(cfg.OpenAIKey,
			provider.WithBaseURL(cfg.OpenAIBaseURL),
			provider.WithModel(cfg.DefaultModel),
			provider.WithBackoff(policy),
			provider.WithJSONMode(cfg.JSONMode),
		)))
	}
	if cfg.UseMock() {
		slog.Info("using mock provider")
	} else {
		slog.Info("using remote provider", "provider", variant, "model", cfg.DefaultModel)
	}
	gen := provider.NewClient(variant, clientOpts...)

	scraperRetries := cfg.ScraperMaxRetries
	if scraperRetries == 0 {
		scraperRetries = acquire.NoRetries
	}
	acqOpts := []acquire.Option{
		acquire.WithBackoff(policy),
		acquire.WithDefaults(acquire.Options{
			Timeout:        cfg.ScraperTimeout,
			MaxRetries:     scraperRetries,
			BrowserTimeout: cfg.BrowserTimeout,
			MaxTextLength:  cfg.MaxTextLength,
		}),
	}
	if cfg.BrowserEnabled {
		a.browser = acquire.NewBrowser(cfg.BrowserHeadless)
		acqOpts = append(acqOpts, acquire.WithRenderer(a.browser))
	}
	a.extractor = acquire.New(acqOpts...)

	a.companies = cache.New[string, engine.CachedCompany](cache.Config{
		MaxEntries: cfg.CacheMaxEntries,
		MaxBytes:   cfg.CacheMaxBytes,
		TTL:        cfg.CacheTTL,
	}, companySize)

	settings := engine.DefaultSettings()
	settings.DefaultModel = cfg.DefaultModel
	settings.AllowedModels = cfg.AllowedModels
	settings.Temperature = cfg.Temperature
	settings.MaxTokens = cfg.MaxTokens
	settings.Timeout = cfg.AITimeout
	settings.MaxRetries = cfg.AIMaxRetries
	settings.JSONMode = cfg.JSONMode
	settings.ResearchTTL = cfg.ResearchTTL
	settings.PromptMaxLength = cfg.PromptMaxLength

	a.orch = engine.New(s, gen,
		engine.WithCompanyStore(s),
		engine.WithArtifactStore(s),
		engine.WithExtractor(a.extractor),
		engine.WithCompanyCache(a.companies),
		engine.WithSettings(settings),
	)
	return a, nil
}

// companySize weighs a cache entry by its JSON encoding.
func companySize(c engine.CachedCompany) int64 {
	b, err := json.Marshal(c.Content)
	if err != nil {
		return 1
	}
	return int64(len(b))
}

func (a *app) Close() {
	if a.browser != nil {
		a.browser.Close()
	}
	if err := a.db.Close(); err != nil {
		slog.Warn("close db", "error", err)
	}
}
