package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pricewatch/scraper-cli/internal/crawler"
	"github.com/pricewatch/scraper-cli/internal/extract"
	"github.com/pricewatch/scraper-cli/internal/ingest"
	"github.com/pricewatch/scraper-cli/internal/resilience"
	"github.com/pricewatch/scraper-cli/internal/selector"
	"github.com/pricewatch/scraper-cli/internal/store"
	"github.com/pricewatch/scraper-cli/pkg/extractor"
)

// env bundles the wired subsystems a command needs.
type env struct {
	Store        store.Store
	Resolver     *selector.Resolver
	Registry     *crawler.Registry
	Orchestrator *ingest.Orchestrator
}

func (e *env) Close() {
	if e.Store != nil {
		if err := e.Store.Close(); err != nil {
			zap.L().Warn("close store", zap.Error(err))
		}
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "scraper.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initEnv wires the store, the resilient fetch client, and the crawler
// registry into an orchestrator.
func initEnv(ctx context.Context) (*env, error) {
	if cfg.Extractor.BaseURL == "" {
		return nil, eris.New("extractor base URL is required (PRICEWATCH_EXTRACTOR_BASE_URL)")
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	api := extractor.NewClient(cfg.Extractor.ClientID, cfg.Extractor.ClientSecret,
		extractor.WithBaseURL(cfg.Extractor.BaseURL),
		extractor.WithTimeout(time.Duration(cfg.Extractor.TimeoutSecs)*time.Second),
		extractor.WithRateLimit(rate.Limit(cfg.Extractor.RateLimit), int(cfg.Extractor.RateLimit)),
	)

	fetcher := extract.New(api,
		resilience.FromCircuitConfig(cfg.Resilience.FailureThreshold, cfg.Resilience.ResetTimeoutSecs),
		resilience.FromRetryConfig(cfg.Resilience.MaxAttempts, cfg.Resilience.RetryDelaySecs),
		zap.L(),
	)

	registry := crawler.NewRegistry()
	registry.Register(crawler.NewKabelbinder(fetcher, crawler.KabelbinderOptions{
		BatchSize:  cfg.Scrape.BatchSize,
		MaxWorkers: cfg.Scrape.MaxWorkers,
		PageParam:  cfg.Scrape.PageParam,
	}, zap.L()))

	resolver := selector.NewResolver(st)

	return &env{
		Store:        st,
		Resolver:     resolver,
		Registry:     registry,
		Orchestrator: ingest.New(st, resolver, registry, zap.L(), ingest.WithChunkSize(cfg.Scrape.BatchSize)),
	}, nil
}
