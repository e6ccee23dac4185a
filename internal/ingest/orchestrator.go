// Package ingest orchestrates the two sync flows: page discovery and
// product data collection.
package ingest

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/pricewatch/scraper-cli/internal/crawler"
	"github.com/pricewatch/scraper-cli/internal/model"
	"github.com/pricewatch/scraper-cli/internal/selector"
	"github.com/pricewatch/scraper-cli/internal/store"
)

// defaultChunkSize bounds how many pages one data sync round fetches at a
// time, keeping memory and upstream load per round flat.
const defaultChunkSize = 25

// Sync statuses reported to callers.
const (
	StatusOK           = "ok"
	StatusNothingToDo  = "nothing to do"
	StatusUnsupported  = "unsupported website"
	StatusNoSelectors  = "no selectors configured"
	StatusNoDiscovered = "no pages discovered"
)

// SyncResult summarizes one sync run.
type SyncResult struct {
	Status         string `json:"status"`
	Message        string `json:"message,omitempty"`
	PagesCreated   int64  `json:"pages_created,omitempty"`
	PagesScraped   int    `json:"pages_scraped,omitempty"`
	RecordsWritten int64  `json:"records_written,omitempty"`
}

// priceMeta is the auxiliary payload stored with each product record.
type priceMeta struct {
	Prices []string `json:"prices"`
}

// Orchestrator drives the sync flows against the store, the selector
// resolver, and the per-website crawlers.
type Orchestrator struct {
	store     store.Store
	resolver  *selector.Resolver
	registry  *crawler.Registry
	chunkSize int
	log       *zap.Logger
	nowFunc   func() time.Time
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithChunkSize overrides the page chunk size for data syncs.
func WithChunkSize(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.chunkSize = n
		}
	}
}

// New creates an Orchestrator.
func New(st store.Store, resolver *selector.Resolver, registry *crawler.Registry, log *zap.Logger, opts ...Option) *Orchestrator {
	if log == nil {
		log = zap.L()
	}
	o := &Orchestrator{
		store:     st,
		resolver:  resolver,
		registry:  registry,
		chunkSize: defaultChunkSize,
		log:       log,
		nowFunc:   time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// checkSupported returns the structured unsupported result when no crawler
// is registered for the website, nil otherwise.
func (o *Orchestrator) checkSupported(website *model.Website) *SyncResult {
	if o.registry.Supported(website.Name) {
		return nil
	}
	o.log.Warn("no crawler registered", zap.String("website", website.Name))
	return &SyncResult{
		Status:  StatusUnsupported,
		Message: "no crawler registered for website " + website.Name,
	}
}

// SyncPages runs the discovery crawl for a website and records every new
// product URL as a pending page. Re-running against an unchanged website
// creates nothing.
func (o *Orchestrator) SyncPages(ctx context.Context, websiteID string) (*SyncResult, error) {
	website, err := o.store.GetWebsite(ctx, websiteID)
	if err != nil {
		return nil, err
	}
	if r := o.checkSupported(website); r != nil {
		return r, nil
	}

	nav, err := o.resolver.Nav(ctx, websiteID)
	if err != nil {
		return nil, err
	}
	content, err := o.resolver.Content(ctx, websiteID)
	if err != nil {
		return nil, err
	}
	if len(nav) == 0 && len(content) == 0 {
		o.log.Warn("no selector criteria configured", zap.String("website", website.Name))
		return &SyncResult{Status: StatusNoSelectors}, nil
	}

	discovered, err := o.registry.Get(website.Name).DiscoverPages(ctx, *website, nav, content)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: discover pages for %s", website.Name)
	}
	if len(discovered) == 0 {
		return &SyncResult{Status: StatusNoDiscovered}, nil
	}

	created, err := o.store.BulkCreatePages(ctx, websiteID, discovered)
	if err != nil {
		return nil, err
	}

	o.log.Info("page sync complete",
		zap.String("website", website.Name),
		zap.Int("discovered", len(discovered)),
		zap.Int64("created", created),
	)
	return &SyncResult{Status: StatusOK, PagesCreated: created}, nil
}

// SyncData fetches every pending page of a website in chunks, upserts the
// parsed product fields, and marks the pages that yielded data as scraped.
// Pages whose fetch or parse failed stay pending for the next run.
func (o *Orchestrator) SyncData(ctx context.Context, websiteID string) (*SyncResult, error) {
	website, err := o.store.GetWebsite(ctx, websiteID)
	if err != nil {
		return nil, err
	}
	if r := o.checkSupported(website); r != nil {
		return r, nil
	}

	pending, err := o.store.ListPendingPages(ctx, websiteID)
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		o.log.Info("no pending pages", zap.String("website", website.Name))
		return &SyncResult{Status: StatusNothingToDo}, nil
	}

	content, err := o.resolver.Content(ctx, websiteID)
	if err != nil {
		return nil, err
	}
	if len(content) == 0 {
		return &SyncResult{Status: StatusNoSelectors}, nil
	}

	c := o.registry.Get(website.Name)
	result := &SyncResult{Status: StatusOK}

	for start := 0; start < len(pending); start += o.chunkSize {
		end := min(start+o.chunkSize, len(pending))
		chunk := pending[start:end]

		written, scraped, err := o.syncChunk(ctx, c, content, chunk)
		if err != nil {
			return nil, err
		}
		result.RecordsWritten += written
		result.PagesScraped += scraped
	}

	o.log.Info("data sync complete",
		zap.String("website", website.Name),
		zap.Int("pending", len(pending)),
		zap.Int("scraped", result.PagesScraped),
		zap.Int64("records", result.RecordsWritten),
	)
	return result, nil
}

// syncChunk fetches one chunk of pages and persists the products that came
// back, pairing each result to its page by URL.
func (o *Orchestrator) syncChunk(ctx context.Context, c crawler.Crawler, content selector.ContentSelectors, chunk []model.Page) (int64, int, error) {
	pageByURL := make(map[string]model.Page, len(chunk))
	urls := make([]string, 0, len(chunk))
	for _, p := range chunk {
		pageByURL[p.URL] = p
		urls = append(urls, p.URL)
	}

	products, err := c.FetchProducts(ctx, content, urls)
	if err != nil {
		return 0, 0, eris.Wrap(err, "ingest: fetch products")
	}

	var records []model.ScrapedData
	var scrapedIDs []string
	for _, pr := range products {
		page, ok := pageByURL[pr.URL]
		if !ok {
			o.log.Warn("result for unknown URL dropped", zap.String("url", pr.URL))
			continue
		}
		meta, err := json.Marshal(priceMeta{Prices: pr.Product.PriceTable})
		if err != nil {
			return 0, 0, eris.Wrapf(err, "ingest: marshal price table for %s", pr.URL)
		}
		records = append(records, model.ScrapedData{
			PageID:         page.ID,
			FieldName:      pr.Product.Name,
			FieldValue:     pr.Product.Price,
			FieldValueMeta: meta,
		})
		scrapedIDs = append(scrapedIDs, page.ID)
	}

	if len(records) == 0 {
		return 0, 0, nil
	}

	written, err := o.store.UpsertScrapedData(ctx, records)
	if err != nil {
		return 0, 0, err
	}
	if err := o.store.MarkPagesScraped(ctx, scrapedIDs, o.nowFunc().UTC()); err != nil {
		return 0, 0, err
	}
	return written, len(scrapedIDs), nil
}
