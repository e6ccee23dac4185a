// Package store persists websites, selector criteria, pages, and scraped
// field data behind a driver-agnostic interface.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/pricewatch/scraper-cli/internal/model"
)

// ErrNotFound is returned when a lookup matches no record.
var ErrNotFound = eris.New("store: not found")

// Store defines the persistence interface for the scraping pipeline.
type Store interface {
	// Websites
	CreateWebsite(ctx context.Context, name, baseURL string) (*model.Website, error)
	GetWebsite(ctx context.Context, id string) (*model.Website, error)
	GetWebsiteByName(ctx context.Context, name string) (*model.Website, error)
	ListWebsites(ctx context.Context) ([]model.Website, error)

	// Selector criteria
	CreateCriterion(ctx context.Context, websiteID, cssSelector string, typ model.CriterionType) (*model.Criterion, error)
	ListCriteria(ctx context.Context, websiteID string, typ model.CriterionType) ([]model.Criterion, error)

	// Pages
	BulkCreatePages(ctx context.Context, websiteID string, discovered []model.DiscoveredPage) (int64, error)
	ListPendingPages(ctx context.Context, websiteID string) ([]model.Page, error)
	MarkPagesScraped(ctx context.Context, pageIDs []string, at time.Time) error
	MarkPageError(ctx context.Context, pageID, message string) error

	// Scraped data
	UpsertScrapedData(ctx context.Context, records []model.ScrapedData) (int64, error)
	ListScrapedData(ctx context.Context, pageID string) ([]model.ScrapedData, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
