// Package crawler holds the per-website crawl implementations and the
// registry dispatching on website name.
package crawler

import (
	"context"

	"github.com/pricewatch/scraper-cli/internal/model"
	"github.com/pricewatch/scraper-cli/internal/selector"
)

// ProductResult pairs a parsed product with the URL it was fetched from.
// The URL is the pairing key the orchestrator uses to map results back to
// page records; results arrive in completion order, not submission order.
type ProductResult struct {
	URL     string
	Product *model.ParsedProduct
}

// Crawler defines the two crawl paths for one supported website: page
// discovery (category listing -> product URLs) and product detail fetch.
type Crawler interface {
	// Name returns the website name this crawler serves.
	Name() string

	// DiscoverPages crawls the website's category structure and returns the
	// leaf product page candidates. Total failure yields an empty list, not
	// an error.
	DiscoverPages(ctx context.Context, website model.Website, nav []string, content selector.ContentSelectors) ([]model.DiscoveredPage, error)

	// FetchProducts fetches and parses every URL through a bounded worker
	// pool. It returns after all URLs have been attempted exactly once;
	// URLs that fail to fetch or parse contribute no result.
	FetchProducts(ctx context.Context, content selector.ContentSelectors, urls []string) ([]ProductResult, error)
}
