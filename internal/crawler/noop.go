package crawler

import (
	"context"

	"github.com/pricewatch/scraper-cli/internal/model"
	"github.com/pricewatch/scraper-cli/internal/selector"
)

// Noop is the fallback crawler for websites without a registered
// implementation. Every operation reports the website as unsupported.
type Noop struct{}

func (Noop) Name() string { return "noop" }

func (Noop) DiscoverPages(_ context.Context, _ model.Website, _ []string, _ selector.ContentSelectors) ([]model.DiscoveredPage, error) {
	return nil, model.ErrUnsupportedWebsite
}

func (Noop) FetchProducts(_ context.Context, _ selector.ContentSelectors, _ []string) ([]ProductResult, error) {
	return nil, model.ErrUnsupportedWebsite
}
