package crawler

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pricewatch/scraper-cli/internal/extract"
	"github.com/pricewatch/scraper-cli/internal/model"
	"github.com/pricewatch/scraper-cli/internal/parse"
	"github.com/pricewatch/scraper-cli/internal/selector"
)

const (
	defaultBatchSize  = 25
	defaultMaxWorkers = 5
	// defaultPageParam normalizes pagination/filtering on discovered
	// category URLs so every listing returns a full page of products.
	defaultPageParam = "af=50"
)

// KabelbinderOptions tunes the kabelbinder crawl.
type KabelbinderOptions struct {
	BatchSize  int    // discovery fetches per concurrent batch
	MaxWorkers int    // product detail worker pool size
	PageParam  string // query string appended to discovered category URLs
}

// Kabelbinder crawls the kabelbinder shop: a two-level category discovery
// crawl and a worker-pool product detail fetch.
type Kabelbinder struct {
	fetcher extract.Fetcher
	opts    KabelbinderOptions
	log     *zap.Logger
}

// NewKabelbinder creates the kabelbinder crawler on top of a resilient
// fetcher.
func NewKabelbinder(fetcher extract.Fetcher, opts KabelbinderOptions, log *zap.Logger) *Kabelbinder {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = defaultMaxWorkers
	}
	if opts.PageParam == "" {
		opts.PageParam = defaultPageParam
	}
	if log == nil {
		log = zap.L()
	}
	return &Kabelbinder{
		fetcher: fetcher,
		opts:    opts,
		log:     log.With(zap.String("crawler", model.WebsiteKabelbinder)),
	}
}

func (k *Kabelbinder) Name() string { return model.WebsiteKabelbinder }

// DiscoverPages fetches the base URL with the navigation hints, collects
// every href-bearing node as a category URL, and fans out over them in
// sequential batches of concurrent fetches to collect leaf product pages.
// Failures on individual URLs are logged and skipped; a missing navigation
// tree yields an empty result, not an error.
func (k *Kabelbinder) DiscoverPages(ctx context.Context, website model.Website, nav []string, content selector.ContentSelectors) ([]model.DiscoveredPage, error) {
	res, err := k.fetcher.Fetch(ctx, extract.Request{URL: website.BaseURL, Selectors: nav})
	if err != nil || !res.OK() {
		k.log.Warn("no navigation tree in initial fetch",
			zap.String("base_url", website.BaseURL),
			zap.Error(err),
		)
		return nil, nil
	}

	targets := k.categoryTargets(res.Nodes)
	if len(targets) == 0 {
		k.log.Warn("no category URLs discovered", zap.String("base_url", website.BaseURL))
		return nil, nil
	}
	k.log.Info("discovered category URLs", zap.Int("count", len(targets)))

	var pages []model.DiscoveredPage
	for start := 0; start < len(targets); start += k.opts.BatchSize {
		end := min(start+k.opts.BatchSize, len(targets))
		pages = append(pages, k.discoverBatch(ctx, targets[start:end], content)...)
	}

	k.log.Info("discovery complete", zap.Int("pages", len(pages)))
	return pages, nil
}

// categoryTarget is one category listing to expand, with the category name
// it was linked under.
type categoryTarget struct {
	url        string
	parentName string
}

func (k *Kabelbinder) categoryTargets(nodes []model.RawNode) []categoryTarget {
	var targets []categoryTarget
	for _, node := range nodes {
		href := node.Attributes.Href
		if href == "" || href == "#" {
			continue
		}
		sep := "?"
		if strings.Contains(href, "?") {
			sep = "&"
		}
		parent := node.Text
		if parent == "" {
			parent = "Unknown"
		}
		targets = append(targets, categoryTarget{
			url:        href + sep + k.opts.PageParam,
			parentName: parent,
		})
	}
	return targets
}

// discoverBatch fetches all targets of one batch concurrently and extracts
// their product links. Per-target failures are isolated: logged, skipped,
// never aborting siblings.
func (k *Kabelbinder) discoverBatch(ctx context.Context, batch []categoryTarget, content selector.ContentSelectors) []model.DiscoveredPage {
	perTarget := make([][]model.DiscoveredPage, len(batch))

	g, gctx := errgroup.WithContext(ctx)
	for i, target := range batch {
		g.Go(func() error {
			res, err := k.fetcher.Fetch(gctx, extract.Request{URL: target.url, Selectors: content.All()})
			if err != nil || !res.OK() {
				k.log.Error("error fetching category page",
					zap.String("url", target.url),
					zap.Error(err),
				)
				return nil
			}
			perTarget[i] = k.productLinks(target, res.Nodes)
			return nil
		})
	}
	_ = g.Wait() // workers never return errors; failures are per-target

	var pages []model.DiscoveredPage
	for _, p := range perTarget {
		pages = append(pages, p...)
	}
	return pages
}

// productLinks walks a category listing's nodes and extracts one discovered
// page per child link. Nodes without children carry no product link and are
// skipped.
func (k *Kabelbinder) productLinks(target categoryTarget, nodes []model.RawNode) []model.DiscoveredPage {
	var pages []model.DiscoveredPage
	for _, node := range nodes {
		name := node.Text
		if name == "" {
			name = "Unknown Product"
		}
		if len(node.Children) == 0 {
			k.log.Warn("no children found in product detail",
				zap.String("url", target.url),
				zap.String("product", name),
			)
			continue
		}
		for _, child := range node.Children {
			url := child.Attributes.Href
			if url == "" {
				url = target.url
			}
			pages = append(pages, model.DiscoveredPage{
				Name:       name,
				URL:        url,
				ParentName: target.parentName,
			})
		}
	}
	return pages
}

// FetchProducts drains the URL list through min(MaxWorkers, len(urls))
// workers sharing one queue. Each worker fetches one URL at a time and
// parses it; a fetch or parse failure contributes no result and never
// aborts sibling workers. Results accumulate in completion order.
func (k *Kabelbinder) FetchProducts(ctx context.Context, content selector.ContentSelectors, urls []string) ([]ProductResult, error) {
	if len(urls) == 0 {
		k.log.Warn("no URLs provided for product fetch")
		return nil, nil
	}
	k.log.Info("fetching product listings", zap.Int("urls", len(urls)))

	queue := make(chan string, len(urls))
	for _, u := range urls {
		queue <- u
	}
	close(queue)

	workers := min(k.opts.MaxWorkers, len(urls))
	resultCh := make(chan ProductResult, len(urls))

	var wg sync.WaitGroup
	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			for url := range queue {
				res, err := k.fetcher.Fetch(ctx, extract.Request{URL: url, Selectors: content.All()})
				if err != nil || !res.OK() {
					k.log.Error("error fetching product page",
						zap.String("url", url),
						zap.Error(err),
					)
					continue
				}
				if product, ok := parse.Product(url, content, res.Nodes); ok {
					resultCh <- ProductResult{URL: url, Product: product}
				}
			}
		}()
	}
	wg.Wait()
	close(resultCh)

	results := make([]ProductResult, 0, len(urls))
	for r := range resultCh {
		results = append(results, r)
	}
	return results, nil
}
