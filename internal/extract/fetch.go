// Package extract wraps the extraction microservice client with the
// process-wide resilience policy: per-call timeout, circuit breaker, and
// bounded retries.
package extract

import (
	"context"
	"errors"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/pricewatch/scraper-cli/internal/model"
	"github.com/pricewatch/scraper-cli/internal/resilience"
	"github.com/pricewatch/scraper-cli/pkg/extractor"
)

// ErrMalformedResponse is returned when the microservice answers 2xx but the
// body carries neither a scraped_data tree nor a soft error.
var ErrMalformedResponse = eris.New("extraction response missing scraped_data tree")

// Request is one extraction call: the page to render and the class-name
// hints telling the microservice which DOM elements matter.
type Request struct {
	URL       string
	Selectors []string
}

// Result is the outcome of a fetch. Err carries the microservice's soft
// failure message; Nodes is the extracted tree on success.
type Result struct {
	Nodes []model.RawNode
	Err   string
}

// OK reports whether the fetch produced a usable tree.
func (r *Result) OK() bool {
	return r != nil && r.Err == "" && len(r.Nodes) > 0
}

// Fetcher issues resilient calls to the extraction microservice.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (*Result, error)
}

// Client implements Fetcher. One Client is shared per process so circuit
// breaker history accumulates across sync invocations.
type Client struct {
	api     extractor.Client
	breaker *resilience.CircuitBreaker
	retry   resilience.RetryConfig
	log     *zap.Logger
}

// New creates a resilient fetch client around the given API client.
func New(api extractor.Client, breakerCfg resilience.CircuitBreakerConfig, retryCfg resilience.RetryConfig, log *zap.Logger) *Client {
	if log == nil {
		log = zap.L()
	}
	log = log.With(zap.String("component", "extract.client"))

	if breakerCfg.OnStateChange == nil {
		breakerCfg.OnStateChange = func(from, to resilience.CircuitState) {
			log.Warn("circuit breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		}
	}
	if retryCfg.OnRetry == nil {
		retryCfg.OnRetry = resilience.RetryLogger("extractor", "scrape_data")
	}

	return &Client{
		api:     api,
		breaker: resilience.NewCircuitBreaker(breakerCfg),
		retry:   retryCfg,
		log:     log,
	}
}

// Fetch calls the microservice for one URL. Every attempt passes through the
// circuit breaker, so retried failures accumulate breaker counts. Timeout,
// transport, breaker-open, and retry-exhausted conditions surface as errors;
// other non-2xx statuses come back as a soft Result.Err payload.
func (c *Client) Fetch(ctx context.Context, req Request) (*Result, error) {
	resp, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*extractor.Response, error) {
		return resilience.ExecuteVal(ctx, c.breaker, func(ctx context.Context) (*extractor.Response, error) {
			return c.attempt(ctx, req)
		})
	})
	if err != nil {
		switch {
		case errors.Is(err, resilience.ErrCircuitOpen):
			c.log.Error("circuit breaker is open, request failed fast", zap.String("url", req.URL))
		case errors.Is(err, resilience.ErrRetryExhausted):
			c.log.Error("max retries exceeded", zap.String("url", req.URL), zap.Error(err))
		default:
			c.log.Error("fetch failed", zap.String("url", req.URL), zap.Error(err))
		}
		return nil, err
	}

	if resp.Error != "" {
		return &Result{Err: resp.Error}, nil
	}
	if len(resp.ScrapedData) == 0 {
		return nil, eris.Wrapf(ErrMalformedResponse, "url %s", req.URL)
	}

	c.log.Debug("fetched extraction data",
		zap.String("url", req.URL),
		zap.Int("nodes", len(resp.ScrapedData)),
	)
	return &Result{Nodes: resp.ScrapedData}, nil
}

// attempt issues a single call. Transient statuses and network failures are
// surfaced as retryable transport errors; remaining non-2xx statuses are
// logged and converted into a soft error payload.
func (c *Client) attempt(ctx context.Context, req Request) (*extractor.Response, error) {
	resp, err := c.api.ScrapeData(ctx, req.URL, req.Selectors)
	if err == nil {
		return resp, nil
	}

	var apiErr *extractor.APIError
	if errors.As(err, &apiErr) {
		if resilience.IsTransientHTTPStatus(apiErr.StatusCode) {
			return nil, resilience.NewTransportError(err, apiErr.StatusCode)
		}
		c.log.Error("failed to fetch data",
			zap.String("url", req.URL),
			zap.Int("status", apiErr.StatusCode),
			zap.String("body", apiErr.Body),
		)
		return &extractor.Response{
			Error: fmt.Sprintf("failed to fetch data from microservice: %d", apiErr.StatusCode),
		}, nil
	}

	return nil, err
}

// BreakerState exposes the circuit state for observability endpoints.
func (c *Client) BreakerState() resilience.CircuitState {
	return c.breaker.State()
}
