// Package extractor is the HTTP client for the page-extraction microservice.
// The microservice renders a target URL in a headless browser, selects DOM
// elements by class-name hints, and returns them as a tree of raw nodes.
package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/pricewatch/scraper-cli/internal/model"
)

const (
	defaultBaseURL = "http://localhost:8100"
	scrapeDataPath = "/scrape/data/"
)

// Client defines the extraction microservice operations.
type Client interface {
	// ScrapeData renders targetURL and returns the DOM nodes matching the
	// given class-name hints.
	ScrapeData(ctx context.Context, targetURL string, classNames []string) (*Response, error)
}

// Response is the body of a successful extraction call. Error is set when
// the microservice itself reports a soft failure.
type Response struct {
	ScrapedData []model.RawNode `json:"scraped_data"`
	Error       string          `json:"error,omitempty"`
}

// APIError is returned when the microservice responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("extractor: HTTP %d: %s", e.StatusCode, e.Body)
}

// Option configures the httpClient.
type Option func(*httpClient)

// WithBaseURL overrides the default base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithTimeout sets the per-call timeout. Headless rendering of heavy pages
// is slow, so the default is deliberately generous.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		c.http.Timeout = d
	}
}

// WithRateLimit caps the request rate toward the microservice.
func WithRateLimit(rps rate.Limit, burst int) Option {
	return func(c *httpClient) {
		c.limiter = rate.NewLimiter(rps, burst)
	}
}

// httpClient implements Client using net/http.
type httpClient struct {
	clientID     string
	clientSecret string
	baseURL      string
	http         *http.Client
	limiter      *rate.Limiter
}

// NewClient creates a new extraction microservice client authenticated with
// the given opaque credentials.
func NewClient(clientID, clientSecret string, opts ...Option) Client {
	c := &httpClient{
		clientID:     clientID,
		clientSecret: clientSecret,
		baseURL:      defaultBaseURL,
		http: &http.Client{
			Timeout: 3600 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(10, 10),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) ScrapeData(ctx context.Context, targetURL string, classNames []string) (*Response, error) {
	q := url.Values{}
	q.Set("url", targetURL)
	for _, class := range classNames {
		q.Add("class_name", class)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+scrapeDataPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "extractor: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Client-ID", c.clientID)
	req.Header.Set("X-Client-Secret", c.clientSecret)

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "extractor: rate limiter wait")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "extractor: execute request")
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "extractor: read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Body:       string(data),
		}
	}

	var out Response
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, eris.Wrap(err, "extractor: decode response")
	}

	return &out, nil
}
