package model

import "time"

// PageStatus represents the scrape lifecycle of a page.
type PageStatus string

const (
	PageStatusPending PageStatus = "pending"
	PageStatusScraped PageStatus = "scraped"
	PageStatusError   PageStatus = "error"
)

// Page is a single URL tracked for a website. Pages are created in pending
// state by the discovery path and become candidates for the data sync.
// Pages with DeletedAt set are excluded from scraping.
type Page struct {
	ID           string     `json:"id"`
	WebsiteID    string     `json:"website_id"`
	URL          string     `json:"url"`
	Status       PageStatus `json:"status"`
	LastScraped  *time.Time `json:"last_scraped,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// DiscoveredPage is a candidate product URL found by the discovery crawl,
// before it becomes a Page record.
type DiscoveredPage struct {
	Name       string `json:"name"`
	URL        string `json:"url"`
	ParentName string `json:"parent_name"`
}
