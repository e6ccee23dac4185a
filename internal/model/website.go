// Package model defines the domain types shared across the scraping
// pipeline: websites, pages, selector criteria, raw extraction trees, and
// scraped field records.
package model

import (
	"time"

	"github.com/rotisserie/eris"
)

// WebsiteKabelbinder is the website name the kabelbinder crawler serves.
const WebsiteKabelbinder = "kabelbinder"

// ErrUnsupportedWebsite is returned when a sync is requested for a website
// without a registered crawler.
var ErrUnsupportedWebsite = eris.New("unsupported website")

// Website is one tracked shop. Selector criteria and pages hang off it.
type Website struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	BaseURL   string    `json:"base_url"`
	CreatedAt time.Time `json:"created_at"`
}
