// Package selector derives the class-name hints sent to the extraction
// microservice from a website's configured criteria.
package selector

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/pricewatch/scraper-cli/internal/model"
)

// ContentSelectors is the ordered flat list of content class hints for a
// website, produced by splitting each content criterion on "|". Positions
// are contractually meaningful: 0-1 are title hints, 2 is the headline
// price hint, 3+ are bulk-price-table hints. The accessors below are the
// only supported way to slice it.
type ContentSelectors []string

// Title returns the product-title class hints (positions 0-1).
func (s ContentSelectors) Title() []string {
	if len(s) > 2 {
		return s[:2]
	}
	return s
}

// Price returns the headline-price class hint (position 2).
func (s ContentSelectors) Price() []string {
	if len(s) > 3 {
		return s[2:3]
	}
	if len(s) > 2 {
		return s[2:]
	}
	return nil
}

// BulkTable returns the bulk-price-table class hints (positions 3+).
func (s ContentSelectors) BulkTable() []string {
	if len(s) > 3 {
		return s[3:]
	}
	return nil
}

// All returns the full hint list in configured order.
func (s ContentSelectors) All() []string {
	return s
}

// CriteriaSource lists the selector criteria configured for a website.
// Satisfied by the store.
type CriteriaSource interface {
	ListCriteria(ctx context.Context, websiteID string, typ model.CriterionType) ([]model.Criterion, error)
}

// Resolver reads a website's criteria and yields navigation and content
// class hints.
type Resolver struct {
	src CriteriaSource
}

// NewResolver creates a Resolver backed by the given criteria source.
func NewResolver(src CriteriaSource) *Resolver {
	return &Resolver{src: src}
}

// Nav returns the navigation class hints for a website, in configured order.
func (r *Resolver) Nav(ctx context.Context, websiteID string) ([]string, error) {
	criteria, err := r.src.ListCriteria(ctx, websiteID, model.CriterionNav)
	if err != nil {
		return nil, eris.Wrapf(err, "selector: list nav criteria for website %s", websiteID)
	}

	selectors := make([]string, 0, len(criteria))
	for _, c := range criteria {
		selectors = append(selectors, c.CSSSelector)
	}
	return selectors, nil
}

// Content returns the flattened content class hints for a website. Each
// content criterion may carry multiple pipe-separated sub-selectors; the
// flattened order preserves criterion order, then sub-selector order.
func (r *Resolver) Content(ctx context.Context, websiteID string) (ContentSelectors, error) {
	criteria, err := r.src.ListCriteria(ctx, websiteID, model.CriterionContent)
	if err != nil {
		return nil, eris.Wrapf(err, "selector: list content criteria for website %s", websiteID)
	}

	var selectors ContentSelectors
	for _, c := range criteria {
		for _, part := range strings.Split(c.CSSSelector, "|") {
			if part = strings.TrimSpace(part); part != "" {
				selectors = append(selectors, part)
			}
		}
	}
	return selectors, nil
}
