// Package parse transforms the extraction microservice's tree-shaped payload
// into normalized product records. It is pure: no I/O, no shared state.
package parse

import (
	"go.uber.org/zap"

	"github.com/pricewatch/scraper-cli/internal/model"
	"github.com/pricewatch/scraper-cli/internal/selector"
)

// bulkPriceClass marks the span carrying one tiered price inside the bulk
// price table.
const bulkPriceClass = "bulk-price"

// Product scans the flat list of top-level nodes for a product name
// (heading matching the title hints), a headline price (container matching
// the price hint), and a bulk price table (container matching the bulk
// hints). A record is emitted only when all three were found; partial data
// is discarded outright. The bool reports whether a record was emitted.
func Product(url string, sel selector.ContentSelectors, nodes []model.RawNode) (*model.ParsedProduct, bool) {
	log := zap.L().With(zap.String("component", "parse"), zap.String("url", url))

	var name, price string
	var table []string

	for _, node := range nodes {
		switch {
		case node.Tag == "h1" && node.HasClass(sel.Title()...):
			name = node.Text
		case node.Tag == "div" && node.HasClass(sel.Price()...):
			price = node.Text
		case node.Tag == "div" && node.HasClass(sel.BulkTable()...):
			table = append(table, priceTable(node.Children)...)
		}
	}

	if name == "" || price == "" || len(table) == 0 {
		log.Warn("no bulk prices found for product", zap.String("product", name))
		return nil, false
	}

	cleaned := make([]string, len(table))
	for i, p := range table {
		cleaned[i] = CleanPrice(p)
	}

	log.Debug("found bulk prices for product",
		zap.String("product", name),
		zap.Int("tiers", len(cleaned)),
	)
	return &model.ParsedProduct{
		Name:       name,
		Price:      CleanPrice(price),
		PriceTable: cleaned,
	}, true
}

// priceTable collects the tiered prices from a bulk-table container: one
// level of children holding a table, whose tr>td cells carry bulk-price
// spans.
func priceTable(children []model.RawNode) []string {
	var prices []string

	for _, child := range children {
		if !child.HasClass("table") {
			continue
		}
		for _, row := range child.Children {
			if row.Tag != "tr" {
				continue
			}
			for _, cell := range row.Children {
				if cell.Tag != "td" {
					continue
				}
				for _, span := range cell.Children {
					if span.Tag == "span" && span.HasClass(bulkPriceClass) && span.Text != "" {
						prices = append(prices, span.Text)
					}
				}
			}
		}
	}

	return prices
}
