package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricewatch/scraper-cli/internal/model"
	"github.com/pricewatch/scraper-cli/internal/selector"
)

var testSelectors = selector.ContentSelectors{
	"product-title", "product-heading", "price-box", "bulk-table",
}

func node(tag, text string, classes []string, children ...model.RawNode) model.RawNode {
	return model.RawNode{
		Tag:        tag,
		Text:       text,
		Attributes: model.RawNodeAttributes{Class: classes},
		Children:   children,
	}
}

func bulkTableNode(prices ...string) model.RawNode {
	var cells []model.RawNode
	for _, p := range prices {
		cells = append(cells, node("td", "",
			nil, node("span", p, []string{"bulk-price"})))
	}
	return node("div", "", []string{"bulk-table"},
		node("div", "", []string{"table"},
			node("tr", "", nil, cells...)))
}

func TestProduct_FullRecord(t *testing.T) {
	t.Parallel()

	nodes := []model.RawNode{
		node("h1", "Widget", []string{"product-title"}),
		node("div", "12,50 €*", []string{"price-box"}),
		bulkTableNode("3,00*€", "4,00*€"),
	}

	got, ok := Product("https://shop.example/p/1", testSelectors, nodes)
	require.True(t, ok)
	assert.Equal(t, "Widget", got.Name)
	assert.Equal(t, "12.50 €", got.Price)
	assert.Equal(t, []string{"3.00€", "4.00€"}, got.PriceTable)
}

func TestProduct_NodeOrderIrrelevant(t *testing.T) {
	t.Parallel()

	nodes := []model.RawNode{
		bulkTableNode("3,00"),
		node("div", "12,50", []string{"price-box"}),
		node("h1", "Widget", []string{"product-heading"}),
	}

	got, ok := Product("https://shop.example/p/1", testSelectors, nodes)
	require.True(t, ok)
	assert.Equal(t, "Widget", got.Name)
}

func TestProduct_MissingPriceTable(t *testing.T) {
	t.Parallel()

	nodes := []model.RawNode{
		node("h1", "Widget", []string{"product-title"}),
		node("div", "12,50 €", []string{"price-box"}),
	}

	_, ok := Product("https://shop.example/p/1", testSelectors, nodes)
	assert.False(t, ok, "all three fields are required")
}

func TestProduct_MissingName(t *testing.T) {
	t.Parallel()

	nodes := []model.RawNode{
		node("div", "12,50", []string{"price-box"}),
		bulkTableNode("3,00"),
	}

	_, ok := Product("https://shop.example/p/1", testSelectors, nodes)
	assert.False(t, ok)
}

func TestProduct_WrongTagDoesNotMatch(t *testing.T) {
	t.Parallel()

	// Title hint on a div and price hint on an h1 must both be ignored.
	nodes := []model.RawNode{
		node("div", "Widget", []string{"product-title"}),
		node("h1", "12,50", []string{"price-box"}),
		bulkTableNode("3,00"),
	}

	_, ok := Product("https://shop.example/p/1", testSelectors, nodes)
	assert.False(t, ok)
}

func TestProduct_EmptyNodes(t *testing.T) {
	t.Parallel()

	_, ok := Product("https://shop.example/p/1", testSelectors, nil)
	assert.False(t, ok)
}

func TestProduct_TableRowsWithoutBulkSpansIgnored(t *testing.T) {
	t.Parallel()

	tableNode := node("div", "", []string{"bulk-table"},
		node("div", "", []string{"table"},
			node("tr", "", nil,
				node("td", "", nil, node("span", "not a price", []string{"qty"}))),
			node("tr", "", nil,
				node("td", "", nil, node("span", "5,00", []string{"bulk-price"})))))

	nodes := []model.RawNode{
		node("h1", "Widget", []string{"product-title"}),
		node("div", "12,50", []string{"price-box"}),
		tableNode,
	}

	got, ok := Product("https://shop.example/p/1", testSelectors, nodes)
	require.True(t, ok)
	assert.Equal(t, []string{"5.00"}, got.PriceTable)
}

func TestCleanPrice(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in, want string
	}{
		{"12,50 €*", "12.50 €"},
		{"  3,00*€ ", "3.00€"},
		{"1.234,56 €", "1.234.56 €"},
		{"12,50 â‚¬", "12.50 €"},
		{"", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CleanPrice(tc.in), "CleanPrice(%q)", tc.in)
	}
}
