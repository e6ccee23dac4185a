package model

// ParsedProduct is the normalized record extracted from one product page:
// the product name, its headline price, and the quantity-tiered bulk price
// table. A product is only emitted when all three were found.
type ParsedProduct struct {
	Name       string   `json:"product"`
	Price      string   `json:"price"`
	PriceTable []string `json:"price_table"`
}
