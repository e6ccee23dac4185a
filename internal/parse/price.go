package parse

import "strings"

// euroMojibake is the UTF-8 euro sign as it arrives when the render farm
// mis-declares the page charset.
const euroMojibake = "â‚¬"

// CleanPrice normalizes a raw price string: strips asterisk markers and
// surrounding whitespace, repairs the euro symbol, and replaces the comma
// decimal separator with a period.
func CleanPrice(price string) string {
	if price == "" {
		return price
	}
	price = strings.ReplaceAll(price, "*", "")
	price = strings.TrimSpace(price)
	price = strings.ReplaceAll(price, euroMojibake, "€")
	price = strings.ReplaceAll(price, ",", ".")
	return price
}
