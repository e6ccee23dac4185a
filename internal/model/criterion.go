package model

// CriterionType distinguishes navigation selectors (used to find the
// category/listing structure) from content selectors (used to extract
// product fields).
type CriterionType string

const (
	CriterionNav     CriterionType = "nav"
	CriterionContent CriterionType = "content"
)

// Criterion is a CSS-class selector hint configured for a website.
// A content criterion may encode multiple pipe-separated sub-selectors.
type Criterion struct {
	ID          string        `json:"id"`
	WebsiteID   string        `json:"website_id"`
	CSSSelector string        `json:"css_selector"`
	Type        CriterionType `json:"type"`
}
